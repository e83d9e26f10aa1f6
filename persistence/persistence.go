// Package persistence selects a vector store implementation by backend name.
package persistence

import (
	"fmt"

	"github.com/flarexio/ragblade/persistence/chromem"
	"github.com/flarexio/ragblade/persistence/hnsw"
	"github.com/flarexio/ragblade/persistence/sqlite"
	"github.com/flarexio/ragblade/vector"
)

func NewVectorDB(cfg vector.Config) (vector.VectorDB, error) {
	switch cfg.Backend {
	case vector.BackendChromem, "":
		return chromem.NewChromemVectorDB(cfg)
	case vector.BackendHNSW:
		return hnsw.NewHNSWVectorDB(cfg)
	case vector.BackendSQLite:
		return sqlite.NewSQLiteVectorDB(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", vector.ErrUnsupportedBackend, cfg.Backend)
	}
}
