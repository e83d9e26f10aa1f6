package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/ragblade/vector"
)

func TestNewVectorDB(t *testing.T) {
	assert := assert.New(t)

	backends := []vector.Backend{
		"",
		vector.BackendChromem,
		vector.BackendHNSW,
		vector.BackendSQLite,
	}

	for _, backend := range backends {
		db, err := NewVectorDB(vector.Config{Backend: backend})
		if !assert.NoError(err, backend) {
			continue
		}

		_, err = db.Collection("reviews")
		assert.ErrorIs(err, vector.ErrCollectionNotFound, backend)

		assert.NoError(db.Close())
	}
}

func TestNewVectorDBUnsupported(t *testing.T) {
	_, err := NewVectorDB(vector.Config{Backend: "faiss"})
	assert.ErrorIs(t, err, vector.ErrUnsupportedBackend)
}

func TestNewVectorDBPersistent(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	cfg := vector.Config{Backend: vector.BackendSQLite, Persistent: true, Path: dir}

	db, err := NewVectorDB(cfg)
	if !assert.NoError(err) {
		return
	}

	_, err = db.GetOrCreateCollection("reviews")
	assert.NoError(err)
	assert.NoError(db.Close())

	db, err = NewVectorDB(cfg)
	if !assert.NoError(err) {
		return
	}
	defer db.Close()

	_, err = db.Collection("reviews")
	assert.NoError(err)
}
