// Package sqlite stores collections in a single SQLite file. Queries scan the
// collection and score every row, which keeps results exact.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/flarexio/ragblade/vector"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL REFERENCES collections(name),
	id         TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);`

// NewSQLiteVectorDB opens <cfg.Path>/vectors.db, or an in-memory database when
// cfg.Persistent is false.
func NewSQLiteVectorDB(cfg vector.Config) (vector.VectorDB, error) {
	dsn := ":memory:"
	if cfg.Persistent {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, err
		}

		dsn = filepath.Join(cfg.Path, "vectors.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// A single connection serializes writers and keeps the in-memory
	// database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &sqliteVectorDB{db}, nil
}

type sqliteVectorDB struct {
	db *sql.DB
}

func (s *sqliteVectorDB) Collection(name string) (vector.Collection, error) {
	var found string
	err := s.db.QueryRow(`SELECT name FROM collections WHERE name = ?`, name).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vector.ErrCollectionNotFound
		}

		return nil, err
	}

	return &collection{s.db, name}, nil
}

func (s *sqliteVectorDB) GetOrCreateCollection(name string) (vector.Collection, error) {
	_, err := s.db.Exec(`INSERT INTO collections(name) VALUES(?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return nil, err
	}

	return &collection{s.db, name}, nil
}

func (s *sqliteVectorDB) Close() error {
	return s.db.Close()
}

type collection struct {
	db   *sql.DB
	name string
}

func (c *collection) Upsert(ctx context.Context, doc vector.Document) error {
	if len(doc.Embedding) == 0 {
		return vector.ErrEmptyEmbedding
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
INSERT INTO documents(collection, id, seq, content, metadata, embedding)
VALUES(?, ?, (SELECT COALESCE(MAX(seq) + 1, 0) FROM documents WHERE collection = ?), ?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET
	content=excluded.content,
	metadata=excluded.metadata,
	embedding=excluded.embedding`,
		c.name, doc.ID, c.name, doc.Content, string(metadata), encodeEmbedding(doc.Embedding))

	return err
}

func (c *collection) Get(ctx context.Context, id string) (vector.Document, error) {
	row := c.db.QueryRowContext(ctx, `
SELECT id, seq, content, metadata, embedding FROM documents
WHERE collection = ? AND id = ?`, c.name, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vector.Document{}, vector.ErrDocumentNotFound
		}

		return vector.Document{}, err
	}

	return doc, nil
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, vector.ErrInvalidK
	}

	if len(embedding) == 0 {
		return nil, vector.ErrEmptyEmbedding
	}

	rows, err := c.db.QueryContext(ctx, `
SELECT id, seq, content, metadata, embedding FROM documents
WHERE collection = ?
ORDER BY seq`, c.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]vector.Result, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}

		if len(doc.Embedding) != len(embedding) {
			return nil, fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(embedding), len(doc.Embedding))
		}

		results = append(results, vector.Result{
			Document:   doc,
			Similarity: vector.Cosine(embedding, doc.Embedding),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return vector.Rank(results, k), nil
}

func (c *collection) Count() int {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM documents WHERE collection = ?`, c.name).Scan(&n)
	if err != nil {
		return 0
	}

	return n
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (vector.Document, error) {
	var (
		doc      vector.Document
		metadata string
		blob     []byte
	)

	if err := row.Scan(&doc.ID, &doc.Seq, &doc.Content, &metadata, &blob); err != nil {
		return vector.Document{}, err
	}

	if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
		return vector.Document{}, fmt.Errorf("decode metadata of %s: %w", doc.ID, err)
	}

	doc.Embedding = decodeEmbedding(blob)
	return doc, nil
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}

	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}

	return v
}
