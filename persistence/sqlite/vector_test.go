package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ragblade/vector"
	"github.com/flarexio/ragblade/vector/vectortest"
)

func TestSQLiteCollectionSuite(t *testing.T) {
	suite.Run(t, &vectortest.CollectionSuite{
		NewDB: func() (vector.VectorDB, error) {
			return NewSQLiteVectorDB(vector.Config{})
		},
	})
}

func TestSQLitePersistentReload(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := vector.Config{
		Backend:    vector.BackendSQLite,
		Persistent: true,
		Path:       t.TempDir(),
	}

	db, err := NewSQLiteVectorDB(cfg)
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	c, err := db.GetOrCreateCollection("reviews")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	err = c.Upsert(ctx, vector.Document{
		ID:        "r1",
		Content:   "battery lasts all day",
		Metadata:  map[string]string{"product_rating": "5"},
		Embedding: []float32{0.5, -0.25, 1},
	})
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	db.Close()

	reopened, err := NewSQLiteVectorDB(cfg)
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer reopened.Close()

	found, err := reopened.Collection("reviews")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	doc, err := found.Get(ctx, "r1")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("battery lasts all day", doc.Content)
	assert.Equal("5", doc.Metadata["product_rating"])
	assert.Equal([]float32{0.5, -0.25, 1}, doc.Embedding)
}

func TestEmbeddingCodec(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.125}
	assert.Equal(t, v, decodeEmbedding(encodeEmbedding(v)))
}

func TestSQLiteDimensionMismatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := NewSQLiteVectorDB(vector.Config{})
	if err != nil {
		assert.Fail(err.Error())
		return
	}
	defer db.Close()

	c, err := db.GetOrCreateCollection("docs")
	if err != nil {
		assert.Fail(err.Error())
		return
	}

	err = c.Upsert(ctx, vector.Document{ID: "a", Embedding: []float32{1, 2, 3}})
	assert.NoError(err)

	_, err = c.Query(ctx, []float32{1, 2}, 1)
	assert.ErrorIs(err, vector.ErrDimensionMismatch)
}
