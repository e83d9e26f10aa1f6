// Package vectortest holds the behaviour every vector.VectorDB backend must
// share. Backends run it from their own tests.
package vectortest

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ragblade/vector"
)

type CollectionSuite struct {
	suite.Suite

	// NewDB returns an empty database for each test.
	NewDB func() (vector.VectorDB, error)

	db vector.VectorDB
}

func (suite *CollectionSuite) SetupTest() {
	db, err := suite.NewDB()
	suite.Require().NoError(err)

	suite.db = db
}

func (suite *CollectionSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *CollectionSuite) TestMissingCollection() {
	_, err := suite.db.Collection("missing")
	suite.ErrorIs(err, vector.ErrCollectionNotFound)
}

func (suite *CollectionSuite) TestCreateOnUpsertPath() {
	c, err := suite.db.GetOrCreateCollection("docs")
	suite.Require().NoError(err)
	suite.Equal(0, c.Count())

	found, err := suite.db.Collection("docs")
	suite.Require().NoError(err)
	suite.Equal(0, found.Count())
}

func (suite *CollectionSuite) TestEmptyCollectionQuery() {
	ctx := context.Background()

	c, err := suite.db.GetOrCreateCollection("docs")
	suite.Require().NoError(err)

	results, err := c.Query(ctx, []float32{1, 0, 0}, 3)
	suite.NoError(err)
	suite.Empty(results)
}

func (suite *CollectionSuite) TestInvalidK() {
	ctx := context.Background()

	c, err := suite.db.GetOrCreateCollection("docs")
	suite.Require().NoError(err)

	_, err = c.Query(ctx, []float32{1, 0, 0}, 0)
	suite.ErrorIs(err, vector.ErrInvalidK)
}

func (suite *CollectionSuite) TestUpsertIdempotent() {
	ctx := context.Background()

	c, err := suite.db.GetOrCreateCollection("docs")
	suite.Require().NoError(err)

	doc := vector.Document{
		ID:        "1",
		Content:   "red apple",
		Metadata:  map[string]string{"color": "red"},
		Embedding: []float32{1, 1, 0},
	}

	suite.Require().NoError(c.Upsert(ctx, doc))
	first, err := c.Get(ctx, "1")
	suite.Require().NoError(err)

	suite.Require().NoError(c.Upsert(ctx, doc))
	second, err := c.Get(ctx, "1")
	suite.Require().NoError(err)

	suite.Equal(1, c.Count())
	suite.Equal(first.Content, second.Content)
	suite.Equal(first.Metadata, second.Metadata)
	suite.Equal(first.Seq, second.Seq)
}

func (suite *CollectionSuite) TestUpsertReplaces() {
	ctx := context.Background()

	c, err := suite.db.GetOrCreateCollection("docs")
	suite.Require().NoError(err)

	suite.Require().NoError(c.Upsert(ctx, vector.Document{ID: "a", Content: "old", Embedding: []float32{1, 0, 0}}))
	suite.Require().NoError(c.Upsert(ctx, vector.Document{ID: "b", Content: "other", Embedding: []float32{0, 0, 1}}))
	suite.Require().NoError(c.Upsert(ctx, vector.Document{ID: "a", Content: "new", Embedding: []float32{0, 1, 0}}))

	suite.Equal(2, c.Count())

	doc, err := c.Get(ctx, "a")
	suite.Require().NoError(err)
	suite.Equal("new", doc.Content)

	results, err := c.Query(ctx, []float32{0, 1, 0}, 1)
	suite.Require().NoError(err)
	suite.Require().Len(results, 1)
	suite.Equal("a", results[0].ID)
	suite.InDelta(1.0, results[0].Similarity, 1e-5)
}

func (suite *CollectionSuite) TestQueryOrdering() {
	ctx := context.Background()

	c, err := suite.db.GetOrCreateCollection("docs")
	suite.Require().NoError(err)

	docs := []vector.Document{
		{ID: "1", Content: "red apple", Embedding: []float32{1, 1, 0, 0, 0}},
		{ID: "2", Content: "blue car", Embedding: []float32{0, 0, 1, 1, 0}},
		{ID: "3", Content: "green apple", Embedding: []float32{0, 1, 0, 0, 1}},
	}

	for _, doc := range docs {
		suite.Require().NoError(c.Upsert(ctx, doc))
	}

	results, err := c.Query(ctx, []float32{0, 1, 0, 0, 0}, 2)
	suite.Require().NoError(err)
	suite.Require().Len(results, 2)

	suite.Equal("1", results[0].ID)
	suite.Equal("3", results[1].ID)
	suite.GreaterOrEqual(results[0].Similarity, results[1].Similarity)

	all, err := c.Query(ctx, []float32{0, 1, 0, 0, 0}, 10)
	suite.Require().NoError(err)
	suite.Len(all, 3)
}

func (suite *CollectionSuite) TestQueryBoundaryTies() {
	ctx := context.Background()

	c, err := suite.db.GetOrCreateCollection("docs")
	suite.Require().NoError(err)

	for i := range 30 {
		doc := vector.Document{
			ID:        fmt.Sprintf("d%02d", i),
			Content:   "same text",
			Embedding: []float32{1, 1, 0},
		}

		suite.Require().NoError(c.Upsert(ctx, doc))
	}

	first, err := c.Query(ctx, []float32{1, 1, 0}, 1)
	suite.Require().NoError(err)
	suite.Require().Len(first, 1)
	suite.Equal("d00", first[0].ID)

	top, err := c.Query(ctx, []float32{1, 1, 0}, 3)
	suite.Require().NoError(err)
	suite.Require().Len(top, 3)

	for i, r := range top {
		suite.Equal(fmt.Sprintf("d%02d", i), r.ID)
	}
}

func (suite *CollectionSuite) TestConcurrentUpsertAndQuery() {
	ctx := context.Background()

	c, err := suite.db.GetOrCreateCollection("docs")
	suite.Require().NoError(err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)

		go func(i int) {
			defer wg.Done()

			doc := vector.Document{
				ID:        fmt.Sprintf("doc-%d", i%5),
				Content:   "text",
				Embedding: []float32{1, float32(i % 5), 1},
			}

			suite.NoError(c.Upsert(ctx, doc))
		}(i)

		go func() {
			defer wg.Done()

			results, err := c.Query(ctx, []float32{1, 1, 1}, 3)
			suite.NoError(err)
			suite.LessOrEqual(len(results), 3)
		}()
	}

	wg.Wait()

	suite.Equal(5, c.Count())
}
