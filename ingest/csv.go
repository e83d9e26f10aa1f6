// Package ingest turns product review exports into documents.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/flarexio/ragblade"
)

var ErrMissingColumns = errors.New("missing required columns")

// RequiredColumns must all be present in the CSV header.
var RequiredColumns = []string{"product_title", "rating", "summary", "review"}

// SampleQuery is searched after an ingestion run to check the collection.
const SampleQuery = "Can you tell me the low budget headphone?"

// ReadProductReviews maps each row to a document whose text is the review.
// Rows with an empty review are skipped.
func ReadProductReviews(r io.Reader) ([]ragblade.Document, error) {
	log := zap.L().With(
		zap.String("component", "ingest"),
	)

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[name] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var (
		docs    []ragblade.Document
		skipped int
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		review := strings.TrimSpace(record[columns["review"]])
		if review == "" {
			skipped++
			continue
		}

		metadata := map[string]any{
			"product_name":    strings.TrimSpace(record[columns["product_title"]]),
			"product_rating":  parseRating(record[columns["rating"]]),
			"product_summary": strings.TrimSpace(record[columns["summary"]]),
		}

		docs = append(docs, ragblade.NewDocument(review, metadata))
	}

	if skipped > 0 {
		log.Warn("rows without review skipped", zap.Int("skipped", skipped))
	}

	log.Info("documents transformed", zap.Int("count", len(docs)))
	return docs, nil
}

func ReadProductReviewsFile(path string) ([]ragblade.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadProductReviews(f)
}

func parseRating(s string) any {
	s = strings.TrimSpace(s)

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	return s
}
