package ragblade

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/ragblade/vector"
)

// Document is a unit of source text. Metadata values are scalars.
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (d Document) Validate() error {
	if d.ID == "" {
		return errors.New("document id is required")
	}

	if strings.TrimSpace(d.Text) == "" {
		return errors.New("document text is empty")
	}

	for k, v := range d.Metadata {
		if !isScalar(v) {
			return fmt.Errorf("metadata %q is not a scalar (%T)", k, v)
		}
	}

	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}

	return false
}

// NewDocument builds a Document whose ID is derived from its content, so
// ingesting the same text and metadata twice yields the same ID.
func NewDocument(text string, metadata map[string]any) Document {
	return Document{
		ID:       GenerateDocumentID(text, metadata),
		Text:     text,
		Metadata: metadata,
	}
}

func GenerateDocumentID(text string, metadata map[string]any) string {
	data := text

	bs, err := json.Marshal(metadata)
	if err == nil {
		data += "|" + string(bs)
	}

	hash := sha256.Sum256([]byte(data))
	return "doc_" + hex.EncodeToString(hash[:12])
}

type Embedding struct {
	Vector   []float32 `json:"vector"`
	SourceID string    `json:"source_id,omitempty"`
}

type ScoredDocument struct {
	Document
	Score float32 `json:"score"`
}

// RetrievalResult is ordered by descending score.
type RetrievalResult []ScoredDocument

func (r RetrievalResult) IDs() []string {
	ids := make([]string, len(r))
	for i, doc := range r {
		ids[i] = doc.ID
	}

	return ids
}

type PromptContext struct {
	Query     string
	Retrieved RetrievalResult
}

type Answer struct {
	RequestID      string   `json:"request_id"`
	Response       string   `json:"response"`
	RetrievedIDs   []string `json:"retrieved_ids"`
	TruncatedCount int      `json:"truncated_count"`
}

// State is a stage of a single Answer request.
type State string

const (
	StateReceived       State = "RECEIVED"
	StateEmbeddingQuery State = "EMBEDDING_QUERY"
	StateRetrieving     State = "RETRIEVING"
	StateAssembling     State = "ASSEMBLING"
	StateGenerating     State = "GENERATING"
	StateComplete       State = "COMPLETE"
	StateFailed         State = "FAILED"
)

func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

const metadataKey = "metadata_json"

func DocumentToVector(doc Document, emb Embedding) vector.Document {
	metadata := make(map[string]string, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		metadata[k] = fmt.Sprint(v)
	}

	if bs, err := json.Marshal(doc.Metadata); err == nil {
		metadata[metadataKey] = string(bs)
	}

	return vector.Document{
		ID:        doc.ID,
		Content:   doc.Text,
		Metadata:  metadata,
		Embedding: emb.Vector,
	}
}

// DocumentFromVector restores the typed metadata written by DocumentToVector.
// Documents written by other tools keep their string metadata.
func DocumentFromVector(doc vector.Document) Document {
	var metadata map[string]any

	raw, ok := doc.Metadata[metadataKey]
	if ok {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			ok = false
		}
	}

	if !ok && len(doc.Metadata) > 0 {
		metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
	}

	return Document{
		ID:       doc.ID,
		Text:     doc.Content,
		Metadata: metadata,
	}
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	return d.UnmarshalText([]byte(str))
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	return d.UnmarshalText([]byte(str))
}

// UnmarshalText is used by the TOML decoder.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}
