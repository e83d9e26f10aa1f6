package ragblade

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"go.uber.org/zap"
)

const DefaultPromptTemplate = `You are a product assistant that answers questions using customer reviews.
Answer only from the reviews below. If they do not contain the answer, say that you don't know.

Reviews:
{{- range .Documents }}
[{{ .Index }}]{{ with .Metadata.product_name }} {{ . }}{{ end }}{{ with .Metadata.product_rating }} (rating {{ . }}){{ end }}
{{ .Text }}
{{- else }}
(no reviews found)
{{- end }}

Question: {{ .Query }}
Answer:`

// PromptAssembler renders the query and retrieved documents into a single
// prompt. It is deterministic: equal inputs give equal output.
type PromptAssembler interface {
	Assemble(query string, retrieved RetrievalResult) (prompt string, truncated int, err error)
}

type promptData struct {
	Query     string
	Documents []promptDocument
}

type promptDocument struct {
	Index    int
	ID       string
	Text     string
	Metadata map[string]any
	Score    float32
}

func NewPromptAssembler(cfg PromptConfig) (PromptAssembler, error) {
	text := cfg.Template
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}

	tmpl, err := template.New("prompt").Parse(text)
	if err != nil {
		return nil, newError(ComponentPrompt, ErrConfiguration, err)
	}

	return &promptAssembler{
		tmpl:      tmpl,
		maxLength: cfg.MaxLength,
		log: zap.L().With(
			zap.String("component", string(ComponentPrompt)),
		),
	}, nil
}

type promptAssembler struct {
	tmpl      *template.Template
	maxLength int
	log       *zap.Logger
}

// Assemble drops documents from the tail, which holds the lowest scores,
// until the prompt fits maxLength characters.
func (a *promptAssembler) Assemble(query string, retrieved RetrievalResult) (string, int, error) {
	if strings.TrimSpace(query) == "" {
		return "", 0, newError(ComponentPrompt, ErrInvalidInput, errors.New("query is empty"))
	}

	for n := len(retrieved); n >= 0; n-- {
		prompt, err := a.render(query, retrieved[:n])
		if err != nil {
			return "", 0, newError(ComponentPrompt, ErrConfiguration, err)
		}

		if a.maxLength <= 0 || utf8.RuneCountInString(prompt) <= a.maxLength {
			truncated := len(retrieved) - n
			if truncated > 0 {
				a.log.Warn("documents dropped to fit prompt",
					zap.Int("truncated", truncated),
					zap.Int("kept", n),
					zap.Int("max_length", a.maxLength),
				)
			}

			return prompt, truncated, nil
		}
	}

	err := fmt.Errorf("query does not fit max_length %d", a.maxLength)
	return "", 0, newError(ComponentPrompt, ErrInvalidInput, err)
}

func (a *promptAssembler) render(query string, docs RetrievalResult) (string, error) {
	data := promptData{
		Query:     query,
		Documents: make([]promptDocument, len(docs)),
	}

	for i, doc := range docs {
		data.Documents[i] = promptDocument{
			Index:    i + 1,
			ID:       doc.ID,
			Text:     doc.Text,
			Metadata: doc.Metadata,
			Score:    doc.Score,
		}
	}

	var sb strings.Builder
	if err := a.tmpl.Execute(&sb, data); err != nil {
		return "", err
	}

	return sb.String(), nil
}
