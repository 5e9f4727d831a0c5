package composer

import (
	"encoding/json"
	"strings"

	"maizedigest/app/service/scoring"

	_ "embed"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

//go:embed answer_prompt_template.txt
var answerPromptTemplate string

//go:embed digest_prompt_template.txt
var digestPromptTemplate string

//go:embed style_guidelines.txt
var styleGuide string

//go:embed tone.json
var toneProfile string

const contextSeparator = "\n\n---\n\n"

type Service struct{}

func New(_ *do.Injector) (*Service, error) {
	return &Service{}, nil
}

// FormatContext renders retrieved documents as source-attributed blocks.
func (s *Service) FormatContext(docs []scoring.ScoredDocument) string {
	blocks := pie.Map(docs, func(doc scoring.ScoredDocument) string {
		return "Source: " + doc.Metadata.Source + "\n" + doc.Content
	})

	return strings.Join(blocks, contextSeparator)
}

func (s *Service) AnswerPrompt(query string, docs []scoring.ScoredDocument) string {
	return fillTemplate(answerPromptTemplate, map[string]string{
		"context": s.FormatContext(docs),
		"query":   query,
	})
}

func (s *Service) DigestPrompt(query string, docs []scoring.ScoredDocument) string {
	return fillTemplate(digestPromptTemplate, map[string]string{
		"style_guide": styleGuide,
		"tone":        toneProfile,
		"context":     s.FormatContext(docs),
		"query":       query,
	})
}

// ParseDigest parses the model's raw digest output. Code fences around the
// JSON are tolerated; anything else violating the JSON-only contract comes
// back as an InvalidOutputError carrying the raw text.
func (s *Service) ParseDigest(raw string) (*Digest, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, "`")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimPrefix(cleaned, "json")
	cleaned = strings.TrimSpace(cleaned)

	var digest Digest
	if err := json.Unmarshal([]byte(cleaned), &digest); err != nil {
		return nil, &InvalidOutputError{Raw: raw, cause: err}
	}

	if digest.IsEmpty() {
		return nil, &InvalidOutputError{Raw: raw}
	}

	return &digest, nil
}

func fillTemplate(template string, values map[string]string) string {
	for key, value := range values {
		template = strings.ReplaceAll(template, "{"+key+"}", value)
	}

	return template
}
