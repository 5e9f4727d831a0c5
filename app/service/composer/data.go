package composer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/samber/oops"
)

// Digest is the structured output of the digest prompt.
type Digest struct {
	Executive string      `json:"executive"`
	Opening   string      `json:"opening"`
	Main      MainContent `json:"main"`
}

func (d *Digest) IsEmpty() bool {
	return d.Executive == "" && d.Opening == "" && d.Main.IsEmpty()
}

// MainContent accepts both shapes the model produces: a plain string, or an
// object of named sections. Section order is preserved for rendering.
type MainContent struct {
	Text     string
	Sections []Section
}

type Section struct {
	Title string
	Text  string
}

func (m *MainContent) IsEmpty() bool {
	return m.Text == "" && len(m.Sections) == 0
}

// Flatten renders the object form as "Title: text" paragraphs.
func (m *MainContent) Flatten() string {
	if len(m.Sections) == 0 {
		return m.Text
	}

	parts := make([]string, 0, len(m.Sections))
	for _, s := range m.Sections {
		parts = append(parts, s.Title+": "+s.Text)
	}

	return strings.Join(parts, "\n")
}

func (m *MainContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return oops.Errorf("empty main content")
	}

	if trimmed[0] == '"' {
		return json.Unmarshal(data, &m.Text)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return oops.Errorf("main content must be a string or an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyTok.(string)
		if !ok {
			return oops.Errorf("unexpected key token %v", keyTok)
		}

		var value string
		if err = dec.Decode(&value); err != nil {
			return oops.Errorf("section %q is not a string: %w", key, err)
		}

		m.Sections = append(m.Sections, Section{Title: key, Text: value})
	}

	return nil
}

func (m MainContent) MarshalJSON() ([]byte, error) {
	if len(m.Sections) == 0 {
		return json.Marshal(m.Text)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range m.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(s.Title)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.Text)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// InvalidOutputError is returned when the model breaks the JSON-only digest
// contract. Raw keeps the unparseable text for diagnostics.
type InvalidOutputError struct {
	Raw   string
	cause error
}

func (e *InvalidOutputError) Error() string {
	return "Invalid JSON from model"
}

func (e *InvalidOutputError) Unwrap() error {
	return e.cause
}
