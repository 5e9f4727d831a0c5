package index

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// LoadSnapshot reads the whole vectorstore file into memory. Every record
// must carry an embedding; a snapshot with empty vectors is rejected here so
// scoring never has to deal with them.
func LoadSnapshot(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read snapshot: %w", err)
	}

	var docs []Document
	if err = json.Unmarshal(data, &docs); err != nil {
		return nil, oops.Errorf("failed to parse snapshot: %w", err)
	}

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return nil, oops.Errorf("snapshot record %q has no embedding", doc.ID)
		}
	}

	return docs, nil
}

func WriteSnapshot(path string, docs []Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return oops.Errorf("failed to create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return oops.Errorf("failed to marshal snapshot: %w", err)
	}

	if err = os.WriteFile(path, data, 0644); err != nil {
		return oops.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}
