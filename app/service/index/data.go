package index

type Metadata struct {
	Source string `json:"source"`
}

// Document is a single embedded corpus entry. Records are created by the
// indexer and never mutated after the snapshot is loaded.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"embedding"`
}
