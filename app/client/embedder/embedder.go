package embedder

import (
	"context"
	"maizedigest/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Client wraps the Ollama embedding model behind langchaingo.
type Client struct {
	embedder embeddings.Embedder
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.Ollama.BaseURL),
		ollama.WithModel(cfg.Ollama.EmbedModel),
	)
	if err != nil {
		return nil, oops.Errorf("failed to create ollama client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, oops.Errorf("failed to create embedder: %w", err)
	}

	return &Client{embedder: emb}, nil
}

// EmbedQuery embeds a single query. The backend answers batch requests with a
// sequence of vectors even for one input, so the result is normalized to a
// bare vector here.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, oops.Errorf("failed to embed query: %w", err)
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, oops.Errorf("embedding service returned an empty vector")
	}

	return vectors[0], nil
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, oops.Errorf("failed to embed documents: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, oops.Errorf("embedding service returned %d vectors for %d documents", len(vectors), len(texts))
	}

	return vectors, nil
}
