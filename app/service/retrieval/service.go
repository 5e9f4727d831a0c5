package retrieval

import (
	"context"
	"log/slog"
	"time"

	"maizedigest/app/client/embedder"
	"maizedigest/app/service/index"
	"maizedigest/app/service/scoring"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// CodeRetrievalFailed marks embedding-service and ranking failures.
const CodeRetrievalFailed = "retrieval_failed"

type Service struct {
	embedderClient *embedder.Client
	indexSvc       *index.Service
	scoringSvc     *scoring.Service
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		embedderClient: do.MustInvoke[*embedder.Client](di),
		indexSvc:       do.MustInvoke[*index.Service](di),
		scoringSvc:     do.MustInvoke[*scoring.Service](di),
	}, nil
}

// Retrieve embeds the query and ranks the corpus against it.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]scoring.ScoredDocument, error) {
	start := time.Now()

	queryEmbedding, err := s.embedderClient.EmbedQuery(ctx, query)
	if err != nil {
		return nil, oops.Code(CodeRetrievalFailed).Wrapf(err, "failed to embed query")
	}

	top := s.scoringSvc.Rank(queryEmbedding, s.indexSvc.Documents(), k)

	slog.Debug("Retrieved documents",
		"query", query,
		"k", k,
		"results", len(top),
		"duration", time.Since(start))

	return top, nil
}
