package index

import (
	"log/slog"
	"maizedigest/app/config"

	"github.com/samber/do"
)

// Service holds the corpus snapshot for the lifetime of the process.
// The slice is read-only after New and safe to share across sessions.
type Service struct {
	docs []Document
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	docs, err := LoadSnapshot(cfg.Index.SnapshotPath)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded vector store snapshot",
		"path", cfg.Index.SnapshotPath,
		"documents", len(docs))

	return &Service{docs: docs}, nil
}

func (s *Service) Documents() []Document {
	return s.docs
}

func (s *Service) Len() int {
	return len(s.docs)
}
