package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"maizedigest/app/client/embedder"
	"maizedigest/app/config"
	"maizedigest/app/service/index"
	"maizedigest/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const embedConcurrency = 4

func main() {
	di := do.New()
	defer di.Shutdown()

	mylog.Preinit()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	do.Provide(di, embedder.NewClient)

	if err = run(context.Background(), cfg, do.MustInvoke[*embedder.Client](di)); err != nil {
		log.Fatalf("indexing failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, client *embedder.Client) error {
	entries, err := os.ReadDir(cfg.Index.DocsDir)
	if err != nil {
		return err
	}

	var (
		mu   sync.Mutex
		docs []index.Document
	)

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(embedConcurrency)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		name := entry.Name()
		group.Go(func() error {
			content, err := os.ReadFile(filepath.Join(cfg.Index.DocsDir, name))
			if err != nil {
				return err
			}

			vectors, err := client.EmbedDocuments(ctx, []string{string(content)})
			if err != nil {
				return err
			}

			mu.Lock()
			docs = append(docs, index.Document{
				ID:        name,
				Content:   string(content),
				Metadata:  index.Metadata{Source: name},
				Embedding: vectors[0],
			})
			mu.Unlock()

			slog.Info("Indexed", "file", name)

			return nil
		})
	}

	if err = group.Wait(); err != nil {
		return err
	}

	// stable snapshot regardless of embedding completion order
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})

	if err = index.WriteSnapshot(cfg.Index.SnapshotPath, docs); err != nil {
		return err
	}

	slog.Info("Vector store snapshot saved",
		"path", cfg.Index.SnapshotPath,
		"documents", len(docs))

	return nil
}
