package main

import (
	"context"
	"log/slog"
	"maizedigest/app/client/embedder"
	"maizedigest/app/client/llm"
	"maizedigest/app/config"
	"maizedigest/app/server"
	"maizedigest/app/service/composer"
	"maizedigest/app/service/conversation"
	"maizedigest/app/service/export"
	"maizedigest/app/service/index"
	"maizedigest/app/service/retrieval"
	"maizedigest/app/service/scoring"
	"maizedigest/app/util/mylog"
	"os"
	"os/signal"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.ProvideValue[clock.Clock](di, clock.New())

	do.Provide(di, embedder.NewClient)
	do.Provide(di, llm.NewClient)
	do.Provide(di, index.New)
	do.Provide(di, scoring.New)
	do.Provide(di, retrieval.New)
	do.Provide(di, composer.New)
	do.Provide(di, export.New)
	do.Provide(di, conversation.New)
	do.Provide(di, server.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		_ = do.MustInvoke[*server.Server](di).Shutdown()
		cancel()
	}()

	if err = do.MustInvoke[*server.Server](di).Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}

	<-appCtx.Done()
}
