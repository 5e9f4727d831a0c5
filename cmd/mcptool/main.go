package main

import (
	"context"
	"encoding/json"

	"maizedigest/app/client/embedder"
	"maizedigest/app/config"
	"maizedigest/app/service/index"
	"maizedigest/app/service/retrieval"
	"maizedigest/app/service/scoring"
	"maizedigest/app/util/mylog"

	"github.com/benbjohnson/clock"
	"github.com/elliotchance/pie/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

// Exposes corpus retrieval as an MCP stdio tool so external agents can
// search the same snapshot the assistant answers from.

const defaultTopK = 5

type searchHit struct {
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Year    int     `json:"year"`
	Content string  `json:"content"`
}

func main() {
	di := do.New()
	defer di.Shutdown()

	mylog.Preinit()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)
	do.ProvideValue[clock.Clock](di, clock.New())

	do.Provide(di, embedder.NewClient)
	do.Provide(di, index.New)
	do.Provide(di, scoring.New)
	do.Provide(di, retrieval.New)

	retrievalSvc := do.MustInvoke[*retrieval.Service](di)

	mcpServer := server.NewMCPServer("maizedigest-corpus", "1.0.0")

	tool := mcp.NewTool("corpus_search",
		mcp.WithDescription("Search the MAIZE project corpus. Returns the top matching documents with relevance scores."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of documents to return, default 5"),
		),
	)

	mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		k := request.GetInt("k", defaultTopK)

		docs, err := retrievalSvc.Retrieve(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		hits := pie.Map(docs, func(doc scoring.ScoredDocument) searchHit {
			return searchHit{
				Source:  doc.Metadata.Source,
				Score:   doc.Score,
				Year:    doc.Year,
				Content: doc.Content,
			}
		})

		data, err := json.Marshal(hits)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(data)), nil
	})

	if err = server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("mcp server failed: %v", err)
	}
}
