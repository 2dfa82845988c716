// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/quillstone/docbase"
	"github.com/quillstone/docbase/ai"
	"github.com/quillstone/docbase/core"
	"github.com/quillstone/docbase/ingestion"
	"github.com/quillstone/docbase/registry"
	"github.com/quillstone/docbase/search"
)

func main() {
	app := &cli.App{
		Name:  "docbase",
		Usage: "Document ingestion and retrieval engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data directory",
				Value:   "./docbase_data",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: "embeddinggemma",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:  "collections",
				Usage: "Manage collections",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "Create a collection",
						ArgsUsage: "<name>",
						Action:    createCollectionCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "description",
								Usage: "Collection description",
							},
						},
					},
					{
						Name:   "list",
						Usage:  "List collections",
						Action: listCollectionsCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "all",
								Usage: "Include deactivated collections",
							},
						},
					},
					{
						Name:      "delete",
						Usage:     "Delete collections and their documents",
						ArgsUsage: "<id>...",
						Action:    bulkCollectionCommand(registry.BulkDelete),
					},
					{
						Name:      "activate",
						Usage:     "Activate collections",
						ArgsUsage: "<id>...",
						Action:    bulkCollectionCommand(registry.BulkActivate),
					},
					{
						Name:      "deactivate",
						Usage:     "Deactivate collections (hides their content from search)",
						ArgsUsage: "<id>...",
						Action:    bulkCollectionCommand(registry.BulkDeactivate),
					},
					{
						Name:      "stats",
						Usage:     "Show collection statistics",
						ArgsUsage: "<id>",
						Action:    statsCommand,
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Upload files into a collection and process them",
				ArgsUsage: "<file>...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "collection",
						Aliases:  []string{"c"},
						Usage:    "Target collection ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "created-by",
						Usage: "Uploader identity recorded on the documents",
						Value: "cli",
					},
				},
			},
			{
				Name:      "reprocess",
				Usage:     "Re-run ingestion for existing documents",
				ArgsUsage: "<document-id>...",
				Action:    reprocessCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete documents and their chunks",
				ArgsUsage: "<document-id>...",
				Action:    deleteDocumentsCommand,
			},
			{
				Name:      "search",
				Usage:     "Search chunks of active collections",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Search mode (semantic, keyword, hybrid)",
						Value:   "semantic",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: search.DefaultLimit,
					},
					&cli.Uint64SliceFlag{
						Name:  "collection",
						Usage: "Restrict to these collection IDs",
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Minimum semantic similarity (0..1)",
						Value: -1,
					},
					&cli.Float64Flag{
						Name:  "semantic-weight",
						Usage: "Hybrid semantic weight (pair must sum to 1.0)",
					},
					&cli.Float64Flag{
						Name:  "keyword-weight",
						Usage: "Hybrid keyword weight (pair must sum to 1.0)",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number (1-based)",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Results per page",
						Value: search.DefaultPageSize,
					},
					&cli.StringFlag{
						Name:  "export",
						Usage: "Write results to a CSV file instead of stdout",
					},
				},
			},
			{
				Name:   "telemetry",
				Usage:  "Aggregate search telemetry",
				Action: telemetryCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "window",
						Usage: "How far back to aggregate",
						Value: 24 * time.Hour,
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Number of popular queries to show",
						Value: 10,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func openDatabase(c *cli.Context) (*docbase.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	return docbase.NewDatabase(c.String("data"), docbase.WithAIConfig(aiConfig))
}

func createCollectionCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one collection name")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	collection, err := db.NewRegistry().Create(context.Background(), c.Args().First(), c.String("description"), nil)
	if err != nil {
		return err
	}

	fmt.Printf("created collection %d (%s)\n", collection.Id, collection.Name)
	return nil
}

func listCollectionsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	collections, err := db.NewRegistry().List(context.Background(), c.Bool("all"))
	if err != nil {
		return err
	}

	for _, collection := range collections {
		state := "active"
		if !collection.IsActive {
			state = "inactive"
		}
		fmt.Printf("%d\t%s\t%s\tdocuments=%d chunks=%d\n",
			collection.Id, collection.Name, state, collection.DocumentCount, collection.TotalChunks)
	}
	return nil
}

func bulkCollectionCommand(action registry.BulkAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		ids, err := parseIDs(c)
		if err != nil {
			return err
		}

		db, err := openDatabase(c)
		if err != nil {
			return err
		}
		defer db.Close()

		results, err := db.NewRegistry().Bulk(context.Background(), action, ids)
		if err != nil {
			return err
		}
		reportBulk(string(action), func(yield func(core.ID, error)) {
			for _, result := range results {
				yield(result.Id, result.Err)
			}
		})
		return nil
	}
}

func statsCommand(c *cli.Context) error {
	ids, err := parseIDs(c)
	if err != nil {
		return err
	}
	if len(ids) != 1 {
		return fmt.Errorf("expected exactly one collection ID")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.NewRegistry().Stats(context.Background(), ids[0])
	if err != nil {
		return err
	}

	fmt.Printf("documents:  %d\n", stats.DocumentCount)
	fmt.Printf("chunks:     %d\n", stats.TotalChunks)
	fmt.Printf("processing: %d\n", stats.ProcessingDocuments)
	fmt.Printf("failed:     %d\n", stats.FailedDocuments)
	fmt.Printf("total size: %d bytes\n", stats.TotalSize)
	fmt.Printf("updated:    %s\n", stats.LastUpdated.Format(time.RFC3339))
	return nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("expected at least one file")
	}

	uploads := make([]ingestion.Upload, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		uploads = append(uploads, ingestion.Upload{
			Filename: filepath.Base(path),
			Content:  content,
		})
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	collectionID := core.ID(c.Uint64("collection"))
	results, err := pipeline.UploadAndIngest(context.Background(), collectionID, uploads, c.String("created-by"))
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Err != nil {
			fmt.Printf("%s: rejected: %v\n", result.Filename, result.Err)
			continue
		}
		fmt.Printf("%s: queued as document %d\n", result.Filename, result.DocumentId)
	}

	pipeline.Wait()

	for _, progress := range pipeline.Progress() {
		line := fmt.Sprintf("%s: %s", progress.Filename, progress.Stage)
		if progress.Error != "" {
			line += " (" + progress.Error + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func reprocessCommand(c *cli.Context) error {
	return documentBulkCommand(c, "reprocess")
}

func deleteDocumentsCommand(c *cli.Context) error {
	return documentBulkCommand(c, "delete")
}

func documentBulkCommand(c *cli.Context, action string) error {
	ids, err := parseIDs(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	var results []ingestion.Result
	switch action {
	case "reprocess":
		results = pipeline.BulkReprocess(context.Background(), ids)
	case "delete":
		results = pipeline.BulkDelete(context.Background(), ids)
	}
	reportBulk(action, func(yield func(core.ID, error)) {
		for _, result := range results {
			yield(result.Id, result.Err)
		}
	})

	pipeline.Wait()
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("expected a query")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	recorder, err := db.NewTelemetryRecorder()
	if err != nil {
		return err
	}
	defer func() {
		recorder.Wait()
		recorder.Release()
	}()

	searcher, err := db.NewSearcher(search.WithTelemetry(recorder))
	if err != nil {
		return err
	}

	filters := &core.SearchFilters{}
	for _, id := range c.Uint64Slice("collection") {
		filters.CollectionIds = append(filters.CollectionIds, core.ID(id))
	}
	if min := c.Float64("min-similarity"); min >= 0 {
		filters.MinSimilarity = min
		filters.HasMinSimilarity = true
	}

	results, err := searcher.Search(context.Background(), search.Request{
		Query:          strings.Join(c.Args().Slice(), " "),
		Mode:           search.Mode(c.String("mode")),
		Limit:          c.Int("limit"),
		Filters:        filters,
		SemanticWeight: c.Float64("semantic-weight"),
		KeywordWeight:  c.Float64("keyword-weight"),
	})
	if err != nil {
		return err
	}

	if path := c.String("export"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := search.ExportCSV(file, results); err != nil {
			return err
		}
		fmt.Printf("wrote %d results to %s\n", len(results), path)
		return nil
	}

	page := search.Paginate(results, c.Int("page"), c.Int("page-size"))
	fmt.Printf("%d results (page %d/%d)\n", page.TotalCount, page.PageNumber, page.TotalPages)
	for i, result := range page.Results {
		score := result.Rank
		if result.HasSimilarity {
			score = result.SimilarityScore
		}
		fmt.Printf("%d. [%0.3f] %s / %s\n   %s\n",
			(page.PageNumber-1)*page.PageSize+i+1, score,
			result.CollectionName, result.DocumentName, result.Content)
	}
	return nil
}

func telemetryCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	recorder, err := db.NewTelemetryRecorder()
	if err != nil {
		return err
	}
	defer recorder.Release()

	now := time.Now().UTC()
	agg, err := recorder.Aggregate(context.Background(), now.Add(-c.Duration("window")), now, c.Int("top"))
	if err != nil {
		return err
	}

	fmt.Printf("total searches: %d\n", agg.TotalSearches)
	fmt.Printf("avg execution:  %.1f ms\n", agg.AvgExecutionMS)
	for searchType, count := range agg.TypeCounts {
		fmt.Printf("  %s: %d (%.0f%%)\n", searchType, count, agg.TypeShares[searchType]*100)
	}
	for _, popular := range agg.PopularQueries {
		fmt.Printf("  %q: %d\n", popular.Query, popular.Count)
	}
	return nil
}

func parseIDs(c *cli.Context) ([]core.ID, error) {
	if c.NArg() == 0 {
		return nil, fmt.Errorf("expected at least one ID")
	}
	ids := make([]core.ID, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		var id uint64
		if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
			return nil, fmt.Errorf("invalid ID %q", arg)
		}
		ids = append(ids, core.ID(id))
	}
	return ids, nil
}

func reportBulk(action string, results func(yield func(core.ID, error))) {
	results(func(id core.ID, err error) {
		if err != nil {
			fmt.Printf("%s %d: failed: %v\n", action, id, err)
			return
		}
		fmt.Printf("%s %d: ok\n", action, id)
	})
}
