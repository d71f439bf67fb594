// Command execution for CLI commands.
//
// Information Hiding:
// - Provider registry and vector store setup hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/richinex/libretto/book"
	"github.com/richinex/libretto/config"
	"github.com/richinex/libretto/ingest"
	"github.com/richinex/libretto/llm"
	"github.com/richinex/libretto/model"
	"github.com/richinex/libretto/rag"
	"github.com/richinex/libretto/retrieval"
	"github.com/richinex/libretto/storage"
	"github.com/richinex/libretto/vectorstore"
)

// Options holds CLI execution options.
type Options struct {
	Provider       string
	Model          string
	SearchLimit    int
	ScoreThreshold float64
	Verbose        bool
}

// app bundles the wired components behind the CLI commands.
type app struct {
	settings config.Settings
	registry *llm.Registry
	store    vectorstore.Store
	engine   *retrieval.Engine
	defaults rag.Defaults
	log      *slog.Logger
}

// buildApp creates settings, the provider registry, and the Qdrant-backed
// retrieval engine. Every provider with an API key in the environment is
// registered; Cohere additionally serves as the embedder.
func buildApp(opts Options) (*app, error) {
	if opts.Provider == "" {
		return nil, fmt.Errorf("--provider is required for this command")
	}

	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		settings.LLM.Model = opts.Model
	}
	if opts.SearchLimit > 0 {
		settings.Retrieval.SearchLimit = opts.SearchLimit
	}
	if opts.ScoreThreshold > 0 {
		settings.Retrieval.ScoreThreshold = opts.ScoreThreshold
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	registry := llm.NewRegistry(nil, log)
	for _, name := range config.SupportedProviders() {
		apiKey, err := config.APIKeyFor(name)
		if err != nil {
			log.Debug("provider not configured", "provider", name)
			continue
		}
		switch name {
		case "openai":
			registry.Register(llm.NewOpenAIProvider(apiKey))
		case "anthropic":
			registry.Register(llm.NewAnthropicProvider(apiKey))
		case "gemini":
			registry.Register(llm.NewGeminiProvider(apiKey))
		case "cohere":
			cohere := llm.NewCohereProvider(apiKey, settings.Embedding.Model, settings.LLM.Timeout)
			registry.Register(cohere)
			registry.SetEmbedder(cohere)
		}
	}

	if !registry.ValidateModel(settings.LLM.Provider, settings.LLM.Model) {
		return nil, fmt.Errorf("%w: %s/%s", llm.ErrInvalidModelSelection, settings.LLM.Provider, settings.LLM.Model)
	}

	store := vectorstore.NewQdrant(vectorstore.QdrantConfig{
		URL:        settings.Qdrant.URL,
		APIKey:     settings.Qdrant.APIKey,
		Collection: settings.Qdrant.Collection,
		Timeout:    settings.Qdrant.Timeout,
		PreferGRPC: settings.Qdrant.PreferGRPC,
	})

	return &app{
		settings: settings,
		registry: registry,
		store:    store,
		engine:   retrieval.NewEngine(registry, store, log),
		defaults: rag.Defaults{
			Provider:       settings.LLM.Provider,
			Model:          settings.LLM.Model,
			Temperature:    settings.LLM.Temperature,
			MaxTokens:      settings.LLM.MaxTokens,
			SearchLimit:    settings.Retrieval.SearchLimit,
			ScoreThreshold: settings.Retrieval.ScoreThreshold,
			Timeout:        settings.LLM.Timeout,
		},
		log: log,
	}, nil
}

// Ask answers a question grounded in retrieved book content.
func Ask(ctx context.Context, question string, opts Options) error {
	a, err := buildApp(opts)
	if err != nil {
		return err
	}

	pipeline := rag.NewPipeline(a.registry, a.engine, a.defaults, a.log)
	resp, err := pipeline.Query(ctx, rag.Request{Query: question})
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", resp.Text)
	if resp.Warning != "" {
		fmt.Printf("\nWarning: %s\n", resp.Warning)
	}
	printSources(resp.Sources)
	printUsage(resp.Provider, resp.ModelUsed, resp.Usage, opts.Verbose)
	return nil
}

// Simple answers a question without retrieval.
func Simple(ctx context.Context, question string, opts Options) error {
	a, err := buildApp(opts)
	if err != nil {
		return err
	}

	pipeline := rag.NewPipeline(a.registry, a.engine, a.defaults, a.log)
	result, err := pipeline.SimpleQuery(ctx, rag.Request{Query: question})
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", result.Text)
	printUsage(result.Provider, result.ModelUsed, result.Usage, opts.Verbose)
	return nil
}

// Book answers a question strictly grounded in the book corpus or a
// selected excerpt.
func Book(ctx context.Context, question, mode, selectedText string, opts Options) error {
	a, err := buildApp(opts)
	if err != nil {
		return err
	}

	service := book.NewService(a.registry, a.engine, a.defaults, a.log)
	resp, err := service.Query(ctx, book.Request{
		Query:        question,
		Mode:         model.QueryMode(mode),
		SelectedText: selectedText,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", resp.Text)
	printSources(resp.Sources)
	printUsage(resp.Provider, resp.ModelUsed, resp.Usage, opts.Verbose)
	return nil
}

// Search prints the raw retrieval results for a query.
func Search(ctx context.Context, query string, opts Options) error {
	a, err := buildApp(opts)
	if err != nil {
		return err
	}

	passages := a.engine.Search(ctx, query,
		a.settings.Retrieval.SearchLimit, a.settings.Retrieval.ScoreThreshold)
	if len(passages) == 0 {
		fmt.Println("No matching passages found.")
		return nil
	}

	for i, p := range passages {
		title, _ := p.Metadata["title"].(string)
		if title == "" {
			title = "Unknown"
		}
		fmt.Printf("%d. [%.3f] %s\n   %s\n", i+1, p.Score, title, model.Preview(p.Content))
	}
	return nil
}

// Ingest embeds the book source files under dir into the vector store.
func Ingest(ctx context.Context, dir string, force bool, opts Options) error {
	a, err := buildApp(opts)
	if err != nil {
		return err
	}

	catalog, err := storage.OpenCatalog(a.settings.Catalog.Path)
	if err != nil {
		return err
	}
	defer catalog.Close()

	ingester := ingest.NewIngester(a.registry, a.store, catalog, ingest.Options{
		VectorSize: a.settings.Embedding.VectorSize,
		Force:      force,
	}, a.log)

	stats, err := ingester.IngestDir(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d files (%d chunks), skipped %d unchanged.\n",
		stats.Files, stats.Chunks, stats.Skipped)
	return nil
}

func printSources(sources []model.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, src := range sources {
		title, _ := src.Metadata["title"].(string)
		if title == "" {
			title = src.ID
		}
		fmt.Printf("  %d. [%.3f] %s\n", i+1, src.Score, title)
	}
}

func printUsage(provider, modelUsed string, usage llm.TokenUsage, verbose bool) {
	if !verbose {
		return
	}
	fmt.Printf("\n(%s/%s, %d prompt + %d completion = %d tokens)\n",
		provider, modelUsed, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}
