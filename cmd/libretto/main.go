// Package main provides the libretto CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/libretto/cli"
)

var (
	// Global flags
	provider       string
	modelName      string
	searchLimit    int
	scoreThreshold float64
	verbose        bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "libretto",
		Short: "RAG backend for the Physical AI & Humanoid Robotics book",
		Long: `A retrieval-augmented generation CLI grounded in the Physical AI &
Humanoid Robotics book corpus.

Commands cover the full pipeline:
- ingest: parse, chunk, and embed book sources into Qdrant
- search: inspect raw retrieval results
- ask: answer with retrieved context and cited sources
- book: strictly grounded answers with canonical refusals
- simple: plain generation without retrieval`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, cohere, gemini)")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Model name (default from provider configuration)")
	rootCmd.PersistentFlags().IntVar(&searchLimit, "limit", 0, "Maximum passages to retrieve")
	rootCmd.PersistentFlags().Float64Var(&scoreThreshold, "threshold", 0, "Minimum similarity score for retrieved passages")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(simpleCmd())
	rootCmd.AddCommand(bookCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(ingestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func globalOptions() cli.Options {
	return cli.Options{
		Provider:       provider,
		Model:          modelName,
		SearchLimit:    searchLimit,
		ScoreThreshold: scoreThreshold,
		Verbose:        verbose,
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question using retrieved book context",
		Long: `Answer a question with retrieval-augmented generation.

The question is embedded, relevant book passages are retrieved from
Qdrant, and the model answers from that context with cited sources.
When nothing relevant is found the model answers ungrounded and the
response carries a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], globalOptions())
		},
	}
}

func simpleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simple [question]",
		Short: "Answer a question without retrieval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Simple(context.Background(), args[0], globalOptions())
		},
	}
}

func bookCmd() *cobra.Command {
	var mode string
	var selectedText string

	cmd := &cobra.Command{
		Use:   "book [question]",
		Short: "Answer strictly from the book or a selected excerpt",
		Long: `Answer a question grounded exclusively in the book.

Two modes:
- full_book: retrieve from the whole indexed corpus
- selected_text: answer only from the excerpt passed via --text

When the book or the excerpt cannot support an answer, the response is
a canonical refusal sentence instead of a guess.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Book(context.Background(), args[0], mode, selectedText, globalOptions())
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "full_book", "Query mode (full_book, selected_text)")
	cmd.Flags().StringVar(&selectedText, "text", "", "Excerpt to ground the answer in (selected_text mode)")

	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Show raw retrieval results for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Search(context.Background(), args[0], globalOptions())
		},
	}
}

func ingestCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Embed book source files into the vector store",
		Long: `Walk a directory of .md/.mdx book sources, clean and chunk each file,
embed the chunks, and upsert them into Qdrant.

A SQLite catalog tracks content hashes so unchanged files are skipped
on repeat runs. Use --force to re-embed everything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ingest(context.Background(), args[0], force, globalOptions())
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-embed files even when unchanged")

	return cmd
}
