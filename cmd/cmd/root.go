/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"ragsum/internal/config"
	"ragsum/internal/core"
	"ragsum/internal/llmclient"
	"ragsum/internal/logger"
	"ragsum/internal/orchestrator"
	"ragsum/internal/store"
	"ragsum/internal/vectorstore"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ragsum",
	Short: "ragsum segments, retrieves, and synthesizes summaries from markdown documents.",
	Long: `ragsum is a BERT-style segment extractor paired with a hybrid
dense/sparse retriever and a content-type-aware synthesizer. Point it at a
markdown file and it returns a cited, coverage-scored summary.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ragsum.yaml)")
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(cacheCmd)
}

// initConfig loads .env and the viper-backed config layer, mirroring the
// teacher's godotenv-then-viper initialization order.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed, using defaults: %v\n", err)
	}
	logger.SetLevel(config.GetLogging().Level)
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [markdown-file]",
	Short: "Summarize a markdown document via the extract/retrieve/synthesize pipeline",
	Long: `Reads a markdown file, extracts salient segments, retrieves the
subset relevant to an optional focus query, and synthesizes a cited summary.

Example:
  ragsum summarize report.md
  ragsum summarize report.md --query "what changed in Q3" --template executive`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		templateName, _ := cmd.Flags().GetString("template")
		backend, _ := cmd.Flags().GetString("backend")
		collection, _ := cmd.Flags().GetString("collection")
		asJSON, _ := cmd.Flags().GetBool("json")

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		ctx := context.Background()

		vs, closeStore, err := openVectorStore(backend)
		if err != nil {
			logger.Warn("vector store unavailable, running without persistence", "error", err.Error())
			vs = nil
		}
		if closeStore != nil {
			defer closeStore()
		}

		embedder, generator := newLLMClients(ctx)

		orch := orchestrator.New(vs, embedder, generator)
		cfg := orchestrator.DefaultConfig()
		cfg.Collection = collection
		cfg.Template = core.PresetTemplate(templateName)

		summary, err := orch.Run(ctx, args[0], string(content), query, cfg)
		if err != nil {
			return fmt.Errorf("summarize failed: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		printSummary(summary)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().StringP("query", "q", "", "optional focus query to bias retrieval")
	summarizeCmd.Flags().StringP("template", "t", "default", "summary template: default, bookreport, executive, brief, oneliner, strict, technical, academic, meeting, bullets")
	summarizeCmd.Flags().String("backend", "memory", "vector store backend: memory, sqlite, pgvector")
	summarizeCmd.Flags().String("collection", "ragsum_default", "vector store collection name")
	summarizeCmd.Flags().Bool("json", false, "emit the full DocumentSummary as JSON")
}

func printSummary(summary *core.DocumentSummary) {
	fmt.Println(summary.ExecutiveSummary)
	if len(summary.TopicSummaries) > 0 {
		fmt.Println("\nTopics:")
		for _, t := range summary.TopicSummaries {
			fmt.Printf("- %s (%s)\n", t.SectionTitle, t.Annotation)
		}
	}
	fmt.Printf("\ncoverage=%.2f citation_rate=%.2f backend=%s elapsed_ms=%d\n",
		summary.Trace.CoverageScore, summary.Trace.CitationRate, summary.Trace.Backend, summary.Trace.ElapsedMS)
}

// openVectorStore constructs the configured core.VectorStore backend.
func openVectorStore(backend string) (core.VectorStore, func(), error) {
	switch backend {
	case "memory", "":
		return vectorstore.NewMemoryStore(), nil, nil
	case "sqlite":
		s, err := store.NewStore(config.Get().App.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "pgvector":
		dsn := config.GetBertRAG().PostgresDSN
		if dsn == "" {
			return nil, nil, fmt.Errorf("bert_rag.postgres_dsn is required for the pgvector backend")
		}
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, nil, err
		}
		pv := vectorstore.NewPgVectorStore(db)
		return pv, func() { _ = pv.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// newLLMClients constructs the shared Embedder/Generator. Any construction
// failure degrades to nil collaborators rather than a fatal error, per
// spec.md §7's EmbedderUnavailable/GeneratorUnavailable semantics.
func newLLMClients(ctx context.Context) (core.Embedder, core.Generator) {
	client, err := llmclient.NewClient(ctx, "")
	if err != nil {
		logger.Warn("gemini client unavailable, retrieval/synthesis will degrade", "error", err.Error())
		return nil, nil
	}
	return client, client
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the segment and summary cache",
	Long:  `Inspect or compact the configured VectorStore's segment and summary cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, _ := cmd.Flags().GetString("backend")
		vs, closeStore, err := openVectorStore(backend)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore()
		}
		stats, err := vs.Stats(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Backend: %s\nDocuments: %d\nSegments: %d\nEmbedding dims: %d\n",
			stats.Backend, stats.TotalDocuments, stats.TotalSegments, stats.EmbeddingDims)
		return nil
	},
}

var cacheVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Compact the vector store",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, _ := cmd.Flags().GetString("backend")
		vs, closeStore, err := openVectorStore(backend)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore()
		}
		return vs.Vacuum(context.Background())
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheVacuumCmd)
	cacheCmd.PersistentFlags().String("backend", "memory", "vector store backend: memory, sqlite, pgvector")
}
