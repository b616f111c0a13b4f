package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"study-translate/internal/config"
	"study-translate/internal/logging"
	"study-translate/internal/server"
	"study-translate/internal/service"
	"study-translate/internal/storage"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	store    storage.Store
	svc      *service.Service
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "translator",
	Short: "Study Translate - chunked, tiered LLM translation with fallback",
	Long: `Study Translate translates study material through an OpenAI-compatible
chat-completion API:
- Splits long text into chunks without breaking code blocks
- Picks a model tier by input size and falls back to smaller models
- Optionally falls back to LibreTranslate, DeepL or Google Translate
- Caches finished translations in memory or SQLite`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := logging.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
			return err
		}

		// config and models only inspect settings
		if cmd.Name() == "config" || cmd.Name() == "models" {
			return nil
		}

		store, err = openStore(cfg.Cache)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}

		svc, err = service.NewService(cfg, store, logging.Log)
		if err != nil {
			return fmt.Errorf("failed to create service: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if c, ok := store.(interface{ Close() error }); ok {
			c.Close()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server (Gin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg.Server, svc, logging.Log)
		return srv.Run(ctx)
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the model list and size tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := cfg.Selector()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tMODEL")
		for i, m := range sel.Models() {
			fmt.Fprintf(w, "%d\t%s\n", i, m)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "INPUT LENGTH\tFIRST MODEL")
		for _, t := range sel.Tiers() {
			fmt.Fprintf(w, "> %d\t%s\n", t.MinLength, t.Model)
		}
		if len(cfg.Engines.Order) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "FALLBACK ENGINES\t%v\n", cfg.Engines.Order)
		}
		return w.Flush()
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the chat endpoint and fallback engines are reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printChecks(cmd.OutOrStdout(), svc.CheckUpstreams(cmd.Context()))
	},
}

func printChecks(out io.Writer, results []service.CheckResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UPSTREAM\tSTATUS")
	failed := 0
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\n", r.Name, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d upstream checks failed", failed, len(results))
	}
	return nil
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the translation cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, ok := store.(interface {
			Stats(context.Context) (storage.Stats, error)
		})
		if !ok {
			return fmt.Errorf("cache backend %s does not report statistics", cfg.Cache.Backend)
		}
		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "=== Cache Statistics ===")
		fmt.Fprintf(out, "Backend:            %s\n", stats.Backend)
		fmt.Fprintf(out, "Entries:            %d\n", stats.Entries)
		if stats.Backend == config.CacheSQLite {
			fmt.Fprintf(out, "Untranslated (none): %d\n", stats.Degraded)
			fmt.Fprintf(out, "Path:               %s\n", cfg.Cache.Path)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg.Redacted())
	},
}

func openStore(c config.CacheConfig) (storage.Store, error) {
	switch c.Backend {
	case config.CacheSQLite:
		return storage.NewSQLiteStorage(c.Path)
	case config.CacheNone:
		return storage.NopStore{}, nil
	default:
		return storage.NewMemoryStore(c.Size), nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (e.g. debug, info, warn, error)")

	translateCmd.Flags().StringP("file", "f", "", "read the text from a file")
	translateCmd.Flags().StringP("target", "t", "", "target language code (e.g. fr, es, ja)")
	translateCmd.Flags().StringP("source", "s", "auto", "source language code")
	translateCmd.Flags().StringP("context", "c", "general", "content type: chat, summary, notes, quiz or general")

	cacheCmd.AddCommand(cacheStatsCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}
