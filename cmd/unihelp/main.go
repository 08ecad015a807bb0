// Command unihelp runs the university help-desk assistant: an HTTP API plus
// maintenance commands over the same pipeline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unihelp/internal/config"
	dombatch "github.com/kailas-cloud/unihelp/internal/domain/batch"
	logpkg "github.com/kailas-cloud/unihelp/internal/logger"
	chiTransport "github.com/kailas-cloud/unihelp/internal/transport/chi"
	batchuc "github.com/kailas-cloud/unihelp/internal/usecase/batch"
	qauc "github.com/kailas-cloud/unihelp/internal/usecase/qa"
	"github.com/kailas-cloud/unihelp/internal/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "unihelp",
		Short:         "Evidence-grounded help-desk assistant",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       version.String(),
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config (default: config/$ENV.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newAskCmd(opts),
		newReindexCmd(opts),
	)
	return root
}

// bootstrap loads .env, the config and the logger.
func bootstrap(opts *rootOptions) (*config.Config, *zap.Logger, error) {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return &cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting unihelp API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline := cfg.Pipeline()
	server := chiTransport.NewServer(a.qa, a.retrieval, a.ingest, a.batch, a.usage, a.health, chiTransport.Options{
		AdminKeys:      cfg.Auth.APIKeys,
		AskPerMinute:   cfg.RateLimit.AskPerMinute,
		AskBurst:       cfg.RateLimit.AskBurst,
		MaxUploadBytes: cfg.Upload.MaxBytes(),
		DefaultTopK:    pipeline.TopK,
		MaxTopK:        pipeline.MaxTopK,
		Floor:          pipeline.SimilarityFloor,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract, chunk, embed and index documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			items := make([]batchuc.Item, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(filepath.Clean(path))
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				items = append(items, batchuc.Item{Name: filepath.Base(path), Data: data})
			}
			results := a.batch.WithMaxBatchSize(len(items)).Ingest(cmd.Context(), items)
			return printBatch(cmd.OutOrStdout(), results)
		},
	}
}

func newReindexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Re-ingest every stored upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.ingest.Reindex(cmd.Context())
			if err != nil && results == nil {
				return fmt.Errorf("reindex: %w", err)
			}
			return printBatch(cmd.OutOrStdout(), results)
		},
	}
}

func printBatch(w io.Writer, results []dombatch.Result) error {
	for _, r := range results {
		if r.Status() == dombatch.StatusOK {
			fmt.Fprintf(w, "ok     %s (%d chunks)\n", r.Name(), r.Chunks())
		} else {
			fmt.Fprintf(w, "error  %s: %v\n", r.Name(), r.Err())
		}
	}
	ok, failed := dombatch.Summarize(results)
	fmt.Fprintf(w, "%d succeeded, %d failed\n", ok, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		language string
		topK     int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(cmd.Context(), cfg, true, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			answer, err := a.qa.Ask(cmd.Context(), qauc.Request{Question: args[0], TopK: topK, Language: language})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(answer)
			}
			fmt.Fprintln(out, answer.Text)
			fmt.Fprintf(out, "\nfound=%t confidence=%.2f outcome=%s\n", answer.Found, answer.Confidence, answer.Outcome)
			for _, s := range answer.Sources {
				page := ""
				if s.Page != nil {
					page = fmt.Sprintf(" p.%d", *s.Page)
				}
				fmt.Fprintf(out, "  - %s%s (%.3f)\n", s.Document, page, s.Similarity)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "lang", "", "answer language: fr, en, ar")
	cmd.Flags().IntVar(&topK, "top-k", 0, "evidence chunks to retrieve (0 = configured default)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the answer as JSON")
	return cmd
}
