// File: cmd/scrape.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsanko9k/inkclip/internal/browser"
	"github.com/tsanko9k/inkclip/internal/extract"
	"github.com/tsanko9k/inkclip/internal/observability"
	"github.com/tsanko9k/inkclip/internal/scrape"
	"github.com/tsanko9k/inkclip/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// articleOutput is the per-URL record written to the JSON report. Exactly one
// of Article or Error is populated.
type articleOutput struct {
	URL     string          `json:"url"`
	Article *extract.Result `json:"article,omitempty"`
	Error   *scrapeError    `json:"error,omitempty"`
}

type scrapeError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// newScrapeCmd creates and configures the `scrape` command.
func newScrapeCmd() *cobra.Command {
	scrapeCmd := &cobra.Command{
		Use:   "scrape [urls...]",
		Short: "Extracts article text and images from one or more Medium URLs",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so command-line values override config/env with the
			// right precedence.
			if err := viper.BindPFlag("scrape.concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			if err := viper.BindPFlag("debug.enabled", cmd.Flags().Lookup("debug")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := appConfig

			cfg.Scrape.Concurrency = viper.GetInt("scrape.concurrency")
			cfg.Debug.Enabled = viper.GetBool("debug.enabled")
			if cfg.Debug.Enabled {
				// Debug runs show the browser so login flows can be watched.
				cfg.Browser.Headless = false
			}

			logger.Info("Starting scrape batch",
				zap.Int("urls", len(args)),
				zap.Int("concurrency", cfg.Scrape.Concurrency),
				zap.Bool("debug", cfg.Debug.Enabled),
			)

			mgr, err := browser.NewManager(ctx, logger, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize browser manager: %w", err)
			}
			defer shutdownBrowser(mgr, logger)

			store := session.NewStore(cfg.Session.File, logger)
			orch := scrape.New(cfg, logger, mgr, store)

			outputs := make([]articleOutput, len(args))
			var mu sync.Mutex

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(cfg.Scrape.Concurrency)
			for i, rawURL := range args {
				g.Go(func() error {
					res, err := orch.Scrape(gctx, rawURL)
					out := articleOutput{URL: rawURL, Article: res}
					if err != nil {
						// Per-URL failures are reported, not fatal to the
						// batch; only context cancellation aborts the group.
						var failure *scrape.Failure
						if errors.As(err, &failure) {
							out.Error = &scrapeError{Kind: failure.Kind.String(), Message: failure.Message}
						} else {
							out.Error = &scrapeError{Kind: "unexpected_error", Message: err.Error()}
						}
						logger.Warn("Scrape failed",
							zap.String("url", rawURL),
							zap.String("kind", out.Error.Kind),
							zap.Error(err),
						)
						if gctx.Err() != nil {
							return gctx.Err()
						}
					}
					mu.Lock()
					outputs[i] = out
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Scrape batch aborted")
					return fmt.Errorf("scrape aborted by user signal")
				}
				return err
			}

			outputPath, _ := cmd.Flags().GetString("output")
			if err := writeOutputs(outputs, outputPath); err != nil {
				return err
			}

			failed := 0
			for _, out := range outputs {
				if out.Error != nil {
					failed++
				}
			}
			logger.Info("Scrape batch completed",
				zap.Int("succeeded", len(outputs)-failed),
				zap.Int("failed", failed),
			)
			if failed > 0 {
				return fmt.Errorf("%d of %d URLs failed", failed, len(outputs))
			}
			return nil
		},
	}

	scrapeCmd.Flags().StringP("output", "o", "", "Output file path for the JSON report. If unset, writes to stdout.")
	scrapeCmd.Flags().IntP("concurrency", "j", 1, "Number of URLs scraped concurrently. (Overrides config/env)")
	scrapeCmd.Flags().Bool("debug", false, "Enable step tracing, screenshots, and a visible browser window.")

	return scrapeCmd
}

// writeOutputs renders the batch report as indented JSON to path or stdout.
func writeOutputs(outputs []articleOutput, path string) error {
	data, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// shutdownBrowser closes the shared browser with its own deadline so a hung
// tab cannot stall process exit.
func shutdownBrowser(mgr *browser.Manager, logger *zap.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Error during browser manager shutdown", zap.Error(err))
	}
}
