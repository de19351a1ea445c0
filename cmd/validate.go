// File: cmd/validate.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsanko9k/inkclip/internal/browser"
	"github.com/tsanko9k/inkclip/internal/observability"
	"github.com/tsanko9k/inkclip/internal/session"
)

// newValidateCmd creates the `validate` command, which checks whether the
// persisted session still authenticates against Medium.
func newValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Checks whether the saved Medium session is still logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := appConfig

			mgr, err := browser.NewManager(ctx, logger, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize browser manager: %w", err)
			}
			defer shutdownBrowser(mgr, logger)

			store := session.NewStore(cfg.Session.File, logger)
			validator := session.NewValidator(cfg, logger)

			report := validator.CheckSessionValid(ctx, store, mgr)

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Fprintln(os.Stdout, string(data))

			if !report.Valid {
				logger.Warn("Session is not authenticated", zap.String("reason", report.Reason))
				return fmt.Errorf("session invalid: %s", report.Reason)
			}
			logger.Info("Session is authenticated")
			return nil
		},
	}
	return validateCmd
}
