package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/insider-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "insider-cli",
	Short: "Form 4 insider-transaction monitor",
	Long:  "Fetches SEC Form 4 / 4-A filings for the configured issuer, parses non-derivative insider transactions, and writes dashboard-ready JSON.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if !cfg.SEC.ContactableUserAgent() {
			zap.L().Warn("SEC_USER_AGENT does not look contactable; set a value with contact info per SEC guidance")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
