package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/insider-cli/internal/edgar"
	"github.com/sells-group/insider-cli/internal/fetcher"
	"github.com/sells-group/insider-cli/internal/output"
	"github.com/sells-group/insider-cli/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and parse recent Form 4 filings",
	Long: `Fetch the issuer's recent Form 4 / 4-A filings within the look-back
window, parse non-derivative insider transactions, and write JSON output.

--output writes a single consolidated file; --output-dir writes index.json
plus one <year>.json shard per year. The two are mutually exclusive; with
neither flag the configured default destination is used.
Filings that fail to locate or parse are logged and skipped; only an index
fetch failure or a write failure exits non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "fetch"))

		days, _ := cmd.Flags().GetInt("days")
		workers, _ := cmd.Flags().GetInt("workers")
		outPath, _ := cmd.Flags().GetString("output")
		outDir, _ := cmd.Flags().GetString("output-dir")
		if days <= 0 {
			days = cfg.Fetch.Days
		}
		if workers <= 0 {
			workers = cfg.Fetch.Workers
		}
		if outPath == "" && outDir == "" {
			outPath = cfg.Output.Path
			outDir = cfg.Output.Dir
		}

		httpClient := fetcher.New(fetcher.Options{
			UserAgent:   cfg.SEC.UserAgent,
			Timeout:     time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxAttempts: cfg.Fetch.MaxAttempts,
			RateLimiters: map[string]*rate.Limiter{
				"data.sec.gov": rate.NewLimiter(rate.Limit(cfg.Fetch.RatePerSecond), cfg.Fetch.RateBurst),
				"www.sec.gov":  rate.NewLimiter(rate.Limit(cfg.Fetch.RatePerSecond), cfg.Fetch.RateBurst),
			},
		})

		client := edgar.NewClient(httpClient, edgar.Options{
			CIK:            cfg.SEC.CIK,
			DataBaseURL:    cfg.SEC.DataBaseURL,
			ArchiveBaseURL: cfg.SEC.ArchiveBaseURL,
		})

		log.Info("starting run",
			zap.String("cik", cfg.SEC.CIK),
			zap.Int("days", days),
			zap.Int("workers", workers),
		)

		res, err := pipeline.New(client).Run(ctx, pipeline.Options{
			Days:    days,
			Workers: workers,
		})
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		writer := output.NewWriter(output.Metadata{
			Company:        cfg.SEC.Company,
			CIK:            cfg.SEC.CIK,
			GeneratedAt:    time.Now().UTC(),
			LookbackDays:   days,
			RunID:          res.RunID,
			FilingsScanned: res.FilingsScanned,
		})

		if outDir != "" {
			if err := writer.WriteSharded(outDir, res.Transactions); err != nil {
				return eris.Wrap(err, "fetch: write shards")
			}
			fmt.Printf("Saved %d transactions from %d filings -> %s/\n",
				len(res.Transactions), res.FilingsScanned, outDir)
			return nil
		}

		if err := writer.WriteSingle(outPath, res.Transactions); err != nil {
			return eris.Wrap(err, "fetch: write output")
		}
		fmt.Printf("Saved %d transactions from %d filings -> %s\n",
			len(res.Transactions), res.FilingsScanned, outPath)
		return nil
	},
}

func init() {
	fetchCmd.Flags().Int("days", 0, "look back N days in the filing index (default from config)")
	fetchCmd.Flags().Int("workers", 0, "bounded per-filing worker pool size (default from config)")
	fetchCmd.Flags().String("output", "", "write one consolidated JSON file to this path")
	fetchCmd.Flags().String("output-dir", "", "write index.json and per-year shards into this directory")
	fetchCmd.MarkFlagsMutuallyExclusive("output", "output-dir")
	rootCmd.AddCommand(fetchCmd)
}
