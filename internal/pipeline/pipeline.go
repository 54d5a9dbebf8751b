// Package pipeline orchestrates one monitor run: resolve recent filings,
// locate and parse each ownership document with a bounded worker pool, and
// produce a date-ordered transaction list.
package pipeline

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/insider-cli/internal/edgar"
	"github.com/sells-group/insider-cli/internal/form4"
	"github.com/sells-group/insider-cli/internal/model"
)

// Options configures a single run.
type Options struct {
	// Days is the look-back window on filing dates.
	Days int

	// Workers bounds the per-filing locate+parse fan-out. The HTTP rate
	// budget is shared across workers, so this only affects parallelism,
	// not politeness.
	Workers int
}

// Result reports what a run produced.
type Result struct {
	RunID          string
	FilingsScanned int
	FilingsSkipped int
	Transactions   []model.Transaction
}

// Pipeline runs the fetch → locate → parse → sort sequence.
type Pipeline struct {
	client *edgar.Client
	now    func() time.Time
}

// New creates a Pipeline over an EDGAR client.
func New(client *edgar.Client) *Pipeline {
	return &Pipeline{client: client, now: time.Now}
}

// Run executes one monitor run. Only the submissions-index fetch is fatal;
// filings that cannot be located or parsed are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	now := p.now().UTC()

	filings, err := p.client.RecentFilings(ctx, opts.Days)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: recent filings")
	}

	res := &Result{RunID: runID, FilingsScanned: len(filings)}
	if len(filings) == 0 {
		log.Info("no new filings in look-back window", zap.Int("days", opts.Days))
		res.Transactions = []model.Transaction{}
		return res, nil
	}

	parser := form4.NewParser(form4.Window{
		Start: edgar.WindowStart(now, opts.Days),
		End:   now,
	})

	// One result slot per filing: completion order is meaningless, so no
	// shared collection state is needed across workers.
	perFiling := make([][]model.Transaction, len(filings))
	var skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, f := range filings {
		i, f := i, f
		g.Go(func() error {
			txs, err := p.processFiling(gctx, parser, f)
			if err != nil {
				log.Warn("skipping filing",
					zap.String("accession", f.Accession),
					zap.String("filing_date", f.FilingDate),
					zap.Error(err),
				)
				skipped.Add(1)
				return nil
			}
			perFiling[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: filing workers")
	}

	all := []model.Transaction{}
	for _, txs := range perFiling {
		all = append(all, txs...)
	}
	sortTransactions(all)

	res.FilingsSkipped = int(skipped.Load())
	res.Transactions = all

	log.Info("run complete",
		zap.Int("filings_scanned", res.FilingsScanned),
		zap.Int("filings_skipped", res.FilingsSkipped),
		zap.Int("transactions", len(all)),
	)
	return res, nil
}

func (p *Pipeline) processFiling(ctx context.Context, parser *form4.Parser, f edgar.Filing) ([]model.Transaction, error) {
	body, err := p.client.LocateOwnership(ctx, f)
	if err != nil {
		return nil, err
	}

	_, txs, err := parser.Parse(body, form4.Source{
		Accession:  f.Accession,
		FilingDate: f.FilingDate,
		URL:        p.client.PrimaryDocURL(f),
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// sortTransactions orders ascending by transaction date, breaking ties by
// accession and filing date so reruns over the same filings are stable.
func sortTransactions(txs []model.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date < txs[j].Date
		}
		if txs[i].Accession != txs[j].Accession {
			return txs[i].Accession < txs[j].Accession
		}
		return txs[i].FilingDate < txs[j].FilingDate
	})
}
