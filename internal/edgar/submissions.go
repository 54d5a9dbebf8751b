// Package edgar resolves an issuer's Form 4 filings against the SEC EDGAR
// endpoints: the submissions index on data.sec.gov and the filing archives
// on www.sec.gov.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Getter is the subset of the HTTP fetcher the EDGAR client needs.
type Getter interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Filing is one row of the issuer's recent-filings index. Immutable once
// built; consumed by the locator.
type Filing struct {
	Form       string
	Accession  string
	FilingDate string
	AcceptedAt string
	PrimaryDoc string
}

// AccessionCompact returns the accession number without dashes, the form
// used in archive URLs.
func (f Filing) AccessionCompact() string {
	return strings.ReplaceAll(f.Accession, "-", "")
}

// Options configures the EDGAR client. Base URLs are overridable for tests.
type Options struct {
	CIK            string
	DataBaseURL    string
	ArchiveBaseURL string
	Now            func() time.Time
}

// Client fetches and resolves issuer filings.
type Client struct {
	get         Getter
	cik         string
	dataBase    string
	archiveBase string
	now         func() time.Time
}

// NewClient creates an EDGAR client for a single issuer CIK.
func NewClient(get Getter, opts Options) *Client {
	if opts.DataBaseURL == "" {
		opts.DataBaseURL = "https://data.sec.gov"
	}
	if opts.ArchiveBaseURL == "" {
		opts.ArchiveBaseURL = "https://www.sec.gov"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		get:         get,
		cik:         opts.CIK,
		dataBase:    strings.TrimSuffix(opts.DataBaseURL, "/"),
		archiveBase: strings.TrimSuffix(opts.ArchiveBaseURL, "/"),
		now:         opts.Now,
	}
}

// submissionsIndex mirrors the columnar filings.recent document.
type submissionsIndex struct {
	Filings struct {
		Recent struct {
			Form               []string `json:"form"`
			AccessionNumber    []string `json:"accessionNumber"`
			FilingDate         []string `json:"filingDate"`
			AcceptanceDateTime []string `json:"acceptanceDateTime"`
			PrimaryDocument    []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// WindowStart returns the inclusive lower bound of the look-back window:
// midnight UTC, days before now. A filing dated exactly on the boundary is
// still in scope, which makes the re-processing boundary across daily runs
// overlap rather than gap.
func WindowStart(now time.Time, days int) time.Time {
	t := now.UTC().AddDate(0, 0, -days)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecentFilings returns the issuer's Form 4 and 4/A filings whose filing
// date falls within days of now, in the order the index presents them.
// Failure here is fatal to the run: without the index there is nothing to
// process.
func (c *Client) RecentFilings(ctx context.Context, days int) ([]Filing, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataBase, c.cik)
	body, err := c.get.Fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "edgar: fetch submissions index")
	}

	var idx submissionsIndex
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, eris.Wrap(err, "edgar: decode submissions index")
	}

	recent := idx.Filings.Recent
	cutoff := WindowStart(c.now(), days)

	var out []Filing
	for i, form := range recent.Form {
		if form != "4" && form != "4/A" {
			continue
		}
		if i >= len(recent.AccessionNumber) || i >= len(recent.FilingDate) || i >= len(recent.PrimaryDocument) {
			continue
		}

		fd, err := time.Parse("2006-01-02", recent.FilingDate[i])
		if err != nil {
			zap.L().Warn("skipping filing with unparseable date",
				zap.String("accession", recent.AccessionNumber[i]),
				zap.String("filing_date", recent.FilingDate[i]),
			)
			continue
		}
		if fd.Before(cutoff) {
			continue
		}

		accepted := ""
		if i < len(recent.AcceptanceDateTime) {
			accepted = recent.AcceptanceDateTime[i]
		}

		out = append(out, Filing{
			Form:       form,
			Accession:  recent.AccessionNumber[i],
			FilingDate: recent.FilingDate[i],
			AcceptedAt: accepted,
			PrimaryDoc: recent.PrimaryDocument[i],
		})
	}

	zap.L().Info("resolved recent filings",
		zap.String("cik", c.cik),
		zap.Int("days", days),
		zap.Int("filings", len(out)),
	)
	return out, nil
}

// archiveURL builds the URL of a file inside the filing's archive directory.
func (c *Client) archiveURL(f Filing, name string) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s/%s",
		c.archiveBase, strings.TrimLeft(c.cik, "0"), f.AccessionCompact(), name)
}

// PrimaryDocURL returns the URL of the filing's primary document.
func (c *Client) PrimaryDocURL(f Filing) string {
	return c.archiveURL(f, f.PrimaryDoc)
}
