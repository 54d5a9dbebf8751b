// Package output persists pipeline results as JSON documents: one
// consolidated file, or a directory of year shards plus an index. All
// writes are temp-file-then-rename so a dashboard reading concurrently
// never observes a partial document.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insider-cli/internal/model"
)

// WriteError reports a failed output write. Fatal: no output is better
// than silently dropped output.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Metadata describes the run that produced a document.
type Metadata struct {
	Company        string    `json:"company"`
	CIK            string    `json:"cik"`
	GeneratedAt    time.Time `json:"generated_at"`
	LookbackDays   int       `json:"lookback_days"`
	RunID          string    `json:"run_id"`
	FilingsScanned int       `json:"filings_scanned"`
}

// Document is the consolidated output shape; year shards use the same
// shape scoped to one calendar year.
type Document struct {
	Metadata
	Summary      model.Summary       `json:"summary"`
	Transactions []model.Transaction `json:"transactions"`
}

// Index lists the years for which a shard file exists. Rewritten in full
// on every sharded run.
type Index struct {
	Years        []string  `json:"years"`
	GeneratedAt  time.Time `json:"generated_at"`
	LookbackDays int       `json:"lookback_days"`
	RunID        string    `json:"run_id"`
}

// Writer persists transactions under a fixed run metadata.
type Writer struct {
	meta Metadata
}

// NewWriter creates a Writer stamping documents with meta.
func NewWriter(meta Metadata) *Writer {
	return &Writer{meta: meta}
}

// WriteSingle writes one consolidated document to path, fully replacing
// any prior content. Transactions are expected sorted ascending by date.
func (w *Writer) WriteSingle(path string, txs []model.Transaction) error {
	doc := Document{
		Metadata:     w.meta,
		Summary:      model.Summarize(txs),
		Transactions: nonNil(txs),
	}
	if err := writeJSON(path, doc); err != nil {
		return err
	}
	zap.L().Info("wrote consolidated output",
		zap.String("path", path),
		zap.Int("transactions", len(txs)),
	)
	return nil
}

var shardName = regexp.MustCompile(`^(\d{4})\.json$`)

// WriteSharded groups transactions by calendar year, rewrites the shard
// file for every year present in the batch, and then rewrites index.json
// from the set of shard files on disk. Years untouched by this batch keep
// their existing shards; nothing is deleted or truncated.
func (w *Writer) WriteSharded(dir string, txs []model.Transaction) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: dir, Err: err}
	}

	byYear := make(map[string][]model.Transaction)
	for _, t := range txs {
		byYear[t.Year()] = append(byYear[t.Year()], t)
	}

	for year, yearTxs := range byYear {
		doc := Document{
			Metadata:     w.meta,
			Summary:      model.Summarize(yearTxs),
			Transactions: yearTxs,
		}
		path := filepath.Join(dir, year+".json")
		if err := writeJSON(path, doc); err != nil {
			return err
		}
		zap.L().Info("wrote year shard",
			zap.String("path", path),
			zap.Int("transactions", len(yearTxs)),
		)
	}

	years, err := shardYears(dir)
	if err != nil {
		return err
	}

	idx := Index{
		Years:        years,
		GeneratedAt:  w.meta.GeneratedAt,
		LookbackDays: w.meta.LookbackDays,
		RunID:        w.meta.RunID,
	}
	indexPath := filepath.Join(dir, "index.json")
	if err := writeJSON(indexPath, idx); err != nil {
		return err
	}
	zap.L().Info("wrote shard index",
		zap.String("path", indexPath),
		zap.Strings("years", years),
	)
	return nil
}

// shardYears scans dir for shard files. The files on disk, not the previous
// index, are the authoritative record of which years exist.
func shardYears(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &WriteError{Path: dir, Err: err}
	}
	var years []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m := shardName.FindStringSubmatch(e.Name()); m != nil {
			years = append(years, m[1])
		}
	}
	sort.Strings(years)
	return years, nil
}

// writeJSON marshals v to a temp file in the target directory and renames
// it into place.
func writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".insider-*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: eris.Wrap(err, "create temp file")}
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: eris.Wrap(err, "encode json")}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: eris.Wrap(err, "close temp file")}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: eris.Wrap(err, "chmod temp file")}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Err: eris.Wrap(err, "rename into place")}
	}
	return nil
}

func nonNil(txs []model.Transaction) []model.Transaction {
	if txs == nil {
		return []model.Transaction{}
	}
	return txs
}
