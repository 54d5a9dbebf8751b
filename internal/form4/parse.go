package form4

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/insider-cli/internal/model"
)

// ParseError reports that a document did not match the ownership schema.
// Non-fatal: the filing is skipped and the run continues.
type ParseError struct {
	Accession string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse ownership document for %s: %v", e.Accession, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Source carries filing-level fields copied onto each transaction.
type Source struct {
	Accession  string
	FilingDate string
	URL        string
}

// Window bounds acceptable transaction dates, both ends inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Parser turns ownership documents into transaction records, enforcing the
// look-back window and the recognized transaction-code set per row.
type Parser struct {
	window Window
}

// NewParser creates a Parser validating rows against the given window.
func NewParser(w Window) *Parser {
	return &Parser{window: w}
}

// Parse extracts the reporter and the non-derivative transactions from an
// ownership document. Invalid rows are skipped with a warning; a document
// that does not contain a decodable ownership document at all yields a
// *ParseError.
func (p *Parser) Parse(body []byte, src Source) (model.Reporter, []model.Transaction, error) {
	doc, err := decodeOwnership(body)
	if err != nil {
		return model.Reporter{}, nil, &ParseError{Accession: src.Accession, Err: err}
	}

	reporter := reporterFrom(doc)
	notes := make(map[string]string, len(doc.Footnotes.Notes))
	for _, n := range doc.Footnotes.Notes {
		if n.ID != "" {
			notes[n.ID] = strings.TrimSpace(n.Text)
		}
	}

	var txs []model.Transaction
	for i, row := range doc.NonDerivativeTable.Transactions {
		tx, err := p.buildTransaction(row, src, reporter, notes)
		if err != nil {
			zap.L().Warn("skipping non-derivative row",
				zap.String("accession", src.Accession),
				zap.String("filing_date", src.FilingDate),
				zap.Int("row", i),
				zap.Error(err),
			)
			continue
		}
		txs = append(txs, tx)
	}

	return reporter, txs, nil
}

func (p *Parser) buildTransaction(row nonDerivativeTransaction, src Source, reporter model.Reporter, notes map[string]string) (model.Transaction, error) {
	date := strings.TrimSpace(row.TransactionDate.Value)
	if date == "" {
		date = src.FilingDate
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return model.Transaction{}, eris.Wrapf(err, "transaction date %q", date)
	}
	if !p.window.contains(parsed) {
		return model.Transaction{}, eris.Errorf("transaction date %s outside look-back window", date)
	}

	code := model.Code(strings.TrimSpace(row.Coding.Code))
	if !code.Recognized() {
		return model.Transaction{}, eris.Errorf("unrecognized transaction code %q", row.Coding.Code)
	}

	shares, err := parseAmount(row.Amounts.Shares.Value)
	if err != nil {
		return model.Transaction{}, eris.Wrap(err, "shares")
	}
	price, err := parseAmount(row.Amounts.PricePerShare.Value)
	if err != nil {
		return model.Transaction{}, eris.Wrap(err, "price")
	}
	owned, err := parseAmount(row.PostAmounts.SharesOwned.Value)
	if err != nil {
		return model.Transaction{}, eris.Wrap(err, "shares owned after")
	}

	footTexts := []string{}
	for _, id := range row.footnoteRefs() {
		if text, ok := notes[id]; ok && text != "" {
			footTexts = append(footTexts, text)
		}
	}

	security := strings.TrimSpace(row.SecurityTitle.Value)
	if security == "" {
		security = "Common Stock"
	}

	return model.Transaction{
		Accession:        src.Accession,
		FilingDate:       src.FilingDate,
		FilingURL:        src.URL,
		Date:             date,
		SecurityTitle:    security,
		Code:             code,
		Shares:           shares,
		Price:            price,
		AcquiredDisposed: strings.TrimSpace(row.Amounts.AcquiredDisposed.Value),
		SharesOwnedAfter: owned,
		OwnershipNature:  strings.TrimSpace(row.Ownership.DirectOrIndirect.Value),
		Footnotes:        footTexts,
		Is10b51:          isTradingPlan(strings.Join(footTexts, " | ")),
		Reporter:         reporter,
	}, nil
}

func reporterFrom(doc *ownershipDocument) model.Reporter {
	r := model.Reporter{Name: "Unknown", Relationship: []string{}}
	if len(doc.ReportingOwners) == 0 {
		return r
	}

	owner := doc.ReportingOwners[0]
	if name := strings.TrimSpace(owner.ID.Name); name != "" {
		r.Name = name
	}
	r.Title = strings.TrimSpace(owner.Relationship.OfficerTitle)

	if boolish(owner.Relationship.IsDirector) {
		r.Relationship = append(r.Relationship, "Director")
	}
	if boolish(owner.Relationship.IsOfficer) {
		r.Relationship = append(r.Relationship, "Officer")
	}
	if boolish(owner.Relationship.IsTenPercentOwner) {
		r.Relationship = append(r.Relationship, "10% Owner")
	}
	if boolish(owner.Relationship.IsOther) {
		r.Relationship = append(r.Relationship, "Other")
	}
	return r
}

func boolish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// parseAmount normalizes an EDGAR numeric string ("1,234.5678") to a
// non-negative float. Missing, non-numeric, and negative values are errors;
// the caller skips the row.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, eris.New("missing numeric value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, eris.Wrapf(err, "non-numeric value %q", s)
	}
	if d.IsNegative() {
		return 0, eris.Errorf("negative value %q", s)
	}
	return d.InexactFloat64(), nil
}

// decodeOwnership extracts and decodes the ownershipDocument element.
// Primary documents may be full-text submissions with SGML around the XML,
// so the element is sliced out before decoding.
func decodeOwnership(body []byte) (*ownershipDocument, error) {
	start := bytes.Index(body, []byte("<ownershipDocument"))
	if start < 0 {
		return nil, eris.New("no ownershipDocument element")
	}
	end := bytes.Index(body, []byte("</ownershipDocument>"))
	if end < 0 || end < start {
		return nil, eris.New("unterminated ownershipDocument element")
	}
	fragment := body[start : end+len("</ownershipDocument>")]

	dec := xml.NewDecoder(bytes.NewReader(fragment))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var doc ownershipDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "decode ownership document")
	}
	return &doc, nil
}
