package edgar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LocateError reports that no strategy could resolve a filing to an
// ownership document. It is non-fatal: callers skip the filing and move on.
type LocateError struct {
	Accession string
	Err       error
}

func (e *LocateError) Error() string {
	return fmt.Sprintf("locate ownership document for %s: %v", e.Accession, e.Err)
}

func (e *LocateError) Unwrap() error {
	return e.Err
}

// ownershipRoot marks a body as containing a Form 4 ownership document.
// Primary documents are sometimes the bare XML and sometimes a full-text
// submission wrapping it, so a substring check is the right level of trust
// here; the parser does the real validation.
var ownershipRoot = []byte("<ownershipDocument")

func looksLikeOwnership(body []byte) bool {
	return bytes.Contains(body, ownershipRoot)
}

// locateStrategy is one way of resolving a filing to ownership-document
// bytes. Strategies are tried in order until one succeeds.
type locateStrategy struct {
	name string
	fn   func(ctx context.Context, f Filing) ([]byte, error)
}

// LocateOwnership resolves the filing to ownership-document XML. Filing
// layouts are not uniform across years and filers: the primary document may
// be the XML itself, a wrapped text submission, or something else entirely,
// in which case the accession directory listing is consulted for .xml
// candidates.
func (c *Client) LocateOwnership(ctx context.Context, f Filing) ([]byte, error) {
	strategies := []locateStrategy{
		{name: "primary_document", fn: c.locatePrimary},
		{name: "directory_listing", fn: c.locateFromDirectory},
	}

	var lastErr error
	for _, s := range strategies {
		body, err := s.fn(ctx, f)
		if err == nil {
			return body, nil
		}
		lastErr = err
		zap.L().Debug("locate strategy failed",
			zap.String("accession", f.Accession),
			zap.String("strategy", s.name),
			zap.Error(err),
		)
	}

	return nil, &LocateError{Accession: f.Accession, Err: lastErr}
}

func (c *Client) locatePrimary(ctx context.Context, f Filing) ([]byte, error) {
	if f.PrimaryDoc == "" {
		return nil, eris.New("filing has no primary document")
	}

	body, err := c.get.Fetch(ctx, c.PrimaryDocURL(f))
	if err != nil {
		return nil, eris.Wrap(err, "fetch primary document")
	}
	if !looksLikeOwnership(body) {
		return nil, eris.Errorf("primary document %s is not an ownership document", f.PrimaryDoc)
	}
	return body, nil
}

// directoryListing mirrors the accession directory index.json document.
type directoryListing struct {
	Directory struct {
		Item []struct {
			Name string `json:"name"`
		} `json:"item"`
	} `json:"directory"`
}

func (c *Client) locateFromDirectory(ctx context.Context, f Filing) ([]byte, error) {
	body, err := c.get.Fetch(ctx, c.archiveURL(f, "index.json"))
	if err != nil {
		return nil, eris.Wrap(err, "fetch directory index")
	}

	var listing directoryListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, eris.Wrap(err, "decode directory index")
	}

	for _, item := range listing.Directory.Item {
		if !strings.HasSuffix(strings.ToLower(item.Name), ".xml") {
			continue
		}
		doc, err := c.get.Fetch(ctx, c.archiveURL(f, item.Name))
		if err != nil {
			zap.L().Debug("directory candidate fetch failed",
				zap.String("accession", f.Accession),
				zap.String("name", item.Name),
				zap.Error(err),
			)
			continue
		}
		if looksLikeOwnership(doc) {
			return doc, nil
		}
	}

	return nil, eris.New("no ownership document among directory .xml files")
}
