package edgar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFiling = Filing{
	Form:       "4",
	Accession:  "0001-24-000001",
	FilingDate: "2024-03-10",
	PrimaryDoc: "doc1.xml",
}

const ownershipXML = `<?xml version="1.0"?><ownershipDocument></ownershipDocument>`

func TestLocateOwnership_PrimaryDocument(t *testing.T) {
	get := &fakeGetter{responses: map[string][]byte{
		"https://archive.test/Archives/edgar/data/2488/000124000001/doc1.xml": []byte(ownershipXML),
	}}

	body, err := newTestClient(get).LocateOwnership(context.Background(), testFiling)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<ownershipDocument")
	assert.Len(t, get.calls, 1)
}

func TestLocateOwnership_FallsBackToDirectoryListing(t *testing.T) {
	base := "https://archive.test/Archives/edgar/data/2488/000124000001/"
	get := &fakeGetter{responses: map[string][]byte{
		// Primary document is an HTML viewer page, not the XML.
		base + "doc1.xml":   []byte("<html><body>viewer</body></html>"),
		base + "index.json": []byte(`{"directory":{"item":[{"name":"doc1-index.htm"},{"name":"form4.xml"}]}}`),
		base + "form4.xml":  []byte(ownershipXML),
	}}

	body, err := newTestClient(get).LocateOwnership(context.Background(), testFiling)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<ownershipDocument")
}

func TestLocateOwnership_SkipsNonOwnershipXMLCandidates(t *testing.T) {
	base := "https://archive.test/Archives/edgar/data/2488/000124000001/"
	get := &fakeGetter{responses: map[string][]byte{
		base + "index.json": []byte(`{"directory":{"item":[{"name":"other.xml"},{"name":"form4.xml"}]}}`),
		base + "other.xml":  []byte("<somethingElse/>"),
		base + "form4.xml":  []byte(ownershipXML),
	}}

	body, err := newTestClient(get).LocateOwnership(context.Background(), testFiling)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<ownershipDocument")
}

func TestLocateOwnership_AllStrategiesExhausted(t *testing.T) {
	get := &fakeGetter{responses: map[string][]byte{}}

	_, err := newTestClient(get).LocateOwnership(context.Background(), testFiling)
	require.Error(t, err)

	var le *LocateError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "0001-24-000001", le.Accession)
}
