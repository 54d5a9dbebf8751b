package edgar

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	responses map[string][]byte
	calls     []string
}

func (g *fakeGetter) Fetch(ctx context.Context, url string) ([]byte, error) {
	g.calls = append(g.calls, url)
	if body, ok := g.responses[url]; ok {
		return body, nil
	}
	return nil, eris.Errorf("fetch %s: http 404", url)
}

func testNow() time.Time {
	return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
}

func newTestClient(get Getter) *Client {
	return NewClient(get, Options{
		CIK:            "0000002488",
		DataBaseURL:    "https://data.test",
		ArchiveBaseURL: "https://archive.test",
		Now:            testNow,
	})
}

const submissionsBody = `{
  "filings": {
    "recent": {
      "form": ["4", "8-K", "4/A", "4", "4"],
      "accessionNumber": ["0001-24-000001", "0001-24-000002", "0001-24-000003", "0001-24-000004", "0001-24-000005"],
      "filingDate": ["2024-03-10", "2024-03-11", "2024-03-01", "2023-01-05", "not-a-date"],
      "acceptanceDateTime": ["2024-03-10T16:31:02.000Z", "2024-03-11T09:00:00.000Z", "2024-03-01T10:15:00.000Z", "2023-01-05T08:00:00.000Z", ""],
      "primaryDocument": ["doc1.xml", "report.htm", "doc3.xml", "doc4.xml", "doc5.xml"]
    }
  }
}`

func TestRecentFilings_FiltersFormAndWindow(t *testing.T) {
	get := &fakeGetter{responses: map[string][]byte{
		"https://data.test/submissions/CIK0000002488.json": []byte(submissionsBody),
	}}

	filings, err := newTestClient(get).RecentFilings(context.Background(), 30)
	require.NoError(t, err)

	// The 8-K, the out-of-window 2023 filing, and the unparseable date are
	// all dropped; index order is preserved.
	require.Len(t, filings, 2)
	assert.Equal(t, "0001-24-000001", filings[0].Accession)
	assert.Equal(t, "4", filings[0].Form)
	assert.Equal(t, "0001-24-000003", filings[1].Accession)
	assert.Equal(t, "4/A", filings[1].Form)
}

func TestRecentFilings_InclusiveLowerBound(t *testing.T) {
	boundary := testNow().AddDate(0, 0, -30).Format("2006-01-02")
	body := fmt.Sprintf(`{"filings":{"recent":{
		"form":["4"],
		"accessionNumber":["0001-24-000009"],
		"filingDate":[%q],
		"acceptanceDateTime":[""],
		"primaryDocument":["doc.xml"]
	}}}`, boundary)

	get := &fakeGetter{responses: map[string][]byte{
		"https://data.test/submissions/CIK0000002488.json": []byte(body),
	}}

	filings, err := newTestClient(get).RecentFilings(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, filings, 1, "filing dated exactly on the boundary stays in scope")
}

func TestRecentFilings_IndexFetchFailureIsFatal(t *testing.T) {
	get := &fakeGetter{responses: map[string][]byte{}}
	_, err := newTestClient(get).RecentFilings(context.Background(), 30)
	require.Error(t, err)
}

func TestRecentFilings_MalformedIndexIsFatal(t *testing.T) {
	get := &fakeGetter{responses: map[string][]byte{
		"https://data.test/submissions/CIK0000002488.json": []byte("not json"),
	}}
	_, err := newTestClient(get).RecentFilings(context.Background(), 30)
	require.Error(t, err)
}

func TestPrimaryDocURL(t *testing.T) {
	c := newTestClient(&fakeGetter{})
	f := Filing{Accession: "0001-24-000001", PrimaryDoc: "doc1.xml"}
	assert.Equal(t,
		"https://archive.test/Archives/edgar/data/2488/000124000001/doc1.xml",
		c.PrimaryDocURL(f),
	)
}

func TestWindowStart_TruncatesToMidnightUTC(t *testing.T) {
	start := WindowStart(testNow(), 30)
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), start)
}
