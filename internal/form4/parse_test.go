package form4

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/insider-cli/internal/model"
)

func testWindow() Window {
	return Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
	}
}

func testSource() Source {
	return Source{
		Accession:  "0001-24-000001",
		FilingDate: "2024-03-10",
		URL:        "https://archive.test/doc1.xml",
	}
}

func row(date, code, shares, price string, footnoteID string) string {
	ref := ""
	if footnoteID != "" {
		ref = fmt.Sprintf(`<footnoteId id="%s"/>`, footnoteID)
	}
	return fmt.Sprintf(`
    <nonDerivativeTransaction>
      <securityTitle><value>Common Stock</value></securityTitle>
      <transactionDate><value>%s</value></transactionDate>
      <transactionCoding><transactionCode>%s</transactionCode>%s</transactionCoding>
      <transactionAmounts>
        <transactionShares><value>%s</value></transactionShares>
        <transactionPricePerShare><value>%s</value></transactionPricePerShare>
        <transactionAcquiredDisposedCode><value>D</value></transactionAcquiredDisposedCode>
      </transactionAmounts>
      <postTransactionAmounts>
        <sharesOwnedFollowingTransaction><value>50,000</value></sharesOwnedFollowingTransaction>
      </postTransactionAmounts>
      <ownershipNature><directOrIndirectOwnership><value>D</value></directOrIndirectOwnership></ownershipNature>
    </nonDerivativeTransaction>`, date, code, ref, shares, price)
}

func document(rows ...string) []byte {
	body := ""
	for _, r := range rows {
		body += r
	}
	return []byte(fmt.Sprintf(`<?xml version="1.0"?>
<ownershipDocument>
  <reportingOwner>
    <reportingOwnerId><rptOwnerName>DOE JANE</rptOwnerName></reportingOwnerId>
    <reportingOwnerRelationship>
      <isDirector>0</isDirector>
      <isOfficer>1</isOfficer>
      <isTenPercentOwner>0</isTenPercentOwner>
      <isOther>0</isOther>
      <officerTitle>Chief Financial Officer</officerTitle>
    </reportingOwnerRelationship>
  </reportingOwner>
  <nonDerivativeTable>%s</nonDerivativeTable>
  <footnotes>
    <footnote id="F1">Sale effected pursuant to a Rule 10b5-1 trading plan adopted on May 1, 2023.</footnote>
    <footnote id="F2">Shares withheld to satisfy tax obligations.</footnote>
  </footnotes>
</ownershipDocument>`, body))
}

func TestParse_ReporterAndTransaction(t *testing.T) {
	p := NewParser(testWindow())
	reporter, txs, err := p.Parse(document(row("2024-03-08", "S", "1,500", "172.25", "F1")), testSource())
	require.NoError(t, err)

	assert.Equal(t, "DOE JANE", reporter.Name)
	assert.Equal(t, "Chief Financial Officer", reporter.Title)
	assert.Equal(t, []string{"Officer"}, reporter.Relationship)

	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, "2024-03-08", tx.Date)
	assert.Equal(t, model.CodeSale, tx.Code)
	assert.Equal(t, 1500.0, tx.Shares)
	assert.Equal(t, 172.25, tx.Price)
	assert.Equal(t, "D", tx.AcquiredDisposed)
	assert.Equal(t, 50000.0, tx.SharesOwnedAfter)
	assert.Equal(t, "D", tx.OwnershipNature)
	assert.Equal(t, "0001-24-000001", tx.Accession)
	assert.Equal(t, "2024-03-10", tx.FilingDate)
	require.Len(t, tx.Footnotes, 1)
	assert.Contains(t, tx.Footnotes[0], "10b5-1")
}

func TestParse_FootnoteInference(t *testing.T) {
	p := NewParser(testWindow())

	_, txs, err := p.Parse(document(
		row("2024-03-08", "S", "100", "170.00", "F1"), // 10b5-1 footnote
		row("2024-03-08", "F", "50", "170.00", "F2"),  // unrelated footnote
		row("2024-03-08", "P", "200", "165.00", ""),   // no footnote
	), testSource())
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.True(t, txs[0].Is10b51)
	assert.False(t, txs[1].Is10b51)
	assert.False(t, txs[2].Is10b51)
	assert.Empty(t, txs[2].Footnotes)
}

func TestParse_SkipsInvalidRowsKeepsRest(t *testing.T) {
	p := NewParser(testWindow())

	_, txs, err := p.Parse(document(
		row("2024-03-08", "S", "abc", "170.00", ""),   // non-numeric shares
		row("2024-03-08", "S", "100", "", ""),         // missing price
		row("2024-03-08", "Q", "100", "170.00", ""),   // unrecognized code
		row("2024-03-08", "S", "-10", "170.00", ""),   // negative shares
		row("2023-06-01", "S", "100", "170.00", ""),   // outside window
		row("2024-03-08", "S", "1000", "170.00", ""),  // valid
	), testSource())
	require.NoError(t, err)

	require.Len(t, txs, 1)
	assert.Equal(t, 1000.0, txs[0].Shares)
}

func TestParse_EmptyDateFallsBackToFilingDate(t *testing.T) {
	p := NewParser(testWindow())
	_, txs, err := p.Parse(document(row("", "S", "100", "170.00", "")), testSource())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "2024-03-10", txs[0].Date)
}

func TestParse_WrappedSubmissionText(t *testing.T) {
	wrapped := append([]byte("<SEC-DOCUMENT>0001-24-000001.txt : 20240310\n<SEC-HEADER>\nACCESSION NUMBER: 0001-24-000001\n</SEC-HEADER>\n<XML>\n"), document(row("2024-03-08", "S", "100", "170.00", ""))...)
	wrapped = append(wrapped, []byte("\n</XML>\n</SEC-DOCUMENT>")...)

	p := NewParser(testWindow())
	_, txs, err := p.Parse(wrapped, testSource())
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

func TestParse_NotAnOwnershipDocument(t *testing.T) {
	p := NewParser(testWindow())
	_, _, err := p.Parse([]byte("<html><body>not a form</body></html>"), testSource())
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "0001-24-000001", pe.Accession)
}

func TestParse_MissingNonDerivativeTable(t *testing.T) {
	p := NewParser(testWindow())
	_, txs, err := p.Parse(document(), testSource())
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestIsTradingPlan(t *testing.T) {
	assert.True(t, isTradingPlan("executed under a Rule 10b5-1 plan"))
	assert.True(t, isTradingPlan("PURSUANT TO A 10B5-1 TRADING PLAN"))
	assert.True(t, isTradingPlan("see 10b5 plan"))
	assert.False(t, isTradingPlan(""))
	assert.False(t, isTradingPlan("shares withheld for taxes"))
}
