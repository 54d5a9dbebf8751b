// Package form4 parses SEC ownership documents (Form 4 / 4-A XML) into
// transaction records. Only the non-derivative table is read; derivative
// rows are out of scope.
package form4

// ownershipDocument mirrors the subset of the Form 4 XML schema this
// pipeline reads.
type ownershipDocument struct {
	ReportingOwners    []reportingOwner   `xml:"reportingOwner"`
	NonDerivativeTable nonDerivativeTable `xml:"nonDerivativeTable"`
	Footnotes          footnotes          `xml:"footnotes"`
}

type reportingOwner struct {
	ID struct {
		Name string `xml:"rptOwnerName"`
	} `xml:"reportingOwnerId"`
	Relationship ownerRelationship `xml:"reportingOwnerRelationship"`
}

type ownerRelationship struct {
	IsDirector        string `xml:"isDirector"`
	IsOfficer         string `xml:"isOfficer"`
	IsTenPercentOwner string `xml:"isTenPercentOwner"`
	IsOther           string `xml:"isOther"`
	OfficerTitle      string `xml:"officerTitle"`
}

type footnotes struct {
	Notes []footnote `xml:"footnote"`
}

type footnote struct {
	ID   string `xml:"id,attr"`
	Text string `xml:",chardata"`
}

type nonDerivativeTable struct {
	Transactions []nonDerivativeTransaction `xml:"nonDerivativeTransaction"`
}

type nonDerivativeTransaction struct {
	SecurityTitle   fieldValue `xml:"securityTitle"`
	TransactionDate fieldValue `xml:"transactionDate"`
	Coding          struct {
		Code        string       `xml:"transactionCode"`
		FootnoteIDs []footnoteID `xml:"footnoteId"`
	} `xml:"transactionCoding"`
	Amounts struct {
		Shares           fieldValue `xml:"transactionShares"`
		PricePerShare    fieldValue `xml:"transactionPricePerShare"`
		AcquiredDisposed fieldValue `xml:"transactionAcquiredDisposedCode"`
	} `xml:"transactionAmounts"`
	PostAmounts struct {
		SharesOwned fieldValue `xml:"sharesOwnedFollowingTransaction"`
	} `xml:"postTransactionAmounts"`
	Ownership struct {
		DirectOrIndirect fieldValue `xml:"directOrIndirectOwnership"`
	} `xml:"ownershipNature"`
}

// fieldValue is the EDGAR value-plus-footnote-references element shape.
type fieldValue struct {
	Value       string       `xml:"value"`
	FootnoteIDs []footnoteID `xml:"footnoteId"`
}

type footnoteID struct {
	ID string `xml:"id,attr"`
}

// footnoteRefs collects every footnote id attached anywhere on the row.
func (tx nonDerivativeTransaction) footnoteRefs() []string {
	var ids []string
	add := func(refs []footnoteID) {
		for _, r := range refs {
			if r.ID != "" {
				ids = append(ids, r.ID)
			}
		}
	}
	add(tx.SecurityTitle.FootnoteIDs)
	add(tx.TransactionDate.FootnoteIDs)
	add(tx.Coding.FootnoteIDs)
	add(tx.Amounts.Shares.FootnoteIDs)
	add(tx.Amounts.PricePerShare.FootnoteIDs)
	add(tx.Amounts.AcquiredDisposed.FootnoteIDs)
	add(tx.PostAmounts.SharesOwned.FootnoteIDs)
	add(tx.Ownership.DirectOrIndirect.FootnoteIDs)
	return ids
}
