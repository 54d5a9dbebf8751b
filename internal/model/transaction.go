package model

// Code is a Form 4 transaction code (Table I of the ownership document).
type Code string

// Transaction codes from the SEC Form 4 code table.
const (
	CodePurchase    Code = "P" // open-market or private purchase
	CodeSale        Code = "S" // open-market or private sale
	CodeExercise    Code = "M" // exercise or conversion of derivative security
	CodeTaxWithhold Code = "F" // payment of exercise price or tax by delivering shares
	CodeGrant       Code = "A" // grant, award, or other acquisition
	CodeDisposition Code = "D" // disposition to the issuer
	CodeGift        Code = "G" // bona fide gift
)

// recognizedCodes is the full Form 4 transaction code table. Codes outside
// this set are rejected at parse time, never passed through unmarked.
var recognizedCodes = map[Code]struct{}{
	"A": {}, "C": {}, "D": {}, "E": {}, "F": {}, "G": {}, "H": {},
	"I": {}, "J": {}, "K": {}, "L": {}, "M": {}, "O": {}, "P": {},
	"S": {}, "U": {}, "V": {}, "W": {}, "X": {}, "Z": {},
}

// Recognized reports whether c belongs to the Form 4 code table.
func (c Code) Recognized() bool {
	_, ok := recognizedCodes[c]
	return ok
}

// Reporter identifies the insider who filed the form.
type Reporter struct {
	Name         string   `json:"name"`
	Title        string   `json:"title,omitempty"`
	Relationship []string `json:"relationship"`
}

// Transaction is one non-derivative row of a Form 4 filing, flattened with
// the reporter and filing-level fields the dashboard needs. Values are set
// once by the parser and never mutated afterwards.
type Transaction struct {
	Accession        string   `json:"accession"`
	FilingDate       string   `json:"filing_date"`
	FilingURL        string   `json:"filing_url"`
	Date             string   `json:"date"`
	SecurityTitle    string   `json:"security_title"`
	Code             Code     `json:"code"`
	Shares           float64  `json:"shares"`
	Price            float64  `json:"price"`
	AcquiredDisposed string   `json:"acquired_disposed"`
	SharesOwnedAfter float64  `json:"shares_owned_after"`
	OwnershipNature  string   `json:"ownership_nature,omitempty"`
	Footnotes        []string `json:"footnotes"`
	Is10b51          bool     `json:"is_10b5_1"`
	Reporter         Reporter `json:"reporter"`
}

// Year returns the calendar year of the transaction date. The parser only
// emits transactions with a valid YYYY-MM-DD date, so slicing is safe.
func (t Transaction) Year() string {
	if len(t.Date) < 4 {
		return ""
	}
	return t.Date[:4]
}
