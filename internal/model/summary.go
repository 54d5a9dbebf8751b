package model

// Summary is a projection over a transaction set. It has no identity of its
// own and is recomputed from scratch on every run.
type Summary struct {
	TotalTransactions     int            `json:"total_transactions"`
	Codes                 map[string]int `json:"codes"`
	Insiders              map[string]int `json:"insiders"`
	LatestTransactionDate string         `json:"latest_transaction_date,omitempty"`
}

// Summarize builds a Summary from transactions. Pure and deterministic:
// grouping keys are stable, so input order does not affect the result.
func Summarize(txs []Transaction) Summary {
	s := Summary{
		TotalTransactions: len(txs),
		Codes:             make(map[string]int),
		Insiders:          make(map[string]int),
	}
	for _, t := range txs {
		s.Codes[string(t.Code)]++
		s.Insiders[t.Reporter.Name]++
		if t.Date > s.LatestTransactionDate {
			s.LatestTransactionDate = t.Date
		}
	}
	return s
}
