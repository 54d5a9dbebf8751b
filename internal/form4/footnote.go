package form4

import "regexp"

// tradingPlanPattern matches footnote language referencing Rule 10b5-1.
// Kept in one place so the pattern can be revised without touching row
// extraction.
var tradingPlanPattern = regexp.MustCompile(`(?i)10b5`)

// isTradingPlan reports whether footnote text hints that the trade was
// executed under a pre-arranged Rule 10b5-1 plan. This is a best-effort
// signal: footnote phrasing varies across filers and false negatives are
// expected.
func isTradingPlan(text string) bool {
	if text == "" {
		return false
	}
	return tradingPlanPattern.MatchString(text)
}
