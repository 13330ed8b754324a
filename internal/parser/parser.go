package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
)

// Outcome says what the parser did with a single statement line.
type Outcome string

const (
	OutcomeParsed  Outcome = "parsed"
	OutcomeSkipped Outcome = "skipped"
)

// LineResult is the per-line parse result. Malformed lines are skipped, never
// errors; callers and tests can assert skip counts instead of guessing.
type LineResult struct {
	LineNum     int                 `json:"lineNum"`
	Text        string              `json:"text"`
	Outcome     Outcome             `json:"outcome"`
	Reason      string              `json:"reason,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// Date patterns tried in fixed preference order.
var (
	// DD/MM/YYYY
	datePatternSlash = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)
	// YYYY-MM-DD
	datePatternISO = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	// DD Mon YYYY (e.g., 15 Jan 2024)
	datePatternText = regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4})\b`)

	// Optionally signed, optionally comma-grouped numeric token.
	amountPattern = regexp.MustCompile(`-?\d{1,3}(?:,\d{3})+(?:\.\d+)?|-?\d+(?:\.\d+)?`)
)

// Keywords that mark a line as a credit; everything else defaults to debit.
var creditKeywords = []string{"salary", "refund", "deposit"}

// Parse turns raw pasted statement text into per-line results. It never
// returns an error: lines that fail date or amount extraction are recorded as
// skipped so one bad line cannot fail the batch. Blank lines are ignored.
func Parse(text string) []LineResult {
	var results []LineResult

	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		res := LineResult{LineNum: i + 1, Text: trimmed}

		date, rest, ok := extractDate(trimmed)
		if !ok {
			res.Outcome = OutcomeSkipped
			res.Reason = "no recognizable date"
			results = append(results, res)
			continue
		}

		amount, ok := extractAmount(rest)
		if !ok {
			res.Outcome = OutcomeSkipped
			res.Reason = "no amount"
			results = append(results, res)
			continue
		}

		direction := models.DirectionDebit
		if isCredit(trimmed) {
			direction = models.DirectionCredit
		}

		res.Outcome = OutcomeParsed
		res.Transaction = &models.Transaction{
			Amount:    amount.Abs(),
			Direction: direction,
			Raw:       trimmed,
			Timestamp: date.Unix(),
		}
		results = append(results, res)
	}

	return results
}

// Transactions collects the parsed records out of a result set.
func Transactions(results []LineResult) []models.Transaction {
	var txs []models.Transaction
	for _, r := range results {
		if r.Outcome == OutcomeParsed {
			txs = append(txs, *r.Transaction)
		}
	}
	return txs
}

// SkippedCount returns the number of lines dropped during parsing.
func SkippedCount(results []LineResult) int {
	n := 0
	for _, r := range results {
		if r.Outcome == OutcomeSkipped {
			n++
		}
	}
	return n
}

// extractDate finds the first date-like token, trying each accepted format in
// preference order. It returns the parsed date (midnight UTC) and the portion
// of the line after the date token, where the amount search happens.
func extractDate(line string) (time.Time, string, bool) {
	type pattern struct {
		re     *regexp.Regexp
		layout string
	}
	patterns := []pattern{
		{datePatternSlash, "2/1/2006"},
		{datePatternISO, "2006-01-02"},
		{datePatternText, "2 Jan 2006"},
	}

	for _, p := range patterns {
		loc := p.re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		token := line[loc[0]:loc[1]]
		d, err := time.ParseInLocation(p.layout, normalizeDateToken(token), time.UTC)
		if err != nil {
			// Date-shaped but not a real date (e.g. 45/99/2025)
			continue
		}
		return d, line[loc[1]:], true
	}
	return time.Time{}, "", false
}

// normalizeDateToken collapses whitespace and truncates spelled-out month
// names so "15  January 2024" parses with the "2 Jan 2006" layout.
func normalizeDateToken(token string) string {
	fields := strings.Fields(token)
	if len(fields) == 3 && len(fields[1]) > 3 {
		fields[1] = fields[1][:3]
	}
	return strings.Join(fields, " ")
}

// extractAmount picks the last numeric token after the date. Statement lines
// conventionally end with the amount, so later tokens win over reference
// numbers embedded in the description.
func extractAmount(rest string) (decimal.Decimal, bool) {
	matches := amountPattern.FindAllString(rest, -1)
	if len(matches) == 0 {
		return decimal.Decimal{}, false
	}
	token := strings.ReplaceAll(matches[len(matches)-1], ",", "")
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// isCredit applies the keyword heuristic: credit-indicating words classify the
// line as a credit, everything else is treated as a debit. "cr" and "dep" are
// matched as whole tokens so merchants like "crafts" don't flip direction.
func isCredit(line string) bool {
	lower := strings.ToLower(line)
	for _, k := range creditKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	for _, f := range strings.Fields(lower) {
		f = strings.Trim(f, ".,:;()")
		if f == "cr" || f == "dep" {
			return true
		}
	}
	return false
}
