package forecast

import (
	"sort"
	"strings"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
)

// Detection tuning shared by the policies.
const (
	minRecurrenceCount  = 2
	minIntervalDays     = 25
	maxIntervalDays     = 35
	incomeConfidence    = 0.9
	recurringConfidence = 0.85
)

// Policy chooses how recurring entities are inferred from transaction
// history. Exactly one implementation is selected at composition time;
// detection runs are idempotent because the store deduplicates on insert.
type Policy interface {
	DetectIncome(history []models.Transaction) []models.IncomeSource
	DetectObligations(history []models.Transaction) []models.RecurringObligation
}

// IntervalBucketPolicy infers recurrence from amount buckets spaced at
// roughly monthly intervals: credits bucketed by amount rounded to the
// nearest 100, debits by (merchant, amount rounded to the nearest 10). A
// bucket qualifies when it holds at least two entries whose last two
// occurrences are 25 to 35 days apart.
type IntervalBucketPolicy struct{}

func (IntervalBucketPolicy) DetectIncome(history []models.Transaction) []models.IncomeSource {
	credits := filterByDirection(history, models.DirectionCredit)
	if len(credits) < minRecurrenceCount {
		return nil
	}

	buckets := make(map[string][]models.Transaction)
	for _, c := range credits {
		key := bucketAmount(c.Amount, 100).String()
		buckets[key] = append(buckets[key], c)
	}

	// Largest qualifying bucket wins; a salary dwarfs refunds and cashbacks.
	var keys []string
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := decimal.NewFromString(keys[i])
		b, _ := decimal.NewFromString(keys[j])
		return a.GreaterThan(b)
	})

	for _, k := range keys {
		txns := buckets[k]
		interval, lastSeen, ok := lastInterval(txns)
		if !ok {
			continue
		}
		amount, _ := decimal.NewFromString(k)
		return []models.IncomeSource{{
			UserID:       txns[0].UserID,
			Amount:       amount,
			IntervalDays: interval,
			Confidence:   incomeConfidence,
			LastSeen:     lastSeen,
		}}
	}
	return nil
}

func (IntervalBucketPolicy) DetectObligations(history []models.Transaction) []models.RecurringObligation {
	debits := filterByDirection(history, models.DirectionDebit)

	type bucketKey struct {
		merchant string
		amount   string
	}
	buckets := make(map[bucketKey][]models.Transaction)
	for _, d := range debits {
		key := bucketKey{
			merchant: MerchantFromRaw(d.Raw),
			amount:   bucketAmount(d.Amount, 10).String(),
		}
		buckets[key] = append(buckets[key], d)
	}

	var keys []bucketKey
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].merchant < keys[j].merchant })

	var obligations []models.RecurringObligation
	for _, k := range keys {
		txns := buckets[k]
		interval, lastSeen, ok := lastInterval(txns)
		if !ok {
			continue
		}
		amount, _ := decimal.NewFromString(k.amount)
		obligations = append(obligations, models.RecurringObligation{
			UserID:       txns[0].UserID,
			Merchant:     k.merchant,
			Amount:       amount,
			IntervalDays: interval,
			Confidence:   recurringConfidence,
			LastSeen:     lastSeen,
		})
	}
	return obligations
}

// LargestCreditPolicy is the simpler detection tier: the single largest
// credit is taken as the income source, and any debit at or above the major
// bill threshold becomes an obligation, one per merchant, assumed monthly.
type LargestCreditPolicy struct {
	// MajorBillThreshold marks a debit as a recurring bill by magnitude
	// alone. Zero means the 100-unit default.
	MajorBillThreshold decimal.Decimal
}

func (p LargestCreditPolicy) DetectIncome(history []models.Transaction) []models.IncomeSource {
	var largest *models.Transaction
	for i, t := range history {
		if t.Direction != models.DirectionCredit {
			continue
		}
		if largest == nil || t.Amount.GreaterThan(largest.Amount) {
			largest = &history[i]
		}
	}
	if largest == nil {
		return nil
	}
	return []models.IncomeSource{{
		UserID:       largest.UserID,
		Amount:       largest.Amount,
		IntervalDays: 30,
		Confidence:   0.6,
		LastSeen:     largest.Timestamp,
	}}
}

func (p LargestCreditPolicy) DetectObligations(history []models.Transaction) []models.RecurringObligation {
	threshold := p.MajorBillThreshold
	if threshold.IsZero() {
		threshold = decimal.NewFromInt(100)
	}

	seen := make(map[string]bool)
	var obligations []models.RecurringObligation
	for _, t := range filterByDirection(history, models.DirectionDebit) {
		if t.Amount.LessThan(threshold) {
			continue
		}
		merchant := MerchantFromRaw(t.Raw)
		if seen[merchant] {
			continue
		}
		seen[merchant] = true
		obligations = append(obligations, models.RecurringObligation{
			UserID:       t.UserID,
			Merchant:     merchant,
			Amount:       t.Amount,
			IntervalDays: 30,
			Confidence:   0.5,
			LastSeen:     t.Timestamp,
		})
	}
	sort.Slice(obligations, func(i, j int) bool { return obligations[i].Merchant < obligations[j].Merchant })
	return obligations
}

// MerchantFromRaw derives a merchant label from a raw statement line: the
// first word carrying no digits, lowercased. Date and amount tokens always
// carry digits in every accepted statement format, so they never win.
func MerchantFromRaw(raw string) string {
	for _, f := range strings.Fields(raw) {
		if strings.ContainsAny(f, "0123456789") {
			continue
		}
		return strings.ToLower(strings.Trim(f, ".,:;"))
	}
	return "unknown"
}

func filterByDirection(history []models.Transaction, dir models.Direction) []models.Transaction {
	var out []models.Transaction
	for _, t := range history {
		if t.Direction == dir {
			out = append(out, t)
		}
	}
	return out
}

// bucketAmount rounds to the nearest multiple of step (12345, 100 -> 12300).
func bucketAmount(amount decimal.Decimal, step int64) decimal.Decimal {
	s := decimal.NewFromInt(step)
	return amount.Div(s).Round(0).Mul(s)
}

// lastInterval returns the day gap between the two most recent transactions
// in a bucket and the timestamp of the latest one, if the bucket qualifies
// as recurring.
func lastInterval(txns []models.Transaction) (int, int64, bool) {
	if len(txns) < minRecurrenceCount {
		return 0, 0, false
	}
	sorted := make([]models.Transaction, len(txns))
	copy(sorted, txns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	last := sorted[len(sorted)-1].Timestamp
	prev := sorted[len(sorted)-2].Timestamp
	interval := int((last - prev) / (60 * 60 * 24))
	if interval < minIntervalDays || interval > maxIntervalDays {
		return 0, 0, false
	}
	return interval, last, true
}
