package forecast

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
)

// Merchants whose charges are discretionary enough to pause.
var pausableKeywords = []string{
	"spotify", "netflix", "prime", "hotstar",
	"youtube", "apple", "google", "membership",
}

// IsPausable reports whether a merchant name matches the pausable allowlist.
func IsPausable(merchant string) bool {
	m := strings.ToLower(merchant)
	for _, k := range pausableKeywords {
		if strings.Contains(m, k) {
			return true
		}
	}
	return false
}

// Recommend proposes at most one mitigating action for an assessed risk.
//
// With no risk there is nothing to do. Otherwise the cheapest pausable
// obligation is suggested (smallest pain first), with the message citing how
// far the runway extends once that charge is removed from the projection.
// When nothing is pausable the user gets a generic spending warning. Pure
// decision table; no side effects.
func Recommend(assessment models.RiskAssessment, incomes []models.IncomeSource, obligations []models.RecurringObligation, balance decimal.Decimal, today time.Time, buffer decimal.Decimal) models.Recommendation {
	if !assessment.Risk {
		return models.Recommendation{Action: models.ActionNone, Message: "No action needed."}
	}

	sorted := make([]models.RecurringObligation, len(obligations))
	copy(sorted, obligations)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Amount.Equal(sorted[j].Amount) {
			return sorted[i].Amount.LessThan(sorted[j].Amount)
		}
		return sorted[i].Merchant < sorted[j].Merchant
	})

	for _, ob := range sorted {
		if !IsPausable(ob.Merchant) {
			continue
		}
		return models.Recommendation{
			Action:  models.ActionPause,
			Target:  ob.Merchant,
			Message: pauseMessage(ob, assessment, incomes, obligations, balance, today, buffer),
		}
	}

	return models.Recommendation{
		Action:  models.ActionWarn,
		Message: "Spending may need adjustment; consider cutting discretionary expenses.",
	}
}

// pauseMessage re-simulates without the paused obligation to estimate the
// extended safe window.
func pauseMessage(target models.RecurringObligation, assessment models.RiskAssessment, incomes []models.IncomeSource, obligations []models.RecurringObligation, balance decimal.Decimal, today time.Time, buffer decimal.Decimal) string {
	var remaining []models.RecurringObligation
	for _, ob := range obligations {
		if ob.Merchant == target.Merchant {
			continue
		}
		remaining = append(remaining, ob)
	}

	days, events := Simulate(balance, today, incomes, remaining)
	after := AssessRisk(balance, days, events, buffer)

	name := title(target.Merchant)
	if !after.Risk {
		return fmt.Sprintf("Pause %s and your balance stays above the buffer for the full %d days.", name, HorizonDays)
	}
	if after.DaysLeft > assessment.DaysLeft {
		return fmt.Sprintf("Pause %s to extend your safe window from %d to %d days.", name, assessment.DaysLeft, after.DaysLeft)
	}
	return fmt.Sprintf("Pause %s to reduce the upcoming shortfall.", name)
}

// title uppercases the first letter of each word for display.
func title(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}
