package forecast

import (
	"fmt"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultBufferLimit is the safety buffer below which risk is flagged.
var DefaultBufferLimit = decimal.NewFromInt(500)

// Risk causes reported in assessments.
const (
	CauseLowBuffer = "Low Buffer Zone"
	CauseSpending  = "spending"
)

// AssessRisk classifies the simulation output against the safety buffer.
//
// The current balance is checked before the forward scan: an account already
// under the buffer is at risk with zero days left. Otherwise the scan runs
// day 1 through 30 in order and the first breach wins; later, deeper dips are
// not inspected. The cause is the first debit event landing on the breach
// day, falling back to general spending when the breach comes from burn
// alone. Pure function; nothing is cached or persisted.
func AssessRisk(balance decimal.Decimal, days []models.SimulationDay, events []models.ProjectedEvent, buffer decimal.Decimal) models.RiskAssessment {
	if balance.LessThan(buffer) {
		return models.RiskAssessment{
			Risk:           true,
			DaysLeft:       0,
			Cause:          CauseLowBuffer,
			Message:        fmt.Sprintf("Your balance ($%s) is below your $%s safety buffer.", balance.Round(2), buffer.Round(2)),
			CurrentBalance: balance.Round(2),
		}
	}

	for _, day := range days {
		if day.Balance.LessThan(buffer) {
			return models.RiskAssessment{
				Risk:           true,
				DaysLeft:       day.Day,
				Cause:          breachCause(events, day.Date),
				Message:        fmt.Sprintf("Upcoming costs will breach your safety buffer in %d days.", day.Day),
				CurrentBalance: balance.Round(2),
			}
		}
	}

	return models.RiskAssessment{
		Risk:           false,
		DaysLeft:       HorizonDays,
		CurrentBalance: balance.Round(2),
	}
}

// breachCause names the first debit event on the breaching day.
func breachCause(events []models.ProjectedEvent, date string) string {
	for _, ev := range events {
		if ev.Direction == models.DirectionDebit && ev.Date.Format(dateLayout) == date {
			return ev.Source
		}
	}
	return CauseSpending
}
