package forecast

import (
	"time"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
)

// HorizonDays is the length of the balance projection window.
const HorizonDays = 30

// dateLayout is the wire format for simulation day dates.
const dateLayout = "2006-01-02"

// CurrentBalance is the signed sum of all historical transactions dated no
// later than today. Future-dated history never counts as history.
func CurrentBalance(history []models.Transaction, today time.Time) decimal.Decimal {
	cutoff := midnight(today)
	balance := decimal.Zero
	for _, t := range history {
		if t.Date().After(cutoff) {
			continue
		}
		balance = balance.Add(t.Signed())
	}
	return balance
}

// ProjectEvents expands the inferred recurring entities into the concrete
// events that land inside the horizon. The first occurrence is anchored at
// LastSeen + interval when the entity carries a last observation (a bill
// paid 28 days ago on a 30-day cycle lands on day 2), otherwise at
// today + interval. Each entity then repeats every interval until the
// horizon is exceeded, so a weekly obligation yields four events and a
// monthly one at most one.
func ProjectEvents(today time.Time, incomes []models.IncomeSource, obligations []models.RecurringObligation) []models.ProjectedEvent {
	base := midnight(today)
	var events []models.ProjectedEvent

	appendRecurrences := func(interval int, lastSeen int64, amount decimal.Decimal, dir models.Direction, source string) {
		if interval <= 0 {
			interval = HorizonDays
		}
		for day := firstDueOffset(lastSeen, interval, base); day <= HorizonDays; day += interval {
			events = append(events, models.ProjectedEvent{
				Date:      base.AddDate(0, 0, day),
				Amount:    amount,
				Direction: dir,
				Source:    source,
			})
		}
	}

	for _, inc := range incomes {
		appendRecurrences(inc.IntervalDays, inc.LastSeen, inc.Amount, models.DirectionCredit, "income")
	}
	for _, ob := range obligations {
		appendRecurrences(ob.IntervalDays, ob.LastSeen, ob.Amount, models.DirectionDebit, ob.Merchant)
	}
	return events
}

// firstDueOffset returns the day index (relative to base) of the next
// occurrence. Overdue anchors roll forward interval by interval so the
// offset is always at least 1.
func firstDueOffset(lastSeen int64, interval int, base time.Time) int {
	if lastSeen <= 0 {
		return interval
	}
	last := midnight(time.Unix(lastSeen, 0))
	offset := interval - int(base.Sub(last).Hours()/24)
	for offset < 1 {
		offset += interval
	}
	return offset
}

// Simulate walks the horizon day by day, applying each projected event on its
// date and recording the resulting balance rounded to two decimal places.
// The output always holds exactly HorizonDays entries with strictly
// increasing day indexes; a user with no recurring entities gets a flat line
// at the current balance. Given the same inputs and today, the output is
// fully reproducible.
func Simulate(balance decimal.Decimal, today time.Time, incomes []models.IncomeSource, obligations []models.RecurringObligation) ([]models.SimulationDay, []models.ProjectedEvent) {
	base := midnight(today)
	events := ProjectEvents(today, incomes, obligations)

	byDate := make(map[string]decimal.Decimal)
	for _, ev := range events {
		delta := ev.Amount
		if ev.Direction == models.DirectionDebit {
			delta = delta.Neg()
		}
		key := ev.Date.Format(dateLayout)
		byDate[key] = byDate[key].Add(delta)
	}

	days := make([]models.SimulationDay, 0, HorizonDays)
	running := balance
	for day := 1; day <= HorizonDays; day++ {
		date := base.AddDate(0, 0, day).Format(dateLayout)
		if delta, ok := byDate[date]; ok {
			running = running.Add(delta)
		}
		days = append(days, models.SimulationDay{
			Day:     day,
			Date:    date,
			Balance: running.Round(2),
		})
	}
	return days, events
}

func midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
