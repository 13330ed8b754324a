package forecast

import (
	"testing"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAssessRisk_BalanceAlreadyBelowBuffer(t *testing.T) {
	balance := decimal.NewFromInt(400)
	days, events := Simulate(balance, simToday, nil, nil)

	assessment := AssessRisk(balance, days, events, DefaultBufferLimit)

	assert.True(t, assessment.Risk)
	assert.Equal(t, 0, assessment.DaysLeft)
	assert.Equal(t, CauseLowBuffer, assessment.Cause)
	assert.Contains(t, assessment.Message, "below your $500 safety buffer")
}

func TestAssessRisk_SafeRunway(t *testing.T) {
	// 3500 on hand, rent 1200 due on day 2: worst point is 2300, well above
	// the buffer.
	balance := decimal.NewFromInt(3500)
	ob := models.RecurringObligation{
		Merchant:     "rent",
		Amount:       decimal.NewFromInt(1200),
		IntervalDays: 30,
		LastSeen:     simToday.AddDate(0, 0, -28).Unix(),
	}
	days, events := Simulate(balance, simToday, nil, []models.RecurringObligation{ob})

	assessment := AssessRisk(balance, days, events, DefaultBufferLimit)

	assert.False(t, assessment.Risk)
	assert.Equal(t, HorizonDays, assessment.DaysLeft)
	assert.Empty(t, assessment.Cause)
}

func TestAssessRisk_FirstBreachWins(t *testing.T) {
	days := []models.SimulationDay{
		{Day: 1, Date: "2025-10-02", Balance: decimal.NewFromInt(800)},
		{Day: 2, Date: "2025-10-03", Balance: decimal.NewFromInt(450)},
		{Day: 3, Date: "2025-10-04", Balance: decimal.NewFromInt(100)},
	}

	assessment := AssessRisk(decimal.NewFromInt(800), days, nil, DefaultBufferLimit)

	assert.True(t, assessment.Risk)
	assert.Equal(t, 2, assessment.DaysLeft)
	assert.Contains(t, assessment.Message, "in 2 days")
}

func TestAssessRisk_CauseNamesBreachingDebit(t *testing.T) {
	balance := decimal.NewFromInt(600)
	ob := models.RecurringObligation{
		Merchant:     "rent",
		Amount:       decimal.NewFromInt(500),
		IntervalDays: 30,
		LastSeen:     simToday.AddDate(0, 0, -27).Unix(),
	}
	days, events := Simulate(balance, simToday, nil, []models.RecurringObligation{ob})

	assessment := AssessRisk(balance, days, events, DefaultBufferLimit)

	assert.True(t, assessment.Risk)
	assert.Equal(t, 3, assessment.DaysLeft)
	assert.Equal(t, "rent", assessment.Cause)
}

func TestAssessRisk_CauseFallsBackToSpending(t *testing.T) {
	days := []models.SimulationDay{
		{Day: 1, Date: "2025-10-02", Balance: decimal.NewFromInt(300)},
	}

	assessment := AssessRisk(decimal.NewFromInt(700), days, nil, DefaultBufferLimit)

	assert.True(t, assessment.Risk)
	assert.Equal(t, CauseSpending, assessment.Cause)
}

func TestAssessRisk_ExactBufferIsSafe(t *testing.T) {
	balance := decimal.NewFromInt(500)
	days, events := Simulate(balance, simToday, nil, nil)

	assessment := AssessRisk(balance, days, events, DefaultBufferLimit)

	assert.False(t, assessment.Risk, "a balance equal to the buffer is not below it")
}

func TestAssessRisk_BufferMonotonicity(t *testing.T) {
	// If a balance trajectory is risky under a small buffer it must be risky
	// under every larger buffer too.
	balance := decimal.NewFromInt(450)
	ob := models.RecurringObligation{
		Merchant:     "rent",
		Amount:       decimal.NewFromInt(300),
		IntervalDays: 30,
		LastSeen:     simToday.AddDate(0, 0, -20).Unix(),
	}
	days, events := Simulate(balance, simToday, nil, []models.RecurringObligation{ob})

	buffers := []int64{100, 200, 500, 1000}
	prevRisk := false
	for _, b := range buffers {
		assessment := AssessRisk(balance, days, events, decimal.NewFromInt(b))
		if prevRisk {
			assert.True(t, assessment.Risk, "buffer %d lost a risk flagged at a smaller buffer", b)
		}
		prevRisk = assessment.Risk
	}
}

func TestAssessRisk_CustomBuffer(t *testing.T) {
	balance := decimal.NewFromInt(450)
	days, events := Simulate(balance, simToday, nil, nil)

	strict := AssessRisk(balance, days, events, decimal.NewFromInt(1000))
	lax := AssessRisk(balance, days, events, decimal.NewFromInt(100))

	assert.True(t, strict.Risk)
	assert.False(t, lax.Risk)
}
