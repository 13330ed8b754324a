package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmercer-dev/runway/internal/forecast"
	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
)

// pipelineResult carries everything one full forecasting run produced.
type pipelineResult struct {
	Balance        decimal.Decimal
	Days           []models.SimulationDay
	Events         []models.ProjectedEvent
	Assessment     models.RiskAssessment
	Recommendation models.Recommendation
}

type forecastResponse struct {
	Status         string                `json:"status"`
	DaysUntilZero  int                   `json:"days_until_zero"`
	CurrentBalance decimal.Decimal       `json:"current_balance"`
	Recommendation models.Recommendation `json:"recommendation"`
	RiskCause      string                `json:"risk_cause,omitempty"`
}

// runPipeline executes the read side of the pipeline for one user: balance,
// projection, risk, recommendation. A user with no history gets the defined
// safe no-data result so downstream consumers never need null checks.
func (d *Dependencies) runPipeline(ctx context.Context, userID string) (*pipelineResult, error) {
	history, err := d.Database.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	today := d.now()
	buffer := d.buffer()

	if len(history) == 0 {
		days, events := forecast.Simulate(decimal.Zero, today, nil, nil)
		return &pipelineResult{
			Balance: decimal.Zero,
			Days:    days,
			Events:  events,
			Assessment: models.RiskAssessment{
				Risk:           false,
				DaysLeft:       forecast.HorizonDays,
				CurrentBalance: decimal.Zero,
			},
			Recommendation: models.Recommendation{Action: models.ActionNone, Message: "No transaction history yet."},
		}, nil
	}

	incomes, err := d.Database.ListIncomeSources(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list income sources: %w", err)
	}
	obligations, err := d.Database.ListObligations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}

	balance := forecast.CurrentBalance(history, today)
	days, events := forecast.Simulate(balance, today, incomes, obligations)
	assessment := forecast.AssessRisk(balance, days, events, buffer)
	recommendation := forecast.Recommend(assessment, incomes, obligations, balance, today, buffer)

	return &pipelineResult{
		Balance:        balance,
		Days:           days,
		Events:         events,
		Assessment:     assessment,
		Recommendation: recommendation,
	}, nil
}

// userFromQuery pulls the required ?user= parameter.
func userFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "user query parameter is required")
		return "", false
	}
	return userID, true
}

// HandleForecast returns the combined forecast: status, runway, balance and
// the recommended action.
func (d *Dependencies) HandleForecast(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromQuery(w, r)
	if !ok {
		return
	}

	result, err := d.runPipeline(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to compute forecast")
		return
	}

	status := "safe"
	if result.Assessment.Risk {
		status = "at_risk"
	}

	WriteJSON(w, http.StatusOK, forecastResponse{
		Status:         status,
		DaysUntilZero:  result.Assessment.DaysLeft,
		CurrentBalance: result.Assessment.CurrentBalance,
		Recommendation: result.Recommendation,
		RiskCause:      result.Assessment.Cause,
	})
}

// HandleSimulation returns the raw 30-day projection.
func (d *Dependencies) HandleSimulation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromQuery(w, r)
	if !ok {
		return
	}

	result, err := d.runPipeline(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to run simulation")
		return
	}
	WriteJSON(w, http.StatusOK, result.Days)
}

// HandleRisk returns the risk assessment on its own.
func (d *Dependencies) HandleRisk(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromQuery(w, r)
	if !ok {
		return
	}

	result, err := d.runPipeline(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to assess risk")
		return
	}
	WriteJSON(w, http.StatusOK, result.Assessment)
}

// HandleAction returns the recommended action on its own.
func (d *Dependencies) HandleAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromQuery(w, r)
	if !ok {
		return
	}

	result, err := d.runPipeline(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to compute recommendation")
		return
	}
	WriteJSON(w, http.StatusOK, result.Recommendation)
}
