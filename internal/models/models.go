package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction classifies a transaction as money in or money out.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Transaction represents a single financial movement. Amount is always a
// positive magnitude; Direction carries the sign semantics. Transactions are
// append-only and never mutated after insert.
type Transaction struct {
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Direction Direction       `json:"direction"`
	Raw       string          `json:"raw,omitempty"`
	Timestamp int64           `json:"timestamp"` // epoch seconds, UTC
}

// Signed returns the amount with its sign applied (credits positive, debits negative).
func (t Transaction) Signed() decimal.Decimal {
	if t.Direction == DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Date returns the transaction's calendar date in UTC.
func (t Transaction) Date() time.Time {
	d := time.Unix(t.Timestamp, 0).UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// IncomeSource is an inferred repeating credit (typically a salary).
// At most one exists per (user, amount bucket); the first detected wins.
type IncomeSource struct {
	UserID       string          `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	IntervalDays int             `json:"interval_days"`
	Confidence   float64         `json:"confidence"` // 0–1, strength of inference
	LastSeen     int64           `json:"last_seen,omitempty"` // epoch seconds of the latest matching credit
}

// RecurringObligation is an inferred repeating debit (subscription, rent, bill).
// One logical entity exists per (user, merchant).
type RecurringObligation struct {
	UserID       string          `json:"user_id"`
	Merchant     string          `json:"merchant"`
	Amount       decimal.Decimal `json:"amount"`
	IntervalDays int             `json:"interval_days"` // nominally 30
	Confidence   float64         `json:"confidence"`
	LastSeen     int64           `json:"last_seen,omitempty"` // epoch seconds of the latest matching debit
}

// ProjectedEvent is a transient future credit/debit derived from an inferred
// recurring entity. Regenerated on every simulation run, never stored.
type ProjectedEvent struct {
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Direction Direction       `json:"direction"`
	Source    string          `json:"source"` // merchant name, or "income"
}

// SimulationDay is one entry of the 30-day balance projection.
type SimulationDay struct {
	Day     int             `json:"day"` // 1..30
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"` // rounded to 2dp
}

// RiskAssessment is the output of the risk classifier. It is recomputed on
// every call and never persisted.
type RiskAssessment struct {
	Risk           bool            `json:"risk"`
	DaysLeft       int             `json:"days_left"`
	Cause          string          `json:"cause,omitempty"`
	Message        string          `json:"message,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// Action is the kind of corrective step the recommender proposes.
type Action string

const (
	ActionNone  Action = "none"
	ActionPause Action = "pause"
	ActionWarn  Action = "warn"
)

// Recommendation is a single proposed mitigation for a detected cash risk.
type Recommendation struct {
	Action  Action `json:"action"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message"`
}

// User is the sweep registry entry for a person using the service.
type User struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}
