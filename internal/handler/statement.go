package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/jmercer-dev/runway/internal/parser"
)

type statementRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
	Email  string `json:"email,omitempty"`
}

type statementResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// HandleStatement ingests pasted statement text for a user: parse, append
// the batch to the ledger, then rerun pattern detection over the full
// history. A statement with zero parseable lines is rejected so the caller
// can tell "nothing to parse" from a successful zero-count ingest.
func (d *Dependencies) HandleStatement(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("failed to decode statement request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	results := parser.Parse(req.Text)
	transactions := parser.Transactions(results)
	skipped := parser.SkippedCount(results)

	if len(transactions) == 0 {
		slog.Warn("statement had no parseable lines", "user_id", req.UserID, "skipped", skipped)
		WriteError(w, http.StatusBadRequest, "No parseable transactions in statement")
		return
	}

	inserted, err := d.ingest(r.Context(), req.UserID, req.Email, transactions)
	if err != nil {
		slog.Error("failed to ingest statement", "user_id", req.UserID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to save transactions: "+err.Error())
		return
	}

	slog.Info("statement ingested", "user_id", req.UserID, "inserted", inserted, "skipped", skipped)
	WriteJSON(w, http.StatusOK, statementResponse{Inserted: inserted, Skipped: skipped})
}

// ingest stamps the user onto the parsed batch, appends it atomically,
// registers the user for the nightly sweep and reruns detection. A storage
// failure surfaces to the caller with nothing inserted.
func (d *Dependencies) ingest(ctx context.Context, userID, email string, transactions []models.Transaction) (int, error) {
	for i := range transactions {
		transactions[i].UserID = userID
	}

	inserted, err := d.Database.SaveTransactions(ctx, userID, transactions)
	if err != nil {
		return 0, fmt.Errorf("save transactions: %w", err)
	}

	if err := d.Database.UpsertUser(ctx, models.User{UserID: userID, Email: email}); err != nil {
		// Registry write is best-effort; the ledger insert already committed.
		slog.Warn("failed to upsert user registry entry", "user_id", userID, "error", err)
	}

	if err := d.runDetection(ctx, userID); err != nil {
		slog.Warn("pattern detection failed after ingest", "user_id", userID, "error", err)
	}

	return inserted, nil
}

// runDetection scans the user's full history with the configured policy and
// persists the inferred entities. The store deduplicates on insert, so
// rerunning over the same history never creates duplicates.
func (d *Dependencies) runDetection(ctx context.Context, userID string) error {
	history, err := d.Database.ListTransactions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	pol := d.policy()

	for _, income := range pol.DetectIncome(history) {
		added, err := d.Database.SaveIncomeSource(ctx, income)
		if err != nil {
			return fmt.Errorf("save income source: %w", err)
		}
		if added {
			slog.Info("detected income source", "user_id", userID, "amount", income.Amount.StringFixed(2), "interval_days", income.IntervalDays)
		}
	}

	for _, ob := range pol.DetectObligations(history) {
		added, err := d.Database.SaveObligation(ctx, ob)
		if err != nil {
			return fmt.Errorf("save obligation: %w", err)
		}
		if added {
			slog.Info("detected recurring obligation", "user_id", userID, "merchant", ob.Merchant, "amount", ob.Amount.StringFixed(2))
		}
	}

	return nil
}
