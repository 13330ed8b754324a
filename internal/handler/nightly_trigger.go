package handler

import (
	"log/slog"
	"net/http"
)

// HandleNightlyTrigger sweeps every registered user, reruns the forecasting
// pipeline and sends an alert to each user found at risk. Users without an
// email on record are assessed but skipped for delivery.
func (d *Dependencies) HandleNightlyTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.Info("starting nightly risk sweep")

	users, err := d.Database.ListUsers(ctx)
	if err != nil {
		slog.Error("failed to list users for sweep", "error", err)
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	atRisk := 0
	for _, user := range users {
		result, err := d.runPipeline(ctx, user.UserID)
		if err != nil {
			slog.Error("sweep pipeline failed", "user_id", user.UserID, "error", err)
			continue
		}

		if !result.Assessment.Risk {
			continue
		}
		atRisk++

		slog.Info("user at risk",
			"user_id", user.UserID,
			"days_left", result.Assessment.DaysLeft,
			"cause", result.Assessment.Cause,
			"balance", result.Assessment.CurrentBalance.StringFixed(2))

		if user.Email == "" {
			slog.Warn("at-risk user has no email on record", "user_id", user.UserID)
			continue
		}
		if d.Alerts == nil {
			slog.Warn("alert delivery not configured, skipping", "user_id", user.UserID)
			continue
		}

		if err := d.Alerts.SendRiskAlert(ctx, user.Email, result.Assessment, result.Recommendation); err != nil {
			slog.Error("failed to send risk alert", "user_id", user.UserID, "error", err)
			// Continue to the next user even if delivery fails
		}
	}

	slog.Info("nightly risk sweep complete", "users", len(users), "at_risk", atRisk)
	w.WriteHeader(http.StatusOK)
}
