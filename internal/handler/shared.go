package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmercer-dev/runway/internal/forecast"
	"github.com/shopspring/decimal"
)

// Dependencies holds the services and configuration required by the handlers.
// Policy, BufferLimit and Now are optional; zero values fall back to the
// interval-bucket policy, the default 500 buffer and the wall clock.
type Dependencies struct {
	Database DatabaseClient
	Blob     BlobClient
	Queue    QueueClient
	Alerts   AlertClient

	Policy      forecast.Policy
	BufferLimit decimal.Decimal
	Now         func() time.Time
}

func (d *Dependencies) policy() forecast.Policy {
	if d.Policy != nil {
		return d.Policy
	}
	return forecast.IntervalBucketPolicy{}
}

func (d *Dependencies) buffer() decimal.Decimal {
	if d.BufferLimit.IsPositive() {
		return d.BufferLimit
	}
	return forecast.DefaultBufferLimit
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
