package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/jmercer-dev/runway/internal/parser"
)

// invokeRequest represents the payload from the Azure Functions custom handler host.
type invokeRequest struct {
	Data     map[string]any `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// ProcessQueue handles the queue trigger for uploaded statements: download
// the archived blob, parse it (CSV exports through the CSV parser, anything
// else through the freeform line parser) and run the same ingest as the
// synchronous statement endpoint. Unusable messages are consumed with a 200
// so the host does not retry them forever.
func (d *Dependencies) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	var invokeReq invokeRequest
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if err := json.Unmarshal(bodyBytes, &invokeReq); err != nil {
		http.Error(w, "Failed to unmarshal request", http.StatusBadRequest)
		return
	}

	queueItemVal, ok := invokeReq.Data["queueItem"]
	if !ok {
		queueItemVal, ok = invokeReq.Data["queueitem"]
		if !ok {
			http.Error(w, "Missing queueItem in Data", http.StatusBadRequest)
			return
		}
	}

	// The queue item is a JSON string carrying blob_name/user_id/filename
	queueItemStr, ok := queueItemVal.(string)
	if !ok {
		http.Error(w, "queueItem is not a string", http.StatusBadRequest)
		return
	}

	var queueData map[string]string
	if err := json.Unmarshal([]byte(queueItemStr), &queueData); err != nil {
		slog.Error("invalid queueItem JSON", "error", err)
		http.Error(w, "Invalid queueItem JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	blobName := queueData["blob_name"]
	userID := queueData["user_id"]
	if blobName == "" || userID == "" {
		http.Error(w, "Missing blob_name or user_id", http.StatusBadRequest)
		return
	}

	slog.Info("processing queued statement", "user_id", userID, "blob_name", blobName)

	content, err := d.Blob.DownloadText(r.Context(), statementsContainer, blobName)
	if err != nil {
		slog.Error("failed to download statement blob", "blob_name", blobName, "error", err)
		http.Error(w, "Failed to download statement: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var transactions []models.Transaction
	var skipped int
	if strings.HasSuffix(strings.ToLower(queueData["filename"]), ".csv") {
		var rowErrors []string
		transactions, rowErrors = parser.ParseCSV(content)
		skipped = len(rowErrors)
		if len(rowErrors) > 0 {
			slog.Warn("csv statement had invalid rows", "user_id", userID, "errors", rowErrors)
		}
	} else {
		results := parser.Parse(content)
		transactions = parser.Transactions(results)
		skipped = parser.SkippedCount(results)
	}

	if len(transactions) == 0 {
		// Consume the message; retrying an unparseable statement cannot succeed.
		slog.Warn("queued statement had no parseable transactions", "user_id", userID, "blob_name", blobName, "skipped", skipped)
		w.WriteHeader(http.StatusOK)
		return
	}

	inserted, err := d.ingest(r.Context(), userID, queueData["email"], transactions)
	if err != nil {
		slog.Error("failed to ingest queued statement", "user_id", userID, "error", err)
		http.Error(w, "Failed to save transactions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("queued statement ingested", "user_id", userID, "inserted", inserted, "skipped", skipped)
	w.WriteHeader(http.StatusOK)
}
