package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"
)

const (
	statementsContainer = "statements"
	ingestQueue         = "ingest-queue"
)

// HandleUpload accepts a statement file (pasted-text export or CSV),
// archives it in blob storage and queues it for ingestion. The actual
// parsing happens in ProcessQueue.
func (d *Dependencies) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		slog.Warn("upload attempt with invalid method", "method", r.Method, "path", r.URL.Path)
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// 10MB limit
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		slog.Warn("failed to parse multipart form", "error", err, "max_size_mb", 10)
		WriteError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "user_id form field is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Warn("failed to get file from form", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "filename", header.Filename, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	content := string(bytes)
	slog.Info("received statement upload", "user_id", userID, "filename", header.Filename, "size_bytes", len(bytes))

	timestamp := time.Now().Format("20060102-150405")
	filename := filepath.Base(header.Filename)
	blobName := fmt.Sprintf("%s/%s-%s", userID, timestamp, filename)

	if err := d.Blob.UploadText(r.Context(), statementsContainer, blobName, content); err != nil {
		slog.Error("failed to upload blob", "blob_name", blobName, "container", statementsContainer, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to upload blob: "+err.Error())
		return
	}

	msg := map[string]string{
		"blob_name": blobName,
		"user_id":   userID,
		"filename":  filename,
		"email":     r.FormValue("email"),
	}

	if err := d.Queue.EnqueueMessage(r.Context(), ingestQueue, msg); err != nil {
		slog.Error("failed to enqueue message", "queue", ingestQueue, "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue message: "+err.Error())
		return
	}
	slog.Info("statement queued for ingestion", "queue", ingestQueue, "user_id", userID, "blob_name", blobName)

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "success",
		"blobName": blobName,
	})
}
