package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jmercer-dev/runway/internal/handler"
	"github.com/jmercer-dev/runway/internal/services"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	// Initialize Services
	dbService, err := services.NewDatabaseService()
	if err != nil {
		slog.Error("Failed to init DatabaseService", "error", err)
		os.Exit(1)
	}

	blobService, err := services.NewBlobService()
	if err != nil {
		slog.Error("Failed to init BlobService", "error", err)
		os.Exit(1)
	}

	queueService, err := services.NewQueueService()
	if err != nil {
		slog.Error("Failed to init QueueService", "error", err)
		os.Exit(1)
	}

	deps := &handler.Dependencies{
		Database:    dbService,
		Blob:        blobService,
		Queue:       queueService,
		BufferLimit: bufferLimitFromEnv(),
	}

	// Alert delivery is optional; without it the nightly sweep still runs
	// and logs, it just cannot email anyone.
	if alertService, err := services.NewAlertService(nil); err != nil {
		slog.Warn("Failed to init AlertService (continuing without alerts)", "error", err)
	} else {
		deps.Alerts = alertService
	}

	// Router
	mux := http.NewServeMux()

	// API Routes
	mux.HandleFunc("POST /api/statement", deps.HandleStatement)
	mux.HandleFunc("POST /api/upload", deps.HandleUpload)

	mux.HandleFunc("GET /api/forecast", deps.HandleForecast)
	mux.HandleFunc("GET /api/simulate", deps.HandleSimulation)
	mux.HandleFunc("GET /api/risk", deps.HandleRisk)
	mux.HandleFunc("GET /api/action", deps.HandleAction)

	// Adapter for HTTP Trigger (since enableForwardingHttpRequest is false)
	mux.HandleFunc("/HttpTrigger", deps.HandleHttpTrigger(mux))

	// Use simpler path matching for triggers to avoid method mismatch issues
	mux.HandleFunc("/ProcessQueue", deps.ProcessQueue)
	mux.HandleFunc("/NightlyTrigger", deps.HandleNightlyTrigger)

	// Health check (optional, good for debugging)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Get port from environment or default to 8080
	port := os.Getenv("FUNCTIONS_CUSTOMHANDLER_PORT")
	if port == "" {
		port = "8080"
	}

	// Wrap mux with logging middleware
	loggedMux := loggingMiddleware(mux)

	slog.Info("Starting server", "port", port)
	if err := http.ListenAndServe(":"+port, loggedMux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// bufferLimitFromEnv reads the safety buffer override, keeping the default
// when unset or unparseable.
func bufferLimitFromEnv() decimal.Decimal {
	raw := os.Getenv("BUFFER_LIMIT")
	if raw == "" {
		return decimal.Decimal{}
	}
	limit, err := decimal.NewFromString(raw)
	if err != nil || !limit.IsPositive() {
		slog.Warn("ignoring invalid BUFFER_LIMIT", "value", raw)
		return decimal.Decimal{}
	}
	return limit
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Read body for logging (and restore it)
		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		slog.Debug("incoming request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_length", r.ContentLength,
		)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		slog.Info("request completed", "method", r.Method, "path", r.URL.Path, "status", rw.status, "duration", duration)
	})
}
