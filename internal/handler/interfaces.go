package handler

import (
	"context"

	"github.com/jmercer-dev/runway/internal/models"
)

// DatabaseClient defines the record-store operations used by handlers.
type DatabaseClient interface {
	SaveTransactions(ctx context.Context, userID string, transactions []models.Transaction) (int, error)
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)

	SaveIncomeSource(ctx context.Context, income models.IncomeSource) (bool, error)
	ListIncomeSources(ctx context.Context, userID string) ([]models.IncomeSource, error)

	SaveObligation(ctx context.Context, ob models.RecurringObligation) (bool, error)
	ListObligations(ctx context.Context, userID string) ([]models.RecurringObligation, error)

	UpsertUser(ctx context.Context, user models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// BlobClient defines the interface for blob storage operations used by handlers.
type BlobClient interface {
	UploadText(ctx context.Context, containerName, blobName, content string) error
	DownloadText(ctx context.Context, containerName, blobName string) (string, error)
}

// QueueClient defines the interface for queue operations used by handlers.
type QueueClient interface {
	EnqueueMessage(ctx context.Context, queueName string, message any) error
}

// AlertClient defines the interface for risk alert delivery used by handlers.
type AlertClient interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
	SendRiskAlert(ctx context.Context, to string, assessment models.RiskAssessment, rec models.Recommendation) error
}
