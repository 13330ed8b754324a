package handler

import (
	"context"

	"github.com/jmercer-dev/runway/internal/models"
)

// MockDatabaseClient is a mock implementation of DatabaseClient
type MockDatabaseClient struct {
	SaveTransactionsFunc  func(ctx context.Context, userID string, transactions []models.Transaction) (int, error)
	ListTransactionsFunc  func(ctx context.Context, userID string) ([]models.Transaction, error)
	SaveIncomeSourceFunc  func(ctx context.Context, income models.IncomeSource) (bool, error)
	ListIncomeSourcesFunc func(ctx context.Context, userID string) ([]models.IncomeSource, error)
	SaveObligationFunc    func(ctx context.Context, ob models.RecurringObligation) (bool, error)
	ListObligationsFunc   func(ctx context.Context, userID string) ([]models.RecurringObligation, error)
	UpsertUserFunc        func(ctx context.Context, user models.User) error
	ListUsersFunc         func(ctx context.Context) ([]models.User, error)
}

func (m *MockDatabaseClient) SaveTransactions(ctx context.Context, userID string, transactions []models.Transaction) (int, error) {
	if m.SaveTransactionsFunc != nil {
		return m.SaveTransactionsFunc(ctx, userID, transactions)
	}
	return len(transactions), nil
}

func (m *MockDatabaseClient) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	if m.ListTransactionsFunc != nil {
		return m.ListTransactionsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockDatabaseClient) SaveIncomeSource(ctx context.Context, income models.IncomeSource) (bool, error) {
	if m.SaveIncomeSourceFunc != nil {
		return m.SaveIncomeSourceFunc(ctx, income)
	}
	return true, nil
}

func (m *MockDatabaseClient) ListIncomeSources(ctx context.Context, userID string) ([]models.IncomeSource, error) {
	if m.ListIncomeSourcesFunc != nil {
		return m.ListIncomeSourcesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockDatabaseClient) SaveObligation(ctx context.Context, ob models.RecurringObligation) (bool, error) {
	if m.SaveObligationFunc != nil {
		return m.SaveObligationFunc(ctx, ob)
	}
	return true, nil
}

func (m *MockDatabaseClient) ListObligations(ctx context.Context, userID string) ([]models.RecurringObligation, error) {
	if m.ListObligationsFunc != nil {
		return m.ListObligationsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockDatabaseClient) UpsertUser(ctx context.Context, user models.User) error {
	if m.UpsertUserFunc != nil {
		return m.UpsertUserFunc(ctx, user)
	}
	return nil
}

func (m *MockDatabaseClient) ListUsers(ctx context.Context) ([]models.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx)
	}
	return nil, nil
}

// MockBlobClient is a mock implementation of BlobClient
type MockBlobClient struct {
	UploadTextFunc   func(ctx context.Context, containerName, blobName, content string) error
	DownloadTextFunc func(ctx context.Context, containerName, blobName string) (string, error)
}

func (m *MockBlobClient) UploadText(ctx context.Context, containerName, blobName, content string) error {
	if m.UploadTextFunc != nil {
		return m.UploadTextFunc(ctx, containerName, blobName, content)
	}
	return nil
}

func (m *MockBlobClient) DownloadText(ctx context.Context, containerName, blobName string) (string, error) {
	if m.DownloadTextFunc != nil {
		return m.DownloadTextFunc(ctx, containerName, blobName)
	}
	return "", nil
}

// MockQueueClient is a mock implementation of QueueClient
type MockQueueClient struct {
	EnqueueMessageFunc func(ctx context.Context, queueName string, message any) error
}

func (m *MockQueueClient) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	if m.EnqueueMessageFunc != nil {
		return m.EnqueueMessageFunc(ctx, queueName, message)
	}
	return nil
}

// MockAlertClient is a mock implementation of AlertClient
type MockAlertClient struct {
	SendEmailFunc     func(ctx context.Context, to []string, subject, body string) error
	SendRiskAlertFunc func(ctx context.Context, to string, assessment models.RiskAssessment, rec models.Recommendation) error
}

func (m *MockAlertClient) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, body)
	}
	return nil
}

func (m *MockAlertClient) SendRiskAlert(ctx context.Context, to string, assessment models.RiskAssessment, rec models.Recommendation) error {
	if m.SendRiskAlertFunc != nil {
		return m.SendRiskAlertFunc(ctx, to, assessment, rec)
	}
	return nil
}
