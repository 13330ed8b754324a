package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func postStatement(t *testing.T, deps *Dependencies, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/statement", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	deps.HandleStatement(rec, req)
	return rec
}

func TestHandleStatement_Success(t *testing.T) {
	var saved []models.Transaction
	var upsertedUser *models.User

	mockDB := &MockDatabaseClient{
		SaveTransactionsFunc: func(ctx context.Context, userID string, transactions []models.Transaction) (int, error) {
			saved = transactions
			return len(transactions), nil
		},
		ListTransactionsFunc: func(ctx context.Context, userID string) ([]models.Transaction, error) {
			return saved, nil
		},
		UpsertUserFunc: func(ctx context.Context, user models.User) error {
			upsertedUser = &user
			return nil
		},
	}
	deps := &Dependencies{Database: mockDB}

	rec := postStatement(t, deps, statementRequest{
		UserID: "user1",
		Email:  "user1@example.com",
		Text: "01/10/2025 SALARY 3500.00\n" +
			"02/10/2025 RENT -1200.00\n" +
			"bad line\n" +
			"05/10/2025 NETFLIX -15.99",
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp statementResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Inserted)
	assert.Equal(t, 1, resp.Skipped)

	assert.Len(t, saved, 3)
	for _, tx := range saved {
		assert.Equal(t, "user1", tx.UserID)
	}
	assert.True(t, saved[0].Amount.Equal(decimal.RequireFromString("3500.00")))

	assert.NotNil(t, upsertedUser)
	assert.Equal(t, "user1@example.com", upsertedUser.Email)
}

func TestHandleStatement_RunsDetection(t *testing.T) {
	// A history with two salary credits a month apart must yield one income
	// source write after ingest.
	history := []models.Transaction{
		{UserID: "user1", Amount: decimal.NewFromInt(3500), Direction: models.DirectionCredit, Raw: "salary", Timestamp: 1756684800}, // 2025-09-01
		{UserID: "user1", Amount: decimal.NewFromInt(3500), Direction: models.DirectionCredit, Raw: "salary", Timestamp: 1759276800}, // 2025-10-01
	}

	var savedIncomes []models.IncomeSource
	mockDB := &MockDatabaseClient{
		ListTransactionsFunc: func(ctx context.Context, userID string) ([]models.Transaction, error) {
			return history, nil
		},
		SaveIncomeSourceFunc: func(ctx context.Context, income models.IncomeSource) (bool, error) {
			savedIncomes = append(savedIncomes, income)
			return true, nil
		},
	}
	deps := &Dependencies{Database: mockDB}

	rec := postStatement(t, deps, statementRequest{
		UserID: "user1",
		Text:   "01/10/2025 SALARY 3500.00",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, savedIncomes, 1)
	assert.True(t, savedIncomes[0].Amount.Equal(decimal.NewFromInt(3500)))
	assert.Equal(t, 30, savedIncomes[0].IntervalDays)
}

func TestHandleStatement_NoParseableLines(t *testing.T) {
	deps := &Dependencies{Database: &MockDatabaseClient{}}

	rec := postStatement(t, deps, statementRequest{
		UserID: "user1",
		Text:   "nothing here\nstill nothing",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No parseable transactions")
}

func TestHandleStatement_MissingUserID(t *testing.T) {
	deps := &Dependencies{Database: &MockDatabaseClient{}}

	rec := postStatement(t, deps, statementRequest{Text: "01/10/2025 SALARY 3500.00"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_id is required")
}

func TestHandleStatement_InvalidJSON(t *testing.T) {
	deps := &Dependencies{Database: &MockDatabaseClient{}}

	req := httptest.NewRequest(http.MethodPost, "/api/statement", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	deps.HandleStatement(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatement_SaveFailure(t *testing.T) {
	mockDB := &MockDatabaseClient{
		SaveTransactionsFunc: func(ctx context.Context, userID string, transactions []models.Transaction) (int, error) {
			return 0, assert.AnError
		},
	}
	deps := &Dependencies{Database: mockDB}

	rec := postStatement(t, deps, statementRequest{
		UserID: "user1",
		Text:   "01/10/2025 SALARY 3500.00",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to save transactions")
}

func TestHandleStatement_DetectionFailureDoesNotFailIngest(t *testing.T) {
	mockDB := &MockDatabaseClient{
		ListTransactionsFunc: func(ctx context.Context, userID string) ([]models.Transaction, error) {
			return nil, assert.AnError
		},
	}
	deps := &Dependencies{Database: mockDB}

	rec := postStatement(t, deps, statementRequest{
		UserID: "user1",
		Text:   "01/10/2025 SALARY 3500.00",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}
