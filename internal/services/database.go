package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"
	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
)

// DatabaseService is the keyed record store backed by Azure Table Storage.
// Transactions are append-only per user partition; income sources and
// obligations use insert-if-absent writes so detection reruns never create
// duplicates; the users table is the registry the nightly sweep walks.
type DatabaseService struct {
	tableURL          string
	transactionsTable string
	incomeTable       string
	obligationsTable  string
	usersTable        string
	credential        azcore.TokenCredential
}

// NewDatabaseService creates a new DatabaseService instance.
func NewDatabaseService() (*DatabaseService, error) {
	tableURL := os.Getenv("TABLE_SERVICE_URL")
	if tableURL == "" {
		return nil, fmt.Errorf("TABLE_SERVICE_URL environment variable is required")
	}

	transactionsTable := os.Getenv("TRANSACTIONS_TABLE")
	if transactionsTable == "" {
		transactionsTable = "transactions"
	}

	incomeTable := os.Getenv("INCOME_SOURCES_TABLE")
	if incomeTable == "" {
		incomeTable = "incomesources"
	}

	obligationsTable := os.Getenv("OBLIGATIONS_TABLE")
	if obligationsTable == "" {
		obligationsTable = "obligations"
	}

	usersTable := os.Getenv("USERS_TABLE")
	if usersTable == "" {
		usersTable = "users"
	}

	var cred azcore.TokenCredential
	var err error

	if isLocal(tableURL) {
		// Azurite shared key credentials are handled per-client in getClient
		cred = nil
	} else {
		cred, err = newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
	}

	svc := &DatabaseService{
		tableURL:          tableURL,
		transactionsTable: transactionsTable,
		incomeTable:       incomeTable,
		obligationsTable:  obligationsTable,
		usersTable:        usersTable,
		credential:        cred,
	}

	if err := svc.CreateTables(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return svc, nil
}

// CreateTables ensures all required tables exist.
func (s *DatabaseService) CreateTables(ctx context.Context) error {
	tables := []string{
		s.transactionsTable,
		s.incomeTable,
		s.obligationsTable,
		s.usersTable,
	}

	var svcClient *aztables.ServiceClient
	var err error

	if s.credential == nil {
		name, key := getAzuriteCredentials()
		cred, err := aztables.NewSharedKeyCredential(name, key)
		if err != nil {
			return err
		}
		svcClient, err = aztables.NewServiceClientWithSharedKey(s.tableURL, cred, nil)
		if err != nil {
			return err
		}
	} else {
		svcClient, err = aztables.NewServiceClient(s.tableURL, s.credential, nil)
		if err != nil {
			return err
		}
	}

	for _, tableName := range tables {
		_, err = svcClient.CreateTable(ctx, tableName, nil)
		if err != nil {
			var azErr *azcore.ResponseError
			if errors.As(err, &azErr) && azErr.ErrorCode == "TableAlreadyExists" {
				continue
			}
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
	}
	return nil
}

func (s *DatabaseService) getClient(tableName string) (*aztables.Client, error) {
	if s.credential == nil {
		name, key := getAzuriteCredentials()
		cred, err := aztables.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		return aztables.NewClientWithSharedKey(s.tableURL+"/"+tableName, cred, nil)
	}
	return aztables.NewClient(s.tableURL+"/"+tableName, s.credential, nil)
}

// SaveTransactions appends a batch of transactions to a user's ledger. All
// rows share the user's partition, so each submitted chunk commits
// all-or-nothing; a storage failure leaves no partial statement behind. The
// ledger does not deduplicate: resubmitting a statement appends new rows,
// dedup is the detector's job.
func (s *DatabaseService) SaveTransactions(ctx context.Context, userID string, transactions []models.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	client, err := s.getClient(s.transactionsTable)
	if err != nil {
		return 0, err
	}

	importedAt := time.Now().UTC().Format(time.RFC3339)
	var batch []aztables.TransactionAction

	for _, t := range transactions {
		entity := map[string]any{
			"PartitionKey": userID,
			"RowKey":       fmt.Sprintf("%d-%s", t.Timestamp, uuid.NewString()),
			"Amount":       t.Amount.InexactFloat64(),
			"Direction":    string(t.Direction),
			"Raw":          t.Raw,
			"Timestamp":    float64(t.Timestamp),
			"ImportedAt":   importedAt,
		}
		entityJSON, _ := json.Marshal(entity)
		batch = append(batch, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeAdd,
			Entity:     entityJSON,
		})
	}

	// Azure caps a table transaction at 100 actions
	const batchSize = 100
	for i := 0; i < len(batch); i += batchSize {
		end := i + batchSize
		if end > len(batch) {
			end = len(batch)
		}
		if _, err := client.SubmitTransaction(ctx, batch[i:end], nil); err != nil {
			return 0, fmt.Errorf("failed to submit transaction batch: %w", err)
		}
	}

	return len(batch), nil
}

// ListTransactions retrieves the full transaction history for a user.
func (s *DatabaseService) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	client, err := s.getClient(s.transactionsTable)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("PartitionKey eq '%s'", userID)
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var txs []models.Transaction
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}
		for _, entity := range resp.Entities {
			var parsed map[string]any
			if err := json.Unmarshal(entity, &parsed); err != nil {
				continue
			}
			txs = append(txs, models.Transaction{
				UserID:    userID,
				Amount:    getDecimal(parsed, "Amount"),
				Direction: models.Direction(getString(parsed, "Direction")),
				Raw:       getString(parsed, "Raw"),
				Timestamp: getInt64(parsed, "Timestamp"),
			})
		}
	}
	return txs, nil
}

// SaveIncomeSource inserts an income source keyed by (user, amount bucket).
// Returns false when an entity already exists under that key: the first
// detected income wins and detection reruns are no-ops.
func (s *DatabaseService) SaveIncomeSource(ctx context.Context, income models.IncomeSource) (bool, error) {
	client, err := s.getClient(s.incomeTable)
	if err != nil {
		return false, err
	}

	entity := map[string]any{
		"PartitionKey": income.UserID,
		"RowKey":       "BUCKET_" + income.Amount.StringFixed(0),
		"Amount":       income.Amount.InexactFloat64(),
		"IntervalDays": income.IntervalDays,
		"Confidence":   income.Confidence,
		"LastSeen":     float64(income.LastSeen),
	}
	entityJSON, _ := json.Marshal(entity)

	if _, err := client.AddEntity(ctx, entityJSON, nil); err != nil {
		var azErr *azcore.ResponseError
		if errors.As(err, &azErr) && azErr.ErrorCode == "EntityAlreadyExists" {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert income source: %w", err)
	}
	return true, nil
}

// ListIncomeSources retrieves all inferred income sources for a user.
func (s *DatabaseService) ListIncomeSources(ctx context.Context, userID string) ([]models.IncomeSource, error) {
	client, err := s.getClient(s.incomeTable)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("PartitionKey eq '%s'", userID)
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var incomes []models.IncomeSource
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list income sources: %w", err)
		}
		for _, entity := range resp.Entities {
			var parsed map[string]any
			if err := json.Unmarshal(entity, &parsed); err != nil {
				continue
			}
			incomes = append(incomes, models.IncomeSource{
				UserID:       userID,
				Amount:       getDecimal(parsed, "Amount"),
				IntervalDays: int(getInt64(parsed, "IntervalDays")),
				Confidence:   getFloat(parsed, "Confidence"),
				LastSeen:     getInt64(parsed, "LastSeen"),
			})
		}
	}
	return incomes, nil
}

// SaveObligation inserts a recurring obligation keyed by (user, merchant).
// Returns false when the merchant is already recorded for the user.
func (s *DatabaseService) SaveObligation(ctx context.Context, ob models.RecurringObligation) (bool, error) {
	client, err := s.getClient(s.obligationsTable)
	if err != nil {
		return false, err
	}

	entity := map[string]any{
		"PartitionKey": ob.UserID,
		"RowKey":       "MERCHANT_" + sha256Hex(ob.Merchant),
		"Merchant":     ob.Merchant,
		"Amount":       ob.Amount.InexactFloat64(),
		"IntervalDays": ob.IntervalDays,
		"Confidence":   ob.Confidence,
		"LastSeen":     float64(ob.LastSeen),
	}
	entityJSON, _ := json.Marshal(entity)

	if _, err := client.AddEntity(ctx, entityJSON, nil); err != nil {
		var azErr *azcore.ResponseError
		if errors.As(err, &azErr) && azErr.ErrorCode == "EntityAlreadyExists" {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert obligation: %w", err)
	}
	return true, nil
}

// ListObligations retrieves all inferred recurring obligations for a user.
func (s *DatabaseService) ListObligations(ctx context.Context, userID string) ([]models.RecurringObligation, error) {
	client, err := s.getClient(s.obligationsTable)
	if err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("PartitionKey eq '%s'", userID)
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var obligations []models.RecurringObligation
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list obligations: %w", err)
		}
		for _, entity := range resp.Entities {
			var parsed map[string]any
			if err := json.Unmarshal(entity, &parsed); err != nil {
				continue
			}
			obligations = append(obligations, models.RecurringObligation{
				UserID:       userID,
				Merchant:     getString(parsed, "Merchant"),
				Amount:       getDecimal(parsed, "Amount"),
				IntervalDays: int(getInt64(parsed, "IntervalDays")),
				Confidence:   getFloat(parsed, "Confidence"),
				LastSeen:     getInt64(parsed, "LastSeen"),
			})
		}
	}
	return obligations, nil
}

// UpsertUser records a user in the sweep registry. Last write wins; the
// email is refreshed on every ingest that carries one.
func (s *DatabaseService) UpsertUser(ctx context.Context, user models.User) error {
	client, err := s.getClient(s.usersTable)
	if err != nil {
		return err
	}

	entity := map[string]any{
		"PartitionKey": "USERS",
		"RowKey":       user.UserID,
		"Email":        user.Email,
	}
	entityJSON, _ := json.Marshal(entity)

	if _, err := client.UpsertEntity(ctx, entityJSON, nil); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// ListUsers retrieves every registered user.
func (s *DatabaseService) ListUsers(ctx context.Context) ([]models.User, error) {
	client, err := s.getClient(s.usersTable)
	if err != nil {
		return nil, err
	}

	filter := "PartitionKey eq 'USERS'"
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var users []models.User
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		for _, entity := range resp.Entities {
			var parsed map[string]any
			if err := json.Unmarshal(entity, &parsed); err != nil {
				continue
			}
			users = append(users, models.User{
				UserID: getString(parsed, "RowKey"),
				Email:  getString(parsed, "Email"),
			})
		}
	}
	return users, nil
}

func sha256Hex(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

func getString(parsed map[string]any, key string) string {
	if v, ok := parsed[key].(string); ok {
		return v
	}
	return ""
}

func getDecimal(parsed map[string]any, key string) decimal.Decimal {
	if v, ok := parsed[key].(string); ok {
		d, _ := decimal.NewFromString(v)
		return d
	}
	if v, ok := parsed[key].(float64); ok {
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}

func getFloat(parsed map[string]any, key string) float64 {
	if v, ok := parsed[key].(float64); ok {
		return v
	}
	return 0
}

func getInt64(parsed map[string]any, key string) int64 {
	switch v := parsed[key].(type) {
	case float64:
		return int64(v)
	case string:
		var i int64
		fmt.Sscanf(v, "%d", &i)
		return i
	}
	return 0
}
