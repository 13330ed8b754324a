package parser

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/jmercer-dev/runway/internal/models"
	"github.com/shopspring/decimal"
)

// ParseCSV parses transactions from an exported CSV statement
// (Date,Description,Amount with a header row). It returns the valid
// transactions and an error message per invalid row.
func ParseCSV(content string) ([]models.Transaction, []string) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to read CSV: %v", err)}
	}

	if len(records) < 2 {
		return []models.Transaction{}, nil // Empty or header-only
	}

	headers := parseHeaders(records[0])
	var transactions []models.Transaction
	var errors []string

	for i, record := range records[1:] {
		rowNum := i + 2
		if len(record) < len(headers) {
			errors = append(errors, fmt.Sprintf("Row %d: Not enough fields", rowNum))
			continue
		}

		rowMap := make(map[string]string)
		for j, header := range headers {
			if j < len(record) {
				rowMap[header] = strings.TrimSpace(record[j])
			}
		}

		t, err := mapToTransaction(rowMap)
		if err != nil {
			errors = append(errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		transactions = append(transactions, *t)
	}

	return transactions, errors
}

func parseHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}

func mapToTransaction(row map[string]string) (*models.Transaction, error) {
	dateStr := row["Date"]
	if dateStr == "" {
		return nil, fmt.Errorf("missing Date")
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid Date format: %s", dateStr)
	}

	description := row["Description"]
	if description == "" {
		return nil, fmt.Errorf("missing Description")
	}

	amountStr := row["Amount"]
	if amountStr == "" {
		return nil, fmt.Errorf("missing Amount")
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(amountStr, ",", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid Amount: %s", amountStr)
	}

	// CSV exports carry the sign on the amount; negative means debit.
	direction := models.DirectionCredit
	if amount.IsNegative() {
		direction = models.DirectionDebit
	}

	return &models.Transaction{
		Amount:    amount.Abs(),
		Direction: direction,
		Raw:       description,
		Timestamp: date.Unix(),
	}, nil
}
