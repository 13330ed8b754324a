package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/jmercer-dev/runway/internal/models"
)

// AlertService delivers cash-risk alerts via the Azure Communication
// Services email REST API.
type AlertService struct {
	endpoint   string
	sender     string
	cred       azcore.TokenCredential
	httpClient *http.Client
}

// NewAlertService creates a new AlertService instance.
// If cred is nil, it defaults to using DefaultAzureCredential.
func NewAlertService(cred azcore.TokenCredential) (*AlertService, error) {
	endpoint := os.Getenv("COMMUNICATION_SERVICES_ENDPOINT")
	if endpoint == "" {
		return nil, fmt.Errorf("COMMUNICATION_SERVICES_ENDPOINT environment variable is required")
	}

	sender := os.Getenv("SENDER_EMAIL")
	if sender == "" {
		return nil, fmt.Errorf("SENDER_EMAIL environment variable is required")
	}

	if cred == nil {
		var err error
		cred, err = newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
	}

	return &AlertService{
		endpoint:   endpoint,
		sender:     sender,
		cred:       cred,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type emailAddress struct {
	Address string `json:"address"`
}

type emailRecipients struct {
	To []emailAddress `json:"to"`
}

type emailContent struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type emailRequest struct {
	SenderAddress string          `json:"senderAddress"`
	Content       emailContent    `json:"content"`
	Recipients    emailRecipients `json:"recipients"`
}

// SendEmail sends an email to the specified recipients using the REST API.
func (s *AlertService) SendEmail(ctx context.Context, to []string, subject, body string) error {
	token, err := s.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{"https://communication.azure.com//.default"},
	})
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	recipients := make([]emailAddress, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, emailAddress{Address: addr})
	}

	payload := emailRequest{
		SenderAddress: s.sender,
		Content:       emailContent{Subject: subject, HTML: body},
		Recipients:    emailRecipients{To: recipients},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	url := fmt.Sprintf("%s/emails:send?api-version=2023-03-31", s.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email send failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	slog.Info("risk alert email sent", "recipients", len(to), "subject", subject)
	return nil
}

// SendRiskAlert formats and delivers an alert for an at-risk user.
func (s *AlertService) SendRiskAlert(ctx context.Context, to string, assessment models.RiskAssessment, rec models.Recommendation) error {
	subject := "Cash runway alert: safety buffer at risk"
	if assessment.DaysLeft == 0 {
		subject = "Cash runway alert: balance below safety buffer"
	}

	body := fmt.Sprintf(`
		<h3>Cash Runway Alert</h3>
		<p>%s</p>
		<p>Current balance: <b>$%s</b></p>
		<p>Days until buffer breach: <b>%d</b></p>
	`, assessment.Message, assessment.CurrentBalance.StringFixed(2), assessment.DaysLeft)

	if rec.Action != models.ActionNone {
		body += fmt.Sprintf("<p>Suggested action: %s</p>", rec.Message)
	}

	return s.SendEmail(ctx, []string{to}, subject, body)
}
