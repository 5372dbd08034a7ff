package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrEmailNotConfigured is returned when no Resend API key is set.
var ErrEmailNotConfigured = errors.New("email delivery not configured: missing Resend API key")

// EmailSender dispatches one HTML email. An empty recipients slice falls
// back to the sender's configured list. Implemented by ResendClient.
type EmailSender interface {
	Send(ctx context.Context, subject, htmlBody string, recipients []string) error
}

// ResendClient sends report emails through the Resend API.
type ResendClient struct {
	apiKey     string
	baseURL    string
	from       string
	recipients []string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewResendClient(apiKey, baseURL, from string, recipients []string, logger *logrus.Logger) *ResendClient {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &ResendClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		from:       from,
		recipients: recipients,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send dispatches the email to every recipient in one call. Callers that
// pass no recipients get the configured list.
func (c *ResendClient) Send(ctx context.Context, subject, htmlBody string, recipients []string) error {
	if c.apiKey == "" {
		return ErrEmailNotConfigured
	}
	if len(recipients) == 0 {
		recipients = c.recipients
	}
	if len(recipients) == 0 {
		return errors.New("no report recipients configured")
	}

	payload, err := json.Marshal(resendRequest{
		From:    c.from,
		To:      recipients,
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr resendResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("resend returned status %d", resp.StatusCode)
	}

	var sent resendResponse
	if err := json.Unmarshal(body, &sent); err == nil && sent.ID != "" {
		c.logger.WithFields(logrus.Fields{
			"email_id":   sent.ID,
			"recipients": len(recipients),
		}).Info("Report email dispatched")
	}
	return nil
}
