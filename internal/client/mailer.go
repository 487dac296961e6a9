// HTTP client for the transactional mail relay.
//
// Configuration:
//   - MAIL_RELAY_URL: relay endpoint accepting JSON messages
//   - MAIL_API_KEY: bearer key for the relay
//   - MAIL_FROM: sender address
//
// When the relay is not configured the client logs the message instead of
// failing, so local environments work without a mail provider.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/staynest/backend/internal/config"
)

type Mailer struct {
	relayURL   string
	apiKey     string
	from       string
	httpClient *http.Client
}

type mailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

type mailRelayResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func NewMailer(cfg config.MailerConfig) *Mailer {
	return &Mailer{
		relayURL: cfg.RelayURL,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (m *Mailer) IsConfigured() bool {
	return m.relayURL != "" && m.apiKey != ""
}

// SendPasswordReset delivers the reset token to the account's mailbox.
func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) error {
	if !m.IsConfigured() {
		log.Printf("[MAILER] relay not configured; reset token for %s: %s", email, token)
		return nil
	}

	msg := mailMessage{
		From:    m.from,
		To:      email,
		Subject: "Reset your StayNest password",
		Text:    "Use this token to reset your password within 24 hours: " + token,
	}
	return m.send(ctx, msg)
}

func (m *Mailer) send(ctx context.Context, msg mailMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.relayURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var relayResp mailRelayResponse
	if err := json.Unmarshal(body, &relayResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !relayResp.OK {
		return fmt.Errorf("mail relay error: %s", relayResp.Error)
	}
	return nil
}
