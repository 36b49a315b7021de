package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// Notifier delivers out-of-band notifications.
type Notifier interface {
	SendTaskShared(ctx context.Context, to, sharerName, taskTitle, taskID string) error
}

type EmailService struct {
	apiKey      string
	fromEmail   string
	frontendURL string
	endpoint    string
	httpClient  *http.Client
}

func NewEmailService(apiKey, fromEmail, frontendURL string) *EmailService {
	return &EmailService{
		apiKey:      apiKey,
		fromEmail:   fromEmail,
		frontendURL: frontendURL,
		endpoint:    resendEndpoint,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *EmailService) Enabled() bool { return s.apiKey != "" }

func (s *EmailService) SendTaskShared(ctx context.Context, to, sharerName, taskTitle, taskID string) error {
	if !s.Enabled() {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	taskURL := fmt.Sprintf("%s/tasks/%s", s.frontendURL, taskID)
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <p>Hello,</p>
    <p><strong>%s</strong> shared the task <strong>"%s"</strong> with you.</p>
    <p><a href="%s" style="background: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">Open task</a></p>
  </div>
</body>
</html>`, html.EscapeString(sharerName), html.EscapeString(taskTitle), taskURL)

	return s.send(ctx, to, fmt.Sprintf("%s shared a task with you", sharerName), body)
}

func (s *EmailService) send(ctx context.Context, to, subject, htmlBody string) error {
	jsonData, err := json.Marshal(map[string]interface{}{
		"from":    fmt.Sprintf("Team CRM <%s>", s.fromEmail),
		"to":      []string{to},
		"subject": subject,
		"html":    htmlBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send email: status %d", resp.StatusCode)
	}
	return nil
}
