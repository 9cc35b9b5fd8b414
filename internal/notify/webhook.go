package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Webhook posts requests as JSON to a serverless email function, which
// forwards them to the administrator and confirms to the requester.
type Webhook struct {
	url        string
	adminEmail string
	client     *http.Client
}

// NewWebhook returns a sender posting to url on behalf of adminEmail.
func NewWebhook(url, adminEmail string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{url: url, adminEmail: adminEmail, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

type webhookPayload struct {
	To               string `json:"to"`
	ReplyTo          string `json:"replyTo"`
	Subject          string `json:"subject"`
	RequesterEmail   string `json:"requesterEmail"`
	InstitutionName  string `json:"institutionName"`
	InstitutionURL   string `json:"institutionUrl"`
	Comment          string `json:"comment"`
	SendConfirmation bool   `json:"sendConfirmation"`
}

func (w *Webhook) Send(ctx context.Context, req Request) error {
	data, err := json.Marshal(webhookPayload{
		To:               w.adminEmail,
		ReplyTo:          req.RequesterEmail,
		Subject:          req.Subject(),
		RequesterEmail:   req.RequesterEmail,
		InstitutionName:  req.InstitutionName,
		InstitutionURL:   req.InstitutionURL,
		Comment:          req.Comment,
		SendConfirmation: true,
	})
	if err != nil {
		return fmt.Errorf("webhook: encode: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &DeliveryError{
			Service:    "webhook",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Remote:     strings.TrimSpace(string(text)),
		}
	}
	return nil
}
