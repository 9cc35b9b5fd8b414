package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// FormspreeEndpoint is the form submission URL prefix.
const FormspreeEndpoint = "https://formspree.io/f/"

// Formspree posts requests to a Formspree form as multipart form data.
type Formspree struct {
	endpoint string
	client   *http.Client
}

// NewFormspree returns a sender for the form with id.
func NewFormspree(id string, client *http.Client) *Formspree {
	if client == nil {
		client = http.DefaultClient
	}
	return &Formspree{endpoint: FormspreeEndpoint + id, client: client}
}

func (f *Formspree) Name() string { return "formspree" }

func (f *Formspree) Send(ctx context.Context, req Request) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, kv := range [][2]string{
		{"_replyto", req.RequesterEmail},
		{"email", req.RequesterEmail},
		{"institution_name", req.InstitutionName},
		{"institution_url", req.InstitutionURL},
		{"comment", req.Comment},
		{"_subject", req.Subject()},
		{"_format", "plain"},
	} {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return fmt.Errorf("formspree: encode form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("formspree: encode form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, &body)
	if err != nil {
		return fmt.Errorf("formspree: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("formspree: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &payload)
		return &DeliveryError{
			Service:    "formspree",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Remote:     payload.Error,
		}
	}
	return nil
}
