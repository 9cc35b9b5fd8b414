// Package notify delivers "request an institution" submissions to the
// site administrator through a hosted form service or a webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/bondweb/internal/config"
)

// ErrNotConfigured is returned by the Disabled sender.
var ErrNotConfigured = errors.New("email service not configured: set FORMSPREE_ID or EMAIL_API_URL")

// Request is a visitor's suggestion for a new directory entry.
type Request struct {
	RequesterEmail  string `json:"requesterEmail"`
	InstitutionName string `json:"institutionName"`
	InstitutionURL  string `json:"institutionUrl"`
	Comment         string `json:"comment,omitempty"`
}

// Subject is the message subject used by every sender.
func (r Request) Subject() string {
	return "New Institution Request: " + r.InstitutionName
}

// FieldError names the first invalid field of a Request.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate trims r in place and checks the required fields.
func (r *Request) Validate() error {
	r.RequesterEmail = strings.TrimSpace(r.RequesterEmail)
	r.InstitutionName = strings.TrimSpace(r.InstitutionName)
	r.InstitutionURL = strings.TrimSpace(r.InstitutionURL)
	r.Comment = strings.TrimSpace(r.Comment)

	switch {
	case r.RequesterEmail == "":
		return &FieldError{Field: "requesterEmail", Message: "is required"}
	case !validEmail(r.RequesterEmail):
		return &FieldError{Field: "requesterEmail", Message: "is not a valid email address"}
	case r.InstitutionName == "":
		return &FieldError{Field: "institutionName", Message: "is required"}
	case r.InstitutionURL == "":
		return &FieldError{Field: "institutionUrl", Message: "is required"}
	case !validURL(r.InstitutionURL):
		return &FieldError{Field: "institutionUrl", Message: "must be an http or https URL"}
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Sender delivers a request.
type Sender interface {
	Send(ctx context.Context, req Request) error
	Name() string
}

// DeliveryError is a non-2xx response from the delivery service.
type DeliveryError struct {
	Service    string
	StatusCode int
	Status     string
	Remote     string // error text from the response body, if any
}

func (e *DeliveryError) Error() string {
	if e.Remote != "" {
		return fmt.Sprintf("%s: %s", e.Service, e.Remote)
	}
	return fmt.Sprintf("%s: failed to send request: %s", e.Service, e.Status)
}

// FromConfig picks a sender: Formspree when an id is set, otherwise the
// webhook when a URL is set, otherwise Disabled.
func FromConfig(cfg config.NotifyConfig) Sender {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 10 * time.Second
	}
	switch {
	case strings.TrimSpace(cfg.FormspreeID) != "":
		return NewFormspree(strings.TrimSpace(cfg.FormspreeID), client)
	case strings.TrimSpace(cfg.EmailAPIURL) != "":
		return NewWebhook(strings.TrimSpace(cfg.EmailAPIURL), cfg.AdminEmail, client)
	}
	return Disabled{}
}

// Disabled rejects every request.
type Disabled struct{}

func (Disabled) Send(context.Context, Request) error { return ErrNotConfigured }
func (Disabled) Name() string                         { return "disabled" }
