package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/bondweb/internal/config"
)

func validRequest() Request {
	return Request{
		RequesterEmail:  "analyst@example.com",
		InstitutionName: "Nordic Bank",
		InstitutionURL:  "https://nordic.example",
		Comment:         "Large covered bond issuer",
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
		field  string
	}{
		{"valid", func(*Request) {}, ""},
		{"missing email", func(r *Request) { r.RequesterEmail = "  " }, "requesterEmail"},
		{"bad email", func(r *Request) { r.RequesterEmail = "not-an-email" }, "requesterEmail"},
		{"missing name", func(r *Request) { r.InstitutionName = "" }, "institutionName"},
		{"missing url", func(r *Request) { r.InstitutionURL = "" }, "institutionUrl"},
		{"non-http url", func(r *Request) { r.InstitutionURL = "ftp://x.example" }, "institutionUrl"},
		{"comment optional", func(r *Request) { r.Comment = "" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.modify(&r)
			err := r.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Errorf("Validate() error = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestFormspree_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/f/abc123" || r.Header.Get("Accept") != "application/json" {
			t.Errorf("path = %s accept = %s", r.URL.Path, r.Header.Get("Accept"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		got = make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := &Formspree{endpoint: srv.URL + "/f/abc123", client: srv.Client()}
	if err := f.Send(context.Background(), validRequest()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := map[string]string{
		"_replyto":         "analyst@example.com",
		"email":            "analyst@example.com",
		"institution_name": "Nordic Bank",
		"institution_url":  "https://nordic.example",
		"comment":          "Large covered bond issuer",
		"_subject":         "New Institution Request: Nordic Bank",
		"_format":          "plain",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("form %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestFormspree_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"Form not found"}`))
	}))
	defer srv.Close()

	f := &Formspree{endpoint: srv.URL, client: srv.Client()}
	err := f.Send(context.Background(), validRequest())

	var de *DeliveryError
	if !errors.As(err, &de) || de.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("Send() error = %v, want DeliveryError", err)
	}
	if !strings.Contains(err.Error(), "Form not found") {
		t.Errorf("error should carry remote message: %v", err)
	}
}

func TestWebhook_Send(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "admin@example.com", srv.Client())
	if err := w.Send(context.Background(), validRequest()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.To != "admin@example.com" || got.ReplyTo != "analyst@example.com" || !got.SendConfirmation {
		t.Errorf("payload = %+v", got)
	}
	if got.Subject != "New Institution Request: Nordic Bank" || got.InstitutionURL != "https://nordic.example" {
		t.Errorf("payload = %+v", got)
	}
}

func TestWebhook_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "a@example.com", srv.Client()).Send(context.Background(), validRequest())
	var de *DeliveryError
	if !errors.As(err, &de) || de.StatusCode != http.StatusBadGateway || de.Remote != "upstream down" {
		t.Errorf("Send() error = %#v", err)
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NotifyConfig
		want string
	}{
		{"formspree wins", config.NotifyConfig{FormspreeID: "abc", EmailAPIURL: "https://hook.example"}, "formspree"},
		{"webhook", config.NotifyConfig{EmailAPIURL: "https://hook.example", AdminEmail: "a@example.com"}, "webhook"},
		{"blank id ignored", config.NotifyConfig{FormspreeID: "  "}, "disabled"},
		{"nothing configured", config.NotifyConfig{}, "disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromConfig(tt.cfg).Name(); got != tt.want {
				t.Errorf("FromConfig().Name() = %s, want %s", got, tt.want)
			}
		})
	}

	if err := (Disabled{}).Send(context.Background(), validRequest()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Disabled.Send() = %v", err)
	}
}
