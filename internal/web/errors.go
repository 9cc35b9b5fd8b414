package web

// errors.go turns service errors into responses. The technical error is
// logged with the request id; the client gets the core.MapError message as
// JSON under /api and as an HTML page elsewhere.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/gateway"
	"github.com/JonMunkholm/bondweb/internal/logging"
	"github.com/JonMunkholm/bondweb/internal/tabular"
	"github.com/JonMunkholm/bondweb/internal/web/templates"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errBadBody     = core.ValidationError{Message: "request body must be a JSON object"}
	errBadForm     = core.ValidationError{Message: "could not read the submitted form"}
)

// ErrorResponse is the JSON body of a failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status of err.
func statusFor(err error) int {
	var (
		loadErr *tabular.LoadError
		gwErr   *gateway.GatewayError
	)
	switch {
	case errors.Is(err, core.ErrUnknownDataset),
		errors.Is(err, core.ErrNotFound),
		errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case core.IsValidation(err):
		return http.StatusBadRequest
	case core.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &loadErr), errors.As(err, &gwErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	if wantsJSON(r) {
		respondErrorJSON(w, msg, status)
		return
	}

	view := templates.ErrorView{
		Title:   http.StatusText(status),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		BackURL: s.nav(r, "").URL(),
	}
	var loadErr *tabular.LoadError
	if errors.As(err, &loadErr) {
		view.Title = "Could not load data"
		view.Location = loadErr.Location
		view.RetryURL = r.URL.RequestURI()
	}
	s.render(w, r, status, templates.ErrorPage(s.nav(r, ""), view))
}

// writeMessage writes msg without a Server, for middleware.
func writeMessage(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	if wantsJSON(r) {
		respondErrorJSON(w, msg, status)
		return
	}
	http.Error(w, msg.Message+" ("+msg.Code+")", status)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// wantsJSON reports whether the client should get JSON: API paths and
// clients asking for it.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
