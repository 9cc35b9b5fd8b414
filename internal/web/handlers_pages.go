package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bondweb/internal/logging"
	"github.com/JonMunkholm/bondweb/internal/notify"
	"github.com/JonMunkholm/bondweb/internal/web/templates"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	stats := s.svc.Stats(r.Context())
	s.render(w, r, http.StatusOK, templates.Home(s.nav(r, ""), stats))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	def, err := s.svc.Dataset(key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query().Get("q")
	records, total, err := s.svc.Search(r.Context(), key, q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, templates.List(s.nav(r, key), templates.ListView{
		Def:     def,
		Records: records,
		Total:   total,
		Query:   q,
	}))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	def, err := s.svc.Dataset(key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.svc.Get(r.Context(), key, chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, templates.Detail(s.nav(r, key), templates.DetailView{Def: def, Record: rec}))
}

func (s *Server) handleRequestForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, templates.RequestForm(s.nav(r, ""), templates.RequestView{
		Disabled: s.requestsDisabled(),
	}))
}

func (s *Server) handleRequestSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errBadForm)
		return
	}
	req := notify.Request{
		RequesterEmail:  r.PostFormValue("requesterEmail"),
		InstitutionName: r.PostFormValue("institutionName"),
		InstitutionURL:  r.PostFormValue("institutionUrl"),
		Comment:         r.PostFormValue("comment"),
	}
	view := templates.RequestView{Form: req, Disabled: s.requestsDisabled()}
	if view.Disabled {
		s.render(w, r, http.StatusServiceUnavailable, templates.RequestForm(s.nav(r, ""), view))
		return
	}

	if err := req.Validate(); err != nil {
		view.Form, view.Error = req, err.Error()
		s.render(w, r, http.StatusBadRequest, templates.RequestForm(s.nav(r, ""), view))
		return
	}

	ctx := r.Context()
	if d := s.cfg.Notify.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	log := logging.WithFields(ctx, "sender", s.sender.Name(), "institution", req.InstitutionName)
	if err := s.sender.Send(ctx, req); err != nil {
		log.Error("institution request failed", "error", err)
		view.Form, view.Error = req, requestFailure(err)
		s.render(w, r, http.StatusBadGateway, templates.RequestForm(s.nav(r, ""), view))
		return
	}
	log.Info("institution request sent")

	s.render(w, r, http.StatusOK, templates.RequestForm(s.nav(r, ""), templates.RequestView{Sent: true}))
}

func (s *Server) requestsDisabled() bool {
	_, off := s.sender.(notify.Disabled)
	return off
}

// requestFailure is the message shown when delivery fails. The remote
// service's own error text is passed through when it sent one.
func requestFailure(err error) string {
	var de *notify.DeliveryError
	if errors.As(err, &de) && de.Remote != "" {
		return "Failed to send request: " + de.Remote
	}
	return "Failed to send request. Please try again later."
}
