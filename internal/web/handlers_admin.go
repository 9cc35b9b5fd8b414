package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bondweb/internal/auth"
	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/logging"
	"github.com/JonMunkholm/bondweb/internal/record"
	"github.com/JonMunkholm/bondweb/internal/web/middleware"
	"github.com/JonMunkholm/bondweb/internal/web/templates"
)

// notices are the success messages the admin panel shows after a
// redirect, keyed by the notice query parameter.
var notices = map[string]string{
	"created":       "Record added.",
	"updated":       "Record updated.",
	"deleted":       "Record deleted.",
	"field-added":   "Field added.",
	"field-removed": "Field removed.",
	"cleared":       "Local edits cleared.",
	"cleared-all":   "Local edits of every dataset cleared.",
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if s.auth.IsEditor(r) {
		s.redirect(w, r, "admin")
		return
	}
	s.render(w, r, http.StatusOK, templates.Login(s.nav(r, "admin"), templates.LoginView{
		Disabled: !s.auth.LoginEnabled(),
	}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, errBadForm)
		return
	}

	err := s.auth.Login(w, r.PostFormValue("password"))
	switch {
	case err == nil:
		logging.FromContext(r.Context()).Info("admin login", "ip", middleware.ClientIP(r))
		s.redirect(w, r, "admin")
	case errors.Is(err, auth.ErrLoginDisabled):
		s.render(w, r, http.StatusForbidden, templates.Login(s.nav(r, "admin"), templates.LoginView{Disabled: true}))
	default:
		logging.FromContext(r.Context()).Warn("admin login failed", "ip", middleware.ClientIP(r))
		s.render(w, r, http.StatusUnauthorized, templates.Login(s.nav(r, "admin"), templates.LoginView{
			Error: "Incorrect password",
		}))
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(w, r)
	s.redirect(w, r)
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	s.redirect(w, r, "admin", "login")
}

func (s *Server) handleAdminIndex(w http.ResponseWriter, r *http.Request) {
	links := s.editableLinks()
	if len(links) == 0 {
		s.respondError(w, r, fmt.Errorf("%w: no editable datasets", core.ErrUnknownDataset))
		return
	}
	s.redirect(w, r, "admin", links[0].Key)
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	s.renderAdmin(w, r, chi.URLParam(r, "dataset"), http.StatusOK, record.Record{}, nil)
}

// renderAdmin shows the admin panel of key. form and formErr carry a
// rejected submission back to the add form.
func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, key string, status int, form record.Record, formErr error) {
	def, err := s.editableDataset(key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := r.Context()
	q := r.URL.Query().Get("q")
	records, total, err := s.svc.Search(ctx, key, q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	view := templates.AdminView{
		Def:      def,
		Backend:  s.svc.Backend(key),
		Records:  records,
		Total:    total,
		Query:    q,
		Form:     form,
		Notice:   notices[r.URL.Query().Get("notice")],
		Editable: s.editableLinks(),
	}
	if formErr != nil {
		view.Error = core.MapError(formErr)
	}
	if view.Backend == config.BackendCSV {
		ov, err := s.svc.Overlay(ctx, key)
		if err != nil {
			logging.FromContext(ctx).Warn("admin: overlay unavailable", "dataset", key, "error", err)
		}
		view.CustomFields = ov.CustomFields
		view.Pending = ov.Counts()
	}
	s.render(w, r, status, templates.Admin(s.nav(r, "admin"), view))
}

func (s *Server) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	def, err := s.editableDataset(key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := s.withRequestMetadata(r.Context(), r)
	rec := formRecord(r, def.FormFields, s.customFields(r, key), true)
	if id := strings.TrimSpace(rec.ID()); id != "" {
		if err := s.svc.CheckConflict(ctx, key, id); err != nil {
			s.renderAdmin(w, r, key, statusFor(err), rec, err)
			return
		}
	}
	if err := s.svc.Create(ctx, key, rec); err != nil {
		s.renderAdmin(w, r, key, statusFor(err), rec, err)
		return
	}
	s.redirectNotice(w, r, "created", "admin", key)
}

func (s *Server) handleAdminEdit(w http.ResponseWriter, r *http.Request) {
	key, id := chi.URLParam(r, "dataset"), chi.URLParam(r, "id")
	def, err := s.editableDataset(key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	rec, err := s.svc.Get(r.Context(), key, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderEdit(w, r, def, id, http.StatusOK, rec, nil)
}

func (s *Server) renderEdit(w http.ResponseWriter, r *http.Request, def core.DatasetDefinition, id string, status int, values record.Record, formErr error) {
	view := templates.EditView{
		Def:          def,
		ID:           id,
		Values:       values,
		CustomFields: s.customFields(r, def.Key),
	}
	if formErr != nil {
		view.Error = core.MapError(formErr)
	}
	s.render(w, r, status, templates.Edit(s.nav(r, "admin"), view))
}

func (s *Server) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	key, id := chi.URLParam(r, "dataset"), chi.URLParam(r, "id")
	def, err := s.editableDataset(key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}

	partial := formRecord(r, def.FormFields, s.customFields(r, key), false)
	partial.Delete(record.IDField)
	if err := s.svc.Update(s.withRequestMetadata(r.Context(), r), key, id, partial); err != nil {
		s.renderEdit(w, r, def, id, statusFor(err), partial, err)
		return
	}
	s.redirectNotice(w, r, "updated", "admin", key)
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	if err := s.svc.Delete(s.withRequestMetadata(r.Context(), r), key, chi.URLParam(r, "id")); err != nil {
		s.renderAdmin(w, r, key, statusFor(err), record.Record{}, err)
		return
	}
	s.redirectNotice(w, r, "deleted", "admin", key)
}

func (s *Server) handleAdminAddField(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	if err := parseForm(w, r); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.svc.AddField(s.withRequestMetadata(r.Context(), r), key, r.PostFormValue("field")); err != nil {
		s.renderAdmin(w, r, key, statusFor(err), record.Record{}, err)
		return
	}
	s.redirectNotice(w, r, "field-added", "admin", key)
}

func (s *Server) handleAdminRemoveField(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	if err := s.svc.RemoveField(s.withRequestMetadata(r.Context(), r), key, chi.URLParam(r, "field")); err != nil {
		s.renderAdmin(w, r, key, statusFor(err), record.Record{}, err)
		return
	}
	s.redirectNotice(w, r, "field-removed", "admin", key)
}

func (s *Server) handleAdminClear(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	if err := s.svc.ClearEdits(s.withRequestMetadata(r.Context(), r), key); err != nil {
		s.renderAdmin(w, r, key, statusFor(err), record.Record{}, err)
		return
	}
	s.redirectNotice(w, r, "cleared", "admin", key)
}

func (s *Server) handleAdminClearAll(w http.ResponseWriter, r *http.Request) {
	links := s.editableLinks()
	cleared, err := s.resetter.ResetAll(s.withRequestMetadata(r.Context(), r))
	if err != nil {
		if len(links) == 0 {
			s.respondError(w, r, err)
			return
		}
		s.renderAdmin(w, r, links[0].Key, statusFor(err), record.Record{}, err)
		return
	}
	logging.FromContext(r.Context()).Info("admin: cleared all datasets", "datasets", cleared)
	if len(links) == 0 {
		s.redirect(w, r, "admin")
		return
	}
	s.redirectNotice(w, r, "cleared-all", "admin", links[0].Key)
}

func (s *Server) editableDataset(key string) (core.DatasetDefinition, error) {
	def, err := s.svc.Dataset(key)
	if err != nil {
		return def, err
	}
	if !def.Editable {
		return def, core.ValidationError{Message: def.Label + " is read-only"}
	}
	return def, nil
}

func (s *Server) editableLinks() []templates.DatasetLink {
	var out []templates.DatasetLink
	for _, d := range s.svc.Datasets() {
		if d.Editable {
			out = append(out, templates.DatasetLink{Key: d.Key, Label: d.Label})
		}
	}
	return out
}

// customFields lists the declared fields of a csv dataset; other backends
// have none.
func (s *Server) customFields(r *http.Request, key string) []string {
	if s.svc.Backend(key) != config.BackendCSV {
		return nil
	}
	ov, err := s.svc.Overlay(r.Context(), key)
	if err != nil {
		return nil
	}
	return ov.CustomFields
}

func (s *Server) redirectNotice(w http.ResponseWriter, r *http.Request, notice string, segments ...string) {
	target := s.nav(r, "").URL(segments...) + "?" + url.Values{"notice": {notice}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return errBadForm
	}
	return nil
}

// formRecord reads the form fields and custom fields of a submission in
// declaration order. With all set every field is included, otherwise only
// the ones the form actually posted.
func formRecord(r *http.Request, fields []core.FormField, custom []string, all bool) record.Record {
	var rec record.Record
	add := func(name string) {
		if rec.Has(name) {
			return
		}
		if _, posted := r.PostForm[name]; posted || all {
			rec.Set(name, r.PostFormValue(name))
		}
	}
	for _, f := range fields {
		add(f.Name)
	}
	for _, name := range custom {
		add(name)
	}
	return rec
}
