package web

import (
	"encoding/json"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/record"
	"github.com/JonMunkholm/bondweb/internal/web/middleware"
)

// defaultAuditLimit is the audit-log page size when no limit is given.
const defaultAuditLimit = 100

// DatasetInfo describes one dataset in the API listing.
type DatasetInfo struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Singular string `json:"singular"`
	Editable bool   `json:"editable"`
	Backend  string `json:"backend"`
	Location string `json:"location"`
	Records  int    `json:"records"`
	Error    string `json:"error,omitempty"`
}

// RecordsResponse is a (possibly filtered) record listing.
type RecordsResponse struct {
	Records []record.Record `json:"records"`
	Matched int             `json:"matched"`
	Total   int             `json:"total"`
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Get("/datasets", s.handleAPIDatasets)
	r.Get("/{dataset}/records", s.handleAPIRecords)
	r.Get("/{dataset}/records/{id}", s.handleAPIRecord)
	r.Get("/{dataset}/export", s.handleAPIExport)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireEditor(s.auth, http.HandlerFunc(s.denyAPI)))
		r.Post("/{dataset}/records", s.handleAPICreate)
		r.Patch("/{dataset}/records/{id}", s.handleAPIUpdate)
		r.Delete("/{dataset}/records/{id}", s.handleAPIDelete)
		r.Post("/{dataset}/fields", s.handleAPIAddField)
		r.Delete("/{dataset}/fields/{name}", s.handleAPIRemoveField)
		r.Get("/{dataset}/overlay", s.handleAPIOverlay)
		r.Delete("/{dataset}/edits", s.handleAPIClear)
		r.Delete("/edits", s.handleAPIClearAll)
		r.Get("/audit-log", s.handleAPIAuditLog)
	})
}

func (s *Server) denyAPI(w http.ResponseWriter, r *http.Request) {
	respondErrorJSON(w, core.MapError(core.ErrUnauthorized), http.StatusUnauthorized)
}

func (s *Server) handleAPIDatasets(w http.ResponseWriter, r *http.Request) {
	stats := s.svc.Stats(r.Context())
	out := make([]DatasetInfo, 0, len(stats))
	for _, st := range stats {
		info := DatasetInfo{
			Key:      st.Definition.Key,
			Label:    st.Definition.Label,
			Singular: st.Definition.Singular,
			Editable: st.Definition.Editable,
			Backend:  st.Backend,
			Location: s.svc.Location(st.Definition.Key),
			Records:  st.Records,
		}
		if st.Err != nil {
			info.Error = core.FormatUserError(st.Err)
		}
		out = append(out, info)
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleAPIRecords(w http.ResponseWriter, r *http.Request) {
	records, total, err := s.svc.Search(r.Context(), chi.URLParam(r, "dataset"), r.URL.Query().Get("q"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if records == nil {
		records = []record.Record{}
	}
	writeJSON(w, r, http.StatusOK, RecordsResponse{Records: records, Matched: len(records), Total: total})
}

func (s *Server) handleAPIRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Get(r.Context(), chi.URLParam(r, "dataset"), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	text, err := s.svc.Export(r.Context(), key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": exportFilename(r.URL.Query().Get("filename"), key),
	}))
	_, _ = w.Write([]byte(text))
}

// exportFilename keeps only the base name of a requested file name and
// falls back to "<dataset>.csv".
func exportFilename(requested, key string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(requested), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return key + ".csv"
	}
	return name
}

func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "dataset")
	rec, err := decodeRecord(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := s.withRequestMetadata(r.Context(), r)
	if id := strings.TrimSpace(rec.ID()); id != "" {
		if err := s.svc.CheckConflict(ctx, key, id); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if err := s.svc.Create(ctx, key, rec); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, rec)
}

func (s *Server) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	partial, err := decodeRecord(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ctx := s.withRequestMetadata(r.Context(), r)
	if err := s.svc.Update(ctx, chi.URLParam(r, "dataset"), chi.URLParam(r, "id"), partial); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	ctx := s.withRequestMetadata(r.Context(), r)
	if err := s.svc.Delete(ctx, chi.URLParam(r, "dataset"), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIAddField(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, errBadBody)
		return
	}
	ctx := s.withRequestMetadata(r.Context(), r)
	if err := s.svc.AddField(ctx, chi.URLParam(r, "dataset"), body.Name); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]string{"name": strings.TrimSpace(body.Name)})
}

func (s *Server) handleAPIRemoveField(w http.ResponseWriter, r *http.Request) {
	ctx := s.withRequestMetadata(r.Context(), r)
	if err := s.svc.RemoveField(ctx, chi.URLParam(r, "dataset"), chi.URLParam(r, "name")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIOverlay(w http.ResponseWriter, r *http.Request) {
	ov, err := s.svc.Overlay(r.Context(), chi.URLParam(r, "dataset"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ov)
}

func (s *Server) handleAPIClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearEdits(s.withRequestMetadata(r.Context(), r), chi.URLParam(r, "dataset")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIClearAll(w http.ResponseWriter, r *http.Request) {
	cleared, err := s.resetter.ResetAll(s.withRequestMetadata(r.Context(), r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if cleared == nil {
		cleared = []string{}
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"cleared": cleared})
}

func (s *Server) handleAPIAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	writeJSON(w, r, http.StatusOK, s.svc.AuditLog(limit))
}

// decodeRecord reads a JSON object body into a record.
func decodeRecord(w http.ResponseWriter, r *http.Request) (record.Record, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var rec record.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		return record.Record{}, errBadBody
	}
	return rec, nil
}
