package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/bondweb/internal/auth"
	"github.com/JonMunkholm/bondweb/internal/config"
	"github.com/JonMunkholm/bondweb/internal/core"
	"github.com/JonMunkholm/bondweb/internal/notify"
)

const (
	testPassword = "secret"
	testAPIKey   = "key-1"
)

type fakeSender struct {
	sent []notify.Request
	err  error
}

func (f *fakeSender) Send(_ context.Context, r notify.Request) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, r)
	return nil
}

func (f *fakeSender) Name() string { return "fake" }

type testEnv struct {
	srv    *Server
	dir    string
	sender *fakeSender
}

func newTestEnv(t *testing.T, basePath string) *testEnv {
	t.Helper()
	core.Clear()
	t.Cleanup(core.Clear)

	core.Register(core.DatasetDefinition{
		Key:        "institutions",
		Label:      "Institutions",
		Singular:   "Institution",
		Source:     "institutions.csv",
		Editable:   true,
		CardFields: []string{"country"},
		FormFields: []core.FormField{
			{Name: "id", Label: "ID", Required: true},
			{Name: "name", Label: "Name", Required: true},
			{Name: "country", Label: "Country"},
		},
	})
	core.Register(core.DatasetDefinition{
		Key:          "issuers",
		Label:        "Issuers",
		Singular:     "Issuer",
		Source:       "issuers.csv",
		SearchFields: []string{"name"},
	})

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "institutions.csv"), "id;name;country\n1;Alpha;Norway\n2;Béta Bank;France\n")
	writeFile(t, filepath.Join(dir, "issuers.csv"), "name,description\nKingdom of Norway,Sovereign\n")

	reg := prometheus.NewRegistry()
	svc, err := core.NewService(core.Options{
		Data:       config.DataConfig{Dir: dir, Backend: config.BackendCSV, AuditSize: 20},
		Registerer: reg,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	cfg := &config.Config{
		Server:   config.ServerConfig{BasePath: basePath},
		Data:     config.DataConfig{Dir: dir},
		Security: config.SecurityConfig{EnableCSP: true},
	}
	authn := auth.New(config.SecurityConfig{
		AdminPassword: testPassword,
		APIKeys:       []string{testAPIKey},
	}, basePath, auth.NewSessionStore(time.Hour))

	sender := &fakeSender{}
	srv := NewServer(cfg, Deps{Service: svc, Auth: authn, Sender: sender, Gatherer: reg})
	return &testEnv{srv: srv, dir: dir, sender: sender}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, target, nil))
}

func (e *testEnv) api(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderAPIKey, testAPIKey)
	return e.do(t, req)
}

func postForm(target string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out
}

func TestPages(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name   string
		target string
		status int
		want   []string
	}{
		{"home", "/", http.StatusOK, []string{"Institutions", "<strong>2</strong> entries", "<strong>1</strong> entry"}},
		{"list", "/institutions", http.StatusOK, []string{"2 of 2 institutions", "Alpha", "Béta Bank"}},
		{"search folds accents", "/institutions?q=beta", http.StatusOK, []string{"1 of 2 institutions", "Béta Bank"}},
		{"detail", "/institutions/1", http.StatusOK, []string{"<h1>Alpha</h1>", "Norway"}},
		{"detail by name slug", "/issuers/kingdom-of-norway", http.StatusOK, []string{"Kingdom of Norway"}},
		{"missing record", "/institutions/404", http.StatusNotFound, []string{"GW002"}},
		{"unknown dataset", "/bonds", http.StatusNotFound, []string{"DS001"}},
		{"health", "/healthz", http.StatusOK, []string{`"status":"ok"`}},
		{"raw data", "/data/issuers.csv", http.StatusOK, []string{"Kingdom of Norway"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.get(t, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.status, rec.Body)
			}
			for _, w := range tt.want {
				if !strings.Contains(rec.Body.String(), w) {
					t.Errorf("body missing %q", w)
				}
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := newTestEnv(t, "").get(t, "/")
	if rec.Header().Get("Content-Security-Policy") == "" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("security headers missing: %v", rec.Header())
	}
}

func TestLoadFailureShowsSource(t *testing.T) {
	env := newTestEnv(t, "")
	if err := os.Remove(filepath.Join(env.dir, "issuers.csv")); err != nil {
		t.Fatal(err)
	}

	rec := env.get(t, "/issuers?q=x")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, filepath.Join(env.dir, "issuers.csv")) {
		t.Error("error page should name the attempted source")
	}
	if !strings.Contains(body, `href="/issuers?q=x">Retry`) {
		t.Errorf("error page should offer a retry: %s", body)
	}

	rec = env.get(t, "/api/issuers/records")
	if rec.Code != http.StatusBadGateway || decodeError(t, rec).Code != "LOAD001" {
		t.Errorf("api load failure = %d", rec.Code)
	}

	if home := env.get(t, "/"); home.Code != http.StatusOK || !strings.Contains(home.Body.String(), "Data currently unavailable") {
		t.Errorf("home should degrade per dataset, got %d", home.Code)
	}
}

func TestAPI_Read(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.get(t, "/api/institutions/records?q=ALPHA")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list RecordsResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Matched != 1 || list.Total != 2 || list.Records[0].Value("name") != "Alpha" {
		t.Errorf("records = %+v", list)
	}

	rec = env.get(t, "/api/datasets")
	var infos []DatasetInfo
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].Key != "institutions" || !infos[0].Editable || infos[0].Records != 2 || infos[0].Backend != "csv" {
		t.Errorf("datasets = %+v", infos)
	}

	rec = env.get(t, "/api/institutions/records/2")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Béta Bank"`) {
		t.Errorf("get record = %d %s", rec.Code, rec.Body)
	}
}

func TestAPI_RequiresEditor(t *testing.T) {
	env := newTestEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/institutions/records", strings.NewReader(`{"id":"3","name":"Gamma"}`))
	rec := env.do(t, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "AUTH001" {
		t.Errorf("code = %s", got)
	}
}

func TestAPI_CreateConflictExport(t *testing.T) {
	env := newTestEnv(t, "")

	if rec := env.api(t, http.MethodPost, "/api/institutions/records", `{"id":"3","name":"Gamma"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}

	rec := env.api(t, http.MethodPost, "/api/institutions/records", `{"id":"3","name":"Gamma again"}`)
	if rec.Code != http.StatusConflict || decodeError(t, rec).Code != "CONF001" {
		t.Fatalf("duplicate create = %d", rec.Code)
	}

	rec = env.get(t, "/api/institutions/export")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename=institutions.csv` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	want := "id,name,country\n1,Alpha,Norway\n2,Béta Bank,France\n3,Gamma,"
	if rec.Body.String() != want {
		t.Errorf("export =\n%q\nwant\n%q", rec.Body.String(), want)
	}

	rec = env.get(t, "/api/institutions/export?filename=../../etc/passwd")
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename=passwd` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestAPI_Mutations(t *testing.T) {
	env := newTestEnv(t, "")

	steps := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"missing id", http.MethodPost, "/api/institutions/records", `{"name":"No id"}`, http.StatusBadRequest, "VAL001"},
		{"bad json", http.MethodPost, "/api/institutions/records", `[1,2]`, http.StatusBadRequest, "VAL001"},
		{"read-only dataset", http.MethodPost, "/api/issuers/records", `{"id":"9","name":"X"}`, http.StatusBadRequest, "VAL001"},
		{"update", http.MethodPatch, "/api/institutions/records/1", `{"country":"Sweden"}`, http.StatusNoContent, ""},
		{"blank name on update", http.MethodPatch, "/api/institutions/records/1", `{"name":"  "}`, http.StatusBadRequest, "VAL001"},
		{"add field", http.MethodPost, "/api/institutions/fields", `{"name":" rating "}`, http.StatusCreated, ""},
		{"empty field", http.MethodPost, "/api/institutions/fields", `{"name":""}`, http.StatusBadRequest, "VAL001"},
		{"delete", http.MethodDelete, "/api/institutions/records/2", "", http.StatusNoContent, ""},
		{"unknown dataset", http.MethodDelete, "/api/bonds/records/2", "", http.StatusNotFound, "DS001"},
	}
	for _, st := range steps {
		rec := env.api(t, st.method, st.target, st.body)
		if rec.Code != st.status {
			t.Fatalf("%s: status = %d, want %d: %s", st.name, rec.Code, st.status, rec.Body)
		}
		if st.code != "" {
			if got := decodeError(t, rec).Code; got != st.code {
				t.Errorf("%s: code = %s, want %s", st.name, got, st.code)
			}
		}
	}

	rec := env.get(t, "/api/institutions/records/1")
	if !strings.Contains(rec.Body.String(), `"country":"Sweden"`) || !strings.Contains(rec.Body.String(), `"rating":""`) {
		t.Errorf("record after update = %s", rec.Body)
	}

	rec = env.api(t, http.MethodGet, "/api/institutions/overlay", "")
	var ov struct {
		Modifications map[string]map[string]string `json:"modifications"`
		Deletions     []string                     `json:"deletions"`
		CustomFields  []string                     `json:"customFields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&ov); err != nil {
		t.Fatal(err)
	}
	if ov.Modifications["1"]["country"] != "Sweden" || len(ov.Deletions) != 1 || len(ov.CustomFields) != 1 {
		t.Errorf("overlay = %+v", ov)
	}

	rec = env.api(t, http.MethodGet, "/api/audit-log?limit=2", "")
	var entries []core.AuditEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Action != core.ActionDelete || entries[0].Actor != "api-key" {
		t.Errorf("audit log = %+v", entries)
	}

	if rec := env.api(t, http.MethodDelete, "/api/institutions/fields/rating", ""); rec.Code != http.StatusNoContent {
		t.Errorf("remove field = %d", rec.Code)
	}
	rec = env.api(t, http.MethodDelete, "/api/edits", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cleared":["institutions"]`) {
		t.Errorf("clear all = %d %s", rec.Code, rec.Body)
	}
	if body := env.get(t, "/api/institutions/records/2"); body.Code != http.StatusOK {
		t.Errorf("deleted record should be back after clearing edits, got %d", body.Code)
	}
}

func login(t *testing.T, env *testEnv) *http.Cookie {
	t.Helper()
	rec := env.do(t, postForm("/admin/login", url.Values{"password": {testPassword}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestAdmin_Login(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.get(t, "/admin/institutions")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/login" {
		t.Fatalf("anonymous admin = %d %s", rec.Code, rec.Header().Get("Location"))
	}

	rec = env.do(t, postForm("/admin/login", url.Values{"password": {"wrong"}}))
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Incorrect password") {
		t.Errorf("bad login = %d", rec.Code)
	}

	cookie := login(t, env)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	if rec := env.do(t, req); rec.Header().Get("Location") != "/admin/institutions" {
		t.Errorf("admin index redirect = %q", rec.Header().Get("Location"))
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/institutions", nil)
	req.AddCookie(cookie)
	rec = env.do(t, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Manage Institutions") {
		t.Errorf("admin page = %d", rec.Code)
	}

	env.do(t, postForm("/admin/logout", nil, cookie))
	req = httptest.NewRequest(http.MethodGet, "/admin/institutions", nil)
	req.AddCookie(cookie)
	if rec := env.do(t, req); rec.Code != http.StatusSeeOther {
		t.Errorf("session should be revoked after logout, got %d", rec.Code)
	}
}

func TestAdmin_Forms(t *testing.T) {
	env := newTestEnv(t, "")
	cookie := login(t, env)

	rec := env.do(t, postForm("/admin/institutions/records", url.Values{"id": {"1"}, "name": {"Dup & Co"}}, cookie))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "CONF001") || !strings.Contains(body, `value="Dup &amp; Co"`) {
		t.Errorf("form should re-render with the submitted values: %s", body)
	}

	rec = env.do(t, postForm("/admin/institutions/records", url.Values{"id": {"5"}, "name": {"Epsilon"}}, cookie))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/institutions?notice=created" {
		t.Fatalf("create = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = env.do(t, postForm("/admin/institutions/records/1", url.Values{"name": {""}, "country": {"Denmark"}}, cookie))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "VAL001") {
		t.Errorf("blank name update = %d", rec.Code)
	}

	rec = env.do(t, postForm("/admin/institutions/records/1", url.Values{"name": {"Alpha ASA"}}, cookie))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body)
	}
	if detail := env.get(t, "/institutions/1"); !strings.Contains(detail.Body.String(), "Alpha ASA") {
		t.Error("update not visible on detail page")
	}

	for _, target := range []string{"/admin/institutions/fields", "/admin/institutions/records/2/delete", "/admin/institutions/clear", "/admin/clear"} {
		rec := env.do(t, postForm(target, url.Values{"field": {"rating"}}, cookie))
		if rec.Code != http.StatusSeeOther {
			t.Errorf("POST %s = %d: %s", target, rec.Code, rec.Body)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/issuers", nil)
	req.AddCookie(cookie)
	if rec := env.do(t, req); rec.Code != http.StatusBadRequest {
		t.Errorf("read-only admin page = %d", rec.Code)
	}
}

func TestRequestForm(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, postForm("/request", url.Values{"requesterEmail": {"nope"}, "institutionName": {"Gamma"}}))
	if rec.Code != http.StatusBadRequest || len(env.sender.sent) != 0 {
		t.Fatalf("invalid request = %d, sent %d", rec.Code, len(env.sender.sent))
	}

	valid := url.Values{
		"requesterEmail":  {"a@example.com"},
		"institutionName": {"Gamma"},
		"institutionUrl":  {"https://gamma.example"},
	}
	rec = env.do(t, postForm("/request", valid))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Thank you") || len(env.sender.sent) != 1 {
		t.Errorf("valid request = %d, sent %d", rec.Code, len(env.sender.sent))
	}

	env.sender.err = &notify.DeliveryError{Service: "formspree", StatusCode: 403, Remote: "Form not active"}
	rec = env.do(t, postForm("/request", valid))
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), "Failed to send request: Form not active") {
		t.Errorf("failed delivery = %d: %s", rec.Code, rec.Body)
	}
}

func TestBasePath(t *testing.T) {
	env := newTestEnv(t, "/bondweb")

	if rec := env.get(t, "/"); rec.Code != http.StatusFound || rec.Header().Get("Location") != "/bondweb/" {
		t.Errorf("root = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec := env.get(t, "/bondweb/institutions")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `href="/bondweb/institutions/1"`) {
		t.Errorf("list under base path = %d", rec.Code)
	}
	if rec := env.get(t, "/bondweb/data/issuers.csv"); rec.Code != http.StatusOK {
		t.Errorf("data under base path = %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, "")
	env.get(t, "/institutions")

	rec := env.get(t, "/metrics")
	if !strings.Contains(rec.Body.String(), `bondweb_source_loads_total{dataset="institutions",result="ok"}`) {
		t.Errorf("metrics missing source loads: %s", rec.Body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrUnknownDataset, http.StatusNotFound},
		{core.ValidationError{Message: "x"}, http.StatusBadRequest},
		{core.ConflictError{ID: "1"}, http.StatusConflict},
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.ErrUnsupported, http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestExportFilename(t *testing.T) {
	tests := map[string]string{
		"":                 "institutions.csv",
		"mine.csv":         "mine.csv",
		"../../etc/passwd": "passwd",
		`..\..\win.ini`:    "win.ini",
		"dir/":             "dir",
		"   ":              "institutions.csv",
	}
	for in, want := range tests {
		if got := exportFilename(in, "institutions"); got != want {
			t.Errorf("exportFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request within the window should be limited")
	}
	if !rl.allow("b") {
		t.Error("other clients are counted separately")
	}

	now = now.Add(61 * time.Second)
	if !rl.allow("a") {
		t.Error("a new window should reset the budget")
	}

	now = now.Add(3 * time.Minute)
	if n := rl.sweep(); n != 2 {
		t.Errorf("sweep() removed %d, want 2", n)
	}
}
