package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/config"
	"github.com/JonMunkholm/quizadmin/internal/core"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/question"
)

const testSecret = "test-secret"

type testServer struct {
	srv      *Server
	store    *memStore
	imports  *core.Service
	verifier *auth.Verifier
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   100 * time.Millisecond,
			RowTimeout:    time.Second,
			Timeout:       time.Minute,
			SessionTTL:    time.Minute,
		},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{RequireAuth: true, EnableCSP: true, JWTSecret: testSecret},
		Cache:    config.CacheConfig{DashboardTTL: time.Minute},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	st := newMemStore()
	audit := core.NewAuditService(st)
	dashboards := core.NewDashboards(st, nil, cfg.Cache.DashboardTTL)
	imports := core.NewService(core.Deps{Questions: st, Audit: audit, Dashboards: dashboards}, cfg.Import)
	catalog := core.NewCatalog(st, question.NewValidator(), audit, dashboards)
	verifier := auth.NewVerifier(testSecret, "")

	srv := NewServer(cfg, Deps{Imports: imports, Catalog: catalog, Reader: st, Verifier: verifier})
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = imports.Shutdown(context.Background())
	})
	return &testServer{srv: srv, store: st, imports: imports, verifier: verifier}
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := ts.verifier.Sign(userID, userID+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return tok
}

// do sends req as userID (anonymous when empty) and returns the recorder.
func (ts *testServer) do(t *testing.T, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, userID))
	}
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/import/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	ts.store.pingErr = errBoom
	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status with db down = %d, want 503", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("header %s missing", h)
		}
	}
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name     string
		header   string
		cookie   string
		wantCode int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", http.StatusUnauthorized},
		{"unknown user", "Bearer " + ts.token(t, "ghost"), "", http.StatusUnauthorized},
		{"bearer token", "Bearer " + ts.token(t, "viewer-1"), "", http.StatusOK},
		{"cookie token", "", ts.token(t, "viewer-1"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			rec := ts.do(t, req, "")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestAuthorization(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name     string
		method   string
		path     string
		user     string
		wantCode int
	}{
		{"viewer cannot import", http.MethodPost, "/api/import/preview", "viewer-1", http.StatusForbidden},
		{"viewer cannot see audit", http.MethodGet, "/api/audit-log", "viewer-1", http.StatusForbidden},
		{"admin sees audit", http.MethodGet, "/api/audit-log", "admin-1", http.StatusOK},
		{"moderator page denied to viewer", http.MethodGet, "/reports", "viewer-1", http.StatusForbidden},
		{"admin cannot manage users", http.MethodPut, "/api/users/viewer-1/role", "admin-1", http.StatusForbidden},
		{"editor lists quizzes", http.MethodGet, "/api/quizzes", "editor-1", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, jsonRequest(tt.method, tt.path, map[string]string{"role": "editor"}), tt.user)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestAuthDisabled_RunsAsLocalPrincipal(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAuth = false
	ts := newTestServer(t, cfg)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/me", nil), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	me := decodeBody[meResponse](t, rec)
	if me.UserID != "local" || me.Role != auth.SuperAdmin {
		t.Errorf("me = %+v, want local super_admin", me)
	}
}

func TestMe_NavFollowsRole(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/me", nil), "viewer-1")
	me := decodeBody[meResponse](t, rec)
	for _, item := range me.Nav {
		if item.Path == "/users" || item.Path == "/import" {
			t.Errorf("viewer nav contains %s", item.Path)
		}
	}
	if me.Email != "viewer-1@example.com" {
		t.Errorf("email = %q", me.Email)
	}
}

func TestImportFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, uploadRequest(t, "batch.csv", csvBody(3, 1)), "editor-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d: %s", rec.Code, rec.Body.String())
	}
	preview := decodeBody[core.Preview](t, rec)
	if preview.Summary != (csvimport.Summary{Total: 4, Valid: 3, Invalid: 1}) {
		t.Errorf("summary = %+v", preview.Summary)
	}
	if len(preview.Errors) != 1 || preview.Errors[0].Row != 4 {
		t.Errorf("errors = %+v, want one on row 4", preview.Errors)
	}
	if len(ts.store.questions) != 0 {
		t.Fatal("preview wrote questions")
	}

	base := "/api/import/" + preview.SessionID

	rec = ts.do(t, jsonRequest(http.MethodPost, base+"/confirm", map[string]bool{"confirmed": false}), "editor-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody[ErrorResponse](t, rec); body.Code != "IMP001" {
		t.Errorf("code = %s, want IMP001", body.Code)
	}

	rec = ts.do(t, jsonRequest(http.MethodPost, base+"/confirm", map[string]bool{"confirmed": true}), "editor-1")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("confirm status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, base+"/result", nil), "editor-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("result status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[core.ImportResult](t, rec)
	if res.Phase != core.PhaseCompleted || res.Report.Success != 3 || res.Report.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(ts.store.questions) != 3 {
		t.Errorf("stored %d questions, want 3", len(ts.store.questions))
	}

	rec = ts.do(t, jsonRequest(http.MethodPost, base+"/confirm", map[string]bool{"confirmed": true}), "editor-1")
	if rec.Code != http.StatusConflict {
		t.Errorf("second confirm status = %d, want 409", rec.Code)
	}

	actions := ts.store.auditActions()
	if len(actions) != 1 || actions[0] != string(core.ActionQuestionImport) {
		t.Errorf("audit actions = %v, want [%s]", actions, core.ActionQuestionImport)
	}
}

func TestImportPreview_Rejections(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{"no file", uploadRequest(t, "", ""), http.StatusBadRequest, "FILE004"},
		{"wrong extension", uploadRequest(t, "questions.xlsx", csvBody(1, 0)), http.StatusBadRequest, "FILE006"},
		{"empty file", uploadRequest(t, "empty.csv", ""), http.StatusBadRequest, "FILE005"},
		{"header only", uploadRequest(t, "header.csv", strings.Join(csvimport.Columns, ",")+"\n"), http.StatusBadRequest, "FILE007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.req, "editor-1")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if body := decodeBody[ErrorResponse](t, rec); body.Code != tt.wantErr {
				t.Errorf("code = %s, want %s", body.Code, tt.wantErr)
			}
		})
	}
}

func TestImportPreview_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	ts := newTestServer(t, cfg)

	rec := ts.do(t, uploadRequest(t, "big.csv", csvBody(5, 0)), "editor-1")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody[ErrorResponse](t, rec); body.Code != "FILE001" {
		t.Errorf("code = %s, want FILE001", body.Code)
	}
}

func TestImportProgress_StreamsEvents(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, uploadRequest(t, "batch.csv", csvBody(2, 0)), "editor-1")
	preview := decodeBody[core.Preview](t, rec)
	base := "/api/import/" + preview.SessionID

	ts.do(t, jsonRequest(http.MethodPost, base+"/confirm", map[string]bool{"confirmed": true}), "editor-1")
	if _, err := ts.imports.Result(context.Background(), preview.SessionID); err != nil {
		t.Fatalf("Result() error = %v", err)
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, base+"/progress", nil), "editor-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "id: 100\nevent: progress\n") {
		t.Errorf("missing final progress event: %s", body)
	}
	if !strings.Contains(body, "event: complete\n") || !strings.Contains(body, `"phase":"completed"`) {
		t.Errorf("missing complete event: %s", body)
	}
}

func TestImportSession_Unknown(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/api/import/nope/result", "/api/import/nope/progress"} {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, path, nil), "editor-1")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
		if body := decodeBody[ErrorResponse](t, rec); body.Code != "IMP003" {
			t.Errorf("%s code = %s, want IMP003", path, body.Code)
		}
	}
}

func TestImportCancel_BeforeConfirm(t *testing.T) {
	ts := newTestServer(t, nil)

	preview := decodeBody[core.Preview](t, ts.do(t, uploadRequest(t, "batch.csv", csvBody(2, 0)), "editor-1"))
	rec := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/import/"+preview.SessionID+"/cancel", nil), "editor-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if p := decodeBody[core.ImportProgress](t, rec); p.Phase != core.PhaseCancelled {
		t.Errorf("phase = %s, want cancelled", p.Phase)
	}
	if len(ts.store.questions) != 0 {
		t.Error("cancelled session wrote questions")
	}
}

func TestImportTemplate(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/import/template", nil), "editor-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	firstLine := strings.SplitN(rec.Body.String(), "\n", 2)[0]
	if strings.TrimSpace(firstLine) != strings.Join(csvimport.Columns, ",") {
		t.Errorf("header = %q", firstLine)
	}
}

func TestCreateQuestion(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, jsonRequest(http.MethodPost, "/api/questions", map[string]any{"question_text": "Only English"}), "editor-1")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[ErrorResponse](t, rec)
	if body.Code != "VAL001" || len(body.Fields) == 0 {
		t.Errorf("body = %+v, want VAL001 with fields", body)
	}

	correct := 1
	valid := question.Input{
		QuestionText:   "Capital of India?",
		QuestionTextHi: "भारत की राजधानी?",
		Options:        []question.OptionInput{{Text: "Mumbai", TextHi: "मुंबई"}, {Text: "Delhi", TextHi: "दिल्ली"}},
		CorrectOption:  &correct,
		Explanation:    "New Delhi is the capital.",
		ExplanationHi:  "नई दिल्ली राजधानी है।",
		Difficulty:     "easy",
		TopicID:        "gk",
		Tags:           []string{"capitals"},
	}
	rec = ts.do(t, jsonRequest(http.MethodPost, "/api/questions", valid), "editor-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/questions?topic=gk", nil), "viewer-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Capital of India?") {
		t.Errorf("list body = %s", rec.Body.String())
	}
}

func TestCreateQuestion_RejectsUnknownFields(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, jsonRequest(http.MethodPost, "/api/questions", map[string]any{"answer": 2}), "editor-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestExportQuestions(t *testing.T) {
	ts := newTestServer(t, nil)
	preview := decodeBody[core.Preview](t, ts.do(t, uploadRequest(t, "batch.csv", csvBody(2, 0)), "editor-1"))
	ts.do(t, jsonRequest(http.MethodPost, "/api/import/"+preview.SessionID+"/confirm", map[string]bool{"confirmed": true}), "editor-1")
	if _, err := ts.imports.Result(context.Background(), preview.SessionID); err != nil {
		t.Fatal(err)
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/questions/export", nil), "editor-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("got %d lines, want header + 2", len(lines))
	}
}

func TestTopicsAndQuizzes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/topics", nil), "viewer-1")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"children"`) {
		t.Errorf("tree = %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, jsonRequest(http.MethodPost, "/api/topics", map[string]string{"id": "gk", "name": "Dup", "name_hi": "डुप"}), "editor-1")
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate topic status = %d, want 409", rec.Code)
	}

	rec = ts.do(t, jsonRequest(http.MethodPost, "/api/quizzes", map[string]any{"kind": "exam", "title": "Mock", "title_hi": "मॉक"}), "editor-1")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("exam without duration status = %d, want 422", rec.Code)
	}

	rec = ts.do(t, jsonRequest(http.MethodPost, "/api/quizzes", map[string]any{"kind": "quiz", "title": "Daily", "title_hi": "दैनिक"}), "editor-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create quiz status = %d: %s", rec.Code, rec.Body.String())
	}
	quizID := decodeBody[struct {
		ID string `json:"id"`
	}](t, rec).ID

	rec = ts.do(t, httptest.NewRequest(http.MethodPost, "/api/quizzes/"+quizID+"/publish", nil), "admin-1")
	if rec.Code != http.StatusConflict {
		t.Errorf("publish empty quiz status = %d, want 409", rec.Code)
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/quizzes?kind=survey", nil), "editor-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", rec.Code)
	}
}

func TestReportsAndRoles(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/reports/r1/resolve", nil), "admin-1")
	if rec.Code != http.StatusNoContent && rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, httptest.NewRequest(http.MethodPost, "/api/reports/r1/dismiss", nil), "admin-1")
	if rec.Code != http.StatusConflict {
		t.Errorf("second close status = %d, want 409", rec.Code)
	}

	rec = ts.do(t, jsonRequest(http.MethodPut, "/api/users/root-1/role", map[string]string{"role": "viewer"}), "root-1")
	if rec.Code != http.StatusForbidden {
		t.Errorf("self role change status = %d, want 403", rec.Code)
	}
	rec = ts.do(t, jsonRequest(http.MethodPut, "/api/users/viewer-1/role", map[string]string{"role": "editor"}), "root-1")
	if rec.Code != http.StatusNoContent && rec.Code != http.StatusOK {
		t.Fatalf("role change status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := ts.store.users["viewer-1"].Role; got != auth.Editor {
		t.Errorf("role = %s, want editor", got)
	}

	// The new role applies to the next request without a new token.
	rec = ts.do(t, uploadRequest(t, "batch.csv", csvBody(1, 0)), "viewer-1")
	if rec.Code != http.StatusOK {
		t.Errorf("promoted user preview status = %d", rec.Code)
	}
}

func TestPages(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		path string
		user string
		want string
	}{
		{"/", "viewer-1", "Questions"},
		{"/import", "editor-1", "EventSource"},
		{"/topics", "editor-1", "Geography"},
		{"/users", "admin-1", "viewer@example.com"},
		{"/reports", "admin-1", "wrong answer"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil), tt.user)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("content type = %q", ct)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("page missing %q", tt.want)
			}
		})
	}
}

func TestPages_ErrorRendersAlert(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.store.listErr = errBoom

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/questions", nil), "viewer-1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "DB004") || strings.Contains(body, "connection refused") {
		t.Errorf("alert should show the code, not the raw error: %s", body)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ImportLimit: 1}
	ts := newTestServer(t, cfg)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = ts.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if body := decodeBody[map[string]string](t, last); body["code"] != "RATE001" {
		t.Errorf("code = %s", body["code"])
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
}

func TestAuditLog_CSV(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, httptest.NewRequest(http.MethodPost, "/api/reports/r1/resolve", nil), "admin-1")

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/audit-log?format=csv", nil), "admin-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), string(core.ActionReportResolve)) {
		t.Errorf("csv missing resolve entry: %s", rec.Body.String())
	}
}
