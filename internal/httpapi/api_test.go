package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/auth"
	"atlasmark.io/internal/rbac"
	"atlasmark.io/internal/report"
)

const testPassword = "correct-horse"

// --- in-memory stores wired behind a real auth.Service ---

type memCredentials struct {
	mu    sync.Mutex
	byID  map[string]*auth.Credential
	byEml map[string]*auth.Credential
}

func newMemCredentials(creds ...*auth.Credential) *memCredentials {
	s := &memCredentials{byID: map[string]*auth.Credential{}, byEml: map[string]*auth.Credential{}}
	for _, c := range creds {
		cp := *c
		s.byID[cp.ID] = &cp
		s.byEml[cp.Email] = &cp
	}
	return s
}

func (s *memCredentials) FindByEmail(_ context.Context, email string) (*auth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byEml[email]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, auth.ErrNotFound
}

func (s *memCredentials) FindByID(_ context.Context, id string) (*auth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, auth.ErrNotFound
}

func (s *memCredentials) Create(_ context.Context, cred *auth.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEml[cred.Email]; ok {
		return auth.ErrAlreadyExists
	}
	cp := *cred
	s.byID[cp.ID] = &cp
	s.byEml[cp.Email] = &cp
	return nil
}

func (s *memCredentials) UpdatePassword(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[userID]
	if !ok {
		return auth.ErrNotFound
	}
	c.PasswordHash = hash
	return nil
}

func (s *memCredentials) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[userID]
	if !ok {
		return auth.ErrNotFound
	}
	c.LastLoginAt = &at
	return nil
}

func (s *memCredentials) SetActive(_ context.Context, userID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[userID]
	if !ok {
		return auth.ErrNotFound
	}
	c.IsActive = active
	return nil
}

type memSessions struct {
	mu      sync.Mutex
	byToken map[string]*auth.Session
}

func newMemSessions() *memSessions { return &memSessions{byToken: map[string]*auth.Session{}} }

func (s *memSessions) Create(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.byToken[cp.Token] = &cp
	return nil
}

func (s *memSessions) FindByToken(_ context.Context, token string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byToken[token]; ok {
		cp := *sess
		return &cp, nil
	}
	return nil, auth.ErrNotFound
}

func (s *memSessions) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byToken[token]; !ok {
		return auth.ErrNotFound
	}
	delete(s.byToken, token)
	return nil
}

func (s *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for token, sess := range s.byToken {
		if !now.Before(sess.ExpiresAt) {
			delete(s.byToken, token)
			n++
		}
	}
	return n, nil
}

type captureSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *captureSink) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *captureSink) byAction(action string) []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// memReports records calls so tests can assert the scope the HTTP layer
// derived for the caller.
type memReports struct {
	mu         sync.Mutex
	media      []report.MediaReport
	sales      []report.SalesReport
	lastScope  report.Scope
	scopeTaken bool
}

func (s *memReports) CreateMedia(_ context.Context, rep *report.MediaReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = append(s.media, *rep)
	return nil
}

func (s *memReports) ListMedia(_ context.Context, scope report.Scope) ([]report.MediaReport, error) {
	s.noteScope(scope)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report.MediaReport(nil), s.media...), nil
}

func (s *memReports) GetMedia(_ context.Context, scope report.Scope, id string) (*report.MediaReport, error) {
	s.noteScope(scope)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rep := range s.media {
		if rep.ID == id {
			cp := rep
			return &cp, nil
		}
	}
	return nil, report.ErrNotFound
}

func (s *memReports) CreateSales(_ context.Context, rep *report.SalesReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, *rep)
	return nil
}

func (s *memReports) ListSales(_ context.Context, scope report.Scope) ([]report.SalesReport, error) {
	s.noteScope(scope)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report.SalesReport(nil), s.sales...), nil
}

func (s *memReports) Summary(_ context.Context, scope report.Scope) (report.Summary, error) {
	s.noteScope(scope)
	return report.Summary{MediaReports: 1, SalesReports: 2, TotalRevenue: 5000}, nil
}

func (s *memReports) noteScope(scope report.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScope = scope
	s.scopeTaken = true
}

// --- fixture ---

type apiFixture struct {
	api      *API
	creds    *memCredentials
	sessions *memSessions
	reports  *memReports
	sink     *captureSink
}

func strPtr(s string) *string { return &s }

func seedCredential(t *testing.T, id string, role rbac.Role, branch, agent *string) *auth.Credential {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	return &auth.Credential{
		ID:           id,
		Email:        id + "@example.com",
		Name:         id,
		PasswordHash: hash,
		Role:         role,
		BranchID:     branch,
		AgentNumber:  agent,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	creds := newMemCredentials(
		seedCredential(t, "root", rbac.RoleSuperAdmin, nil, nil),
		seedCredential(t, "admin", rbac.RoleAdmin, nil, nil),
		seedCredential(t, "manager", rbac.RoleBranchManager, strPtr("b1"), nil),
		seedCredential(t, "analyst", rbac.RoleAnalyst, strPtr("b1"), nil),
		seedCredential(t, "agent", rbac.RoleSalesAgent, strPtr("b1"), strPtr("A-17")),
		seedCredential(t, "buyer", rbac.RoleMediaBuyer, nil, nil),
		seedCredential(t, "viewer", rbac.RoleViewer, strPtr("b1"), nil),
	)
	sessions := newMemSessions()
	sink := &captureSink{}
	recorder := audit.NewRecorder(sink)

	codec, err := auth.NewTokenCodec("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	authSvc, err := auth.NewService(creds, sessions, recorder, codec)
	if err != nil {
		t.Fatal(err)
	}
	users, err := auth.NewUserAdmin(creds, recorder)
	if err != nil {
		t.Fatal(err)
	}
	reports := &memReports{}
	reportSvc, err := report.NewService(reports)
	if err != nil {
		t.Fatal(err)
	}

	api := New(authSvc, users, reportSvc, recorder, ReadyProbe{}, "test")
	return &apiFixture{api: api, creds: creds, sessions: sessions, reports: reports, sink: sink}
}

// do routes a request through the mux, bypassing the outer middleware so
// tests exercise guards and handlers directly.
func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.api.mux.ServeHTTP(rr, req)
	return rr
}

func (f *apiFixture) login(t *testing.T, userID string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"email":    userID + "@example.com",
		"password": testPassword,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rr := f.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login as %s: status %d body %s", userID, rr.Code, rr.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res.Token
}

func (f *apiFixture) authedRequest(t *testing.T, userID, method, target string, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set(authHeader, bearerPrefix+f.login(t, userID))
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
	return out
}
