package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nyashahama/safeserve-backend/internal/ai"
	"github.com/nyashahama/safeserve-backend/internal/api"
	"github.com/nyashahama/safeserve-backend/internal/contract"
	"github.com/nyashahama/safeserve-backend/internal/dashboard"
	"github.com/nyashahama/safeserve-backend/internal/gateway"
	"github.com/nyashahama/safeserve-backend/internal/metrics"
	"github.com/nyashahama/safeserve-backend/internal/resilience"
	"github.com/nyashahama/safeserve-backend/internal/scoring"
	"github.com/nyashahama/safeserve-backend/internal/session"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubGenerator answers every request with text/err. Fields may be set
// per-test to control behaviour.
type stubGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, req ai.Request) (ai.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return ai.Response{}, g.err
	}
	if g.text == "" && len(req.Messages) > 0 {
		return ai.Response{Text: "echo: " + req.Messages[len(req.Messages)-1].Text}, nil
	}
	return ai.Response{Text: g.text}, nil
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) set(text string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text, g.err = text, err
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

type testDeps struct {
	gen      *stubGenerator
	metrics  *metrics.Gateway
	sessions *session.Registry
	handler  http.Handler
}

func newTestServer(t *testing.T, cfgOverrides ...func(*api.Config)) *testDeps {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := &stubGenerator{}
	m := metrics.NewGateway()

	retry := resilience.RetryConfig{MaxAttempts: 1, Sleep: func(context.Context, time.Duration) error { return nil }}
	exec := resilience.NewExecutor(retry, resilience.NewBreaker(time.Minute, nil), logger)
	gw := gateway.New(gen, exec, scoring.DefaultModel(), m, logger)
	loader := dashboard.NewLoader(gw, scoring.DefaultModel(), logger)
	sessions := session.NewRegistry(gw, session.DefaultConfig(), m, logger)

	cfg := api.Config{Env: "development", CORSOrigin: "https://safeserve.example"}
	for _, fn := range cfgOverrides {
		fn(&cfg)
	}

	return &testDeps{
		gen:      gen,
		metrics:  m,
		sessions: sessions,
		handler:  api.NewServer(gw, loader, sessions, m, cfg, logger),
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("decode response body: %v (raw: %s)", err, rr.Body.String())
	}
}

var quotaErr = &ai.StatusError{Provider: "stub", Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}

// ─── GET /healthz, /metrics ───────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestMetrics_ExposesGatewayCounters(t *testing.T) {
	deps := newTestServer(t)
	deps.gen.set("", &ai.StatusError{Provider: "stub", Code: 400, Message: "bad"})
	doRequest(t, deps.handler, http.MethodGet, "/api/sustainability/impact", nil, nil)

	rr := doRequest(t, deps.handler, http.MethodGet, "/metrics", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "safeserve_gateway_calls_total") {
		t.Errorf("metrics output missing gateway counter:\n%s", rr.Body.String())
	}
}

// ─── POST /api/risk/score ─────────────────────────────────────────────────────

func TestRiskScore_ComputedLocally(t *testing.T) {
	deps := newTestServer(t)
	factors := scoring.RiskFactors{SchoolReports: 20, AvgSeverity: 10, SentimentSpike: 100, HygieneDeficit: 100, IoTAnomalies: 10}
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/risk/score", factors, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Score int    `json:"score"`
		Level string `json:"level"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Score != 100 || resp.Level != string(scoring.Level(100)) {
		t.Errorf("unexpected score: %+v", resp)
	}
	if deps.gen.calls != 0 {
		t.Errorf("local scoring must not call the model, got %d calls", deps.gen.calls)
	}
}

func TestRiskScore_UnknownFieldsReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/risk/score",
		map[string]any{"schoolReports": 3, "bogus": 1}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}
}

func TestRiskScore_InvalidJSONReturns400(t *testing.T) {
	deps := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/risk/score", bytes.NewBufferString(`{bad json`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

// ─── STRUCTURED OPERATIONS ────────────────────────────────────────────────────

func TestExplainVendor_LiveReply(t *testing.T) {
	deps := newTestServer(t)
	deps.gen.set(`{"summary":"Cold chain failing","details":["4 temperature excursions"],"urgency":"HIGH"}`, nil)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/vendor/explain",
		gateway.VendorFactors{IncidentCount: 2, HygieneScore: 61, TempAnomalies: 4}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp contract.VendorRiskExplanation
	decodeJSON(t, rr, &resp)
	if resp.Summary != "Cold chain failing" || resp.Urgency != "HIGH" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestTriage_FailureServesFallbackWith200(t *testing.T) {
	deps := newTestServer(t)
	deps.gen.set("", &ai.StatusError{Provider: "stub", Code: 400, Message: "bad request"})

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/incidents/triage",
		map[string][]string{"symptoms": {"Vomiting", "Fever"}}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp contract.IncidentTriage
	decodeJSON(t, rr, &resp)
	want := contract.FallbackIncidentTriage()
	if resp.Severity != want.Severity || resp.Urgency != want.Urgency {
		t.Errorf("expected fallback triage, got %+v", resp)
	}
}

func TestTriage_EmptySymptomsReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/incidents/triage",
		map[string][]string{"symptoms": {"  ", ""}}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if deps.gen.calls != 0 {
		t.Error("rejected request must not reach the model")
	}
}

func TestIncidentReport_CombinesTriageAndKnowledge(t *testing.T) {
	deps := newTestServer(t)
	deps.gen.set("", &ai.StatusError{Provider: "stub", Code: 400, Message: "bad request"})

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/incidents/report",
		map[string][]string{"symptoms": {"Nausea"}}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp dashboard.IncidentReport
	decodeJSON(t, rr, &resp)
	if resp.Triage.Severity == 0 || len(resp.Knowledge.LikelyCauses) == 0 {
		t.Errorf("both halves should be filled: %+v", resp)
	}
}

func TestKitchenAudit_BadImageServesFallback(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/kitchen/audit",
		map[string]string{"image": "not-an-image"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp contract.KitchenAudit
	decodeJSON(t, rr, &resp)
	if resp.Score != contract.FallbackKitchenAudit().Score {
		t.Errorf("expected fallback audit, got %+v", resp)
	}
	if deps.gen.calls != 0 {
		t.Errorf("undecodable image must not reach the model, got %d calls", deps.gen.calls)
	}
}

func TestSentimentScan_EmptyPostsReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/sentiment/scan",
		map[string][]string{"posts": {}}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSustainabilityActions_ReturnsArray(t *testing.T) {
	deps := newTestServer(t)
	deps.gen.set("", quotaErr)

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/sustainability/actions", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []contract.SustainabilityAction
	decodeJSON(t, rr, &resp)
	if len(resp) == 0 || resp[0].ID != contract.FallbackSustainabilityActions()[0].ID {
		t.Errorf("expected fallback actions, got %+v", resp)
	}
}

// ─── DASHBOARD ────────────────────────────────────────────────────────────────

func TestDashboard_GetUsesDefaults(t *testing.T) {
	deps := newTestServer(t)
	deps.gen.set("", &ai.StatusError{Provider: "stub", Code: 400, Message: "bad request"})

	rr := doRequest(t, deps.handler, http.MethodGet, "/api/dashboard", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp dashboard.Overview
	decodeJSON(t, rr, &resp)
	if want := scoring.ComputeRisk(dashboard.DefaultOverviewRequest().Factors); resp.LocalScore != want {
		t.Errorf("LocalScore = %d, want %d", resp.LocalScore, want)
	}
	if !resp.Regions.IsFallback {
		t.Error("regions should be the fallback when the model fails")
	}
}

func TestDashboard_PostOverridesFactors(t *testing.T) {
	deps := newTestServer(t)
	deps.gen.set("", &ai.StatusError{Provider: "stub", Code: 400, Message: "bad request"})

	body := map[string]any{"factors": scoring.RiskFactors{}}
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/dashboard", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp dashboard.Overview
	decodeJSON(t, rr, &resp)
	if resp.LocalScore != 0 {
		t.Errorf("zero factors should score 0, got %d", resp.LocalScore)
	}
}

// ─── CHAT ─────────────────────────────────────────────────────────────────────

func createChat(t *testing.T, deps *testDeps, role string) string {
	t.Helper()
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/chat", map[string]string{"role": role}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
		Role      string `json:"role"`
	}
	decodeJSON(t, rr, &resp)
	if resp.SessionID == "" {
		t.Fatal("session_id should not be empty")
	}
	return resp.SessionID
}

func TestChat_Conversation(t *testing.T) {
	deps := newTestServer(t)
	id := createChat(t, deps, "School Admin")

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/chat/"+id+"/messages",
		map[string]string{"message": "Is the milk safe?"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var reply struct {
		Reply string `json:"reply"`
	}
	decodeJSON(t, rr, &reply)
	if reply.Reply != "echo: Is the milk safe?" {
		t.Errorf("reply = %q", reply.Reply)
	}

	rr = doRequest(t, deps.handler, http.MethodGet, "/api/chat/"+id, nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var chat struct {
		Role    string `json:"role"`
		History []struct {
			Role string `json:"role"`
			Text string `json:"text"`
		} `json:"history"`
	}
	decodeJSON(t, rr, &chat)
	if chat.Role != "School Admin" || len(chat.History) != 2 {
		t.Fatalf("unexpected chat: %+v", chat)
	}
	if chat.History[0].Role != "user" || chat.History[1].Role != "model" {
		t.Errorf("history roles = %q, %q", chat.History[0].Role, chat.History[1].Role)
	}
}

func TestChat_FailureRepliesWithApology(t *testing.T) {
	deps := newTestServer(t)
	id := createChat(t, deps, "")
	deps.gen.set("", quotaErr)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/chat/"+id+"/messages",
		map[string]string{"message": "hello"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var reply struct {
		Reply string `json:"reply"`
	}
	decodeJSON(t, rr, &reply)
	if reply.Reply != gateway.ChatApology {
		t.Errorf("reply = %q, want apology", reply.Reply)
	}
}

func TestChat_UnknownSessionReturns404(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/chat/"+uuid.New().String()+"/messages",
		map[string]string{"message": "hello"}, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestChat_InvalidSessionIDReturns400(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/chat/not-a-uuid/messages",
		map[string]string{"message": "hello"}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestChat_EmptyMessageReturns400(t *testing.T) {
	deps := newTestServer(t)
	id := createChat(t, deps, "Vendor")
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/chat/"+id+"/messages",
		map[string]string{"message": "   "}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestChat_Delete(t *testing.T) {
	deps := newTestServer(t)
	id := createChat(t, deps, "Vendor")

	rr := doRequest(t, deps.handler, http.MethodDelete, "/api/chat/"+id, nil, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	rr = doRequest(t, deps.handler, http.MethodDelete, "/api/chat/"+id, nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rr.Code)
	}
	if deps.sessions.Len() != 0 {
		t.Errorf("registry should be empty, Len = %d", deps.sessions.Len())
	}
}

// ─── OPERATOR ─────────────────────────────────────────────────────────────────

func TestBreaker_TripAndReset(t *testing.T) {
	deps := newTestServer(t)
	deps.gen.set("", quotaErr)
	doRequest(t, deps.handler, http.MethodGet, "/api/regions/assessment", nil, nil)

	var state resilience.BreakerState
	rr := doRequest(t, deps.handler, http.MethodGet, "/api/breaker", nil, nil)
	decodeJSON(t, rr, &state)
	if !state.Open || state.RemainingMS <= 0 {
		t.Fatalf("breaker should be open after a quota error: %+v", state)
	}

	rr = doRequest(t, deps.handler, http.MethodPost, "/api/breaker/reset", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	state = resilience.BreakerState{}
	decodeJSON(t, rr, &state)
	if state.Open {
		t.Errorf("breaker should be closed after reset: %+v", state)
	}
}

func TestBreakerReset_NotMountedInProduction(t *testing.T) {
	deps := newTestServer(t, func(c *api.Config) { c.Env = "production" })
	deps.gen.set("", quotaErr)
	doRequest(t, deps.handler, http.MethodGet, "/api/regions/assessment", nil, nil)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/breaker/reset", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 in production, got %d", rr.Code)
	}

	var state resilience.BreakerState
	rr = doRequest(t, deps.handler, http.MethodGet, "/api/breaker", nil, nil)
	decodeJSON(t, rr, &state)
	if !state.Open {
		t.Errorf("breaker must stay open in production: %+v", state)
	}
}

func TestContracts_GetKnownOperation(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/api/contracts/"+string(contract.OpIncidentTriage), nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Operation string          `json:"operation"`
		Schema    json.RawMessage `json:"schema"`
		Fallback  json.RawMessage `json:"fallback"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Operation != string(contract.OpIncidentTriage) || len(resp.Schema) == 0 {
		t.Errorf("unexpected contract: %+v", resp)
	}
	if err := contract.Validate(contract.OpIncidentTriage, resp.Fallback); err != nil {
		t.Errorf("served fallback should satisfy its schema: %v", err)
	}
}

func TestContracts_UnknownOperationReturns404(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/api/contracts/chat-session", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

// ─── CORS ─────────────────────────────────────────────────────────────────────

func TestCORS_PreflightReturns204(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodOptions, "/api/risk/score", nil,
		map[string]string{"Origin": "http://localhost:5173"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("development should echo the origin, got %q", got)
	}
}

func TestCORS_ProductionUsesConfiguredOrigin(t *testing.T) {
	deps := newTestServer(t, func(c *api.Config) { c.Env = "production" })
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil,
		map[string]string{"Origin": "https://evil.example"})
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://safeserve.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
