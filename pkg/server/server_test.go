package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alantheprice/council/pkg/config"
	"github.com/alantheprice/council/pkg/consensus"
	"github.com/alantheprice/council/pkg/events"
	"github.com/alantheprice/council/pkg/llm"
	"github.com/alantheprice/council/pkg/projects"
	"github.com/alantheprice/council/pkg/prompts"
)

type startCall struct {
	task   string
	models []string
	opts   consensus.RunOptions
}

type mockEngine struct {
	mu          sync.Mutex
	StartFunc   func(task string, models []string, opts consensus.RunOptions) (string, error)
	SessionFunc func(id string) (*consensus.Session, error)
	starts      []startCall
}

func (m *mockEngine) Start(ctx context.Context, task string, models []string, opts consensus.RunOptions) (string, error) {
	m.mu.Lock()
	m.starts = append(m.starts, startCall{task: task, models: models, opts: opts})
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(task, models, opts)
	}
	return "session-1", nil
}

func (m *mockEngine) Session(id string) (*consensus.Session, error) {
	if m.SessionFunc != nil {
		return m.SessionFunc(id)
	}
	return nil, consensus.ErrSessionNotFound
}

type invokeCall struct {
	model    string
	messages []prompts.Message
	opts     llm.Options
}

type mockReply struct {
	content string
	err     error
}

type mockClient struct {
	mu         sync.Mutex
	replies    []mockReply
	calls      []invokeCall
	PingFunc   func(modelID string) error
	ModelsFunc func() (json.RawMessage, error)
}

func (m *mockClient) Invoke(ctx context.Context, model string, messages []prompts.Message, opts llm.Options) (*llm.ModelCallResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, invokeCall{model: model, messages: messages, opts: opts})
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("unscripted call to %s", model)
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &llm.ModelCallResult{Model: model, Content: next.content}, nil
}

func (m *mockClient) Ping(ctx context.Context, modelID string, apiKey string) error {
	if m.PingFunc != nil {
		return m.PingFunc(modelID)
	}
	return nil
}

func (m *mockClient) ListModels(ctx context.Context, apiKey string) (json.RawMessage, error) {
	if m.ModelsFunc != nil {
		return m.ModelsFunc()
	}
	return json.RawMessage(`{"data":[]}`), nil
}

func newTestServer(t *testing.T, engine Orchestrator, client ModelClient) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := projects.InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db error: %v", err)
	}
	cfg := &config.Config{
		Models:          []string{"vendor/model-1", "vendor/model-2"},
		MaxTokens:       2000,
		CallTimeoutSecs: 60,
	}
	srv := New(cfg, engine, client, projects.NewStore(db), events.NewEventBus())
	return srv, srv.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, &mockClient{})

	w := doJSON(t, router, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestStartConsensusDefaultsModels(t *testing.T) {
	engine := &mockEngine{}
	_, router := newTestServer(t, engine, &mockClient{})

	w := doJSON(t, router, http.MethodPost, "/api/consensus", `{"task":"Build a countdown timer"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["session_id"] != "session-1" {
		t.Fatalf("expected session_id session-1, got %v", body["session_id"])
	}
	if body["status"] != "running" {
		t.Fatalf("expected status running, got %v", body["status"])
	}

	if len(engine.starts) != 1 {
		t.Fatalf("expected 1 start call, got %d", len(engine.starts))
	}
	start := engine.starts[0]
	if start.task != "Build a countdown timer" {
		t.Fatalf("unexpected task %q", start.task)
	}
	if len(start.models) != 2 || start.models[0] != "vendor/model-1" || start.models[1] != "vendor/model-2" {
		t.Fatalf("expected configured default models, got %v", start.models)
	}
	if start.opts.Extended {
		t.Fatal("extended should default to false")
	}
}

func TestStartConsensusExplicitOptions(t *testing.T) {
	engine := &mockEngine{}
	_, router := newTestServer(t, engine, &mockClient{})

	w := doJSON(t, router, http.MethodPost, "/api/consensus",
		`{"task":"t","models":["a/x"],"extended":true,"screenshot":"/tmp/shot.png","max_tokens":3000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	start := engine.starts[0]
	if len(start.models) != 1 || start.models[0] != "a/x" {
		t.Fatalf("expected models [a/x], got %v", start.models)
	}
	if !start.opts.Extended {
		t.Fatal("expected extended run")
	}
	if start.opts.ScreenshotRef != "/tmp/shot.png" {
		t.Fatalf("unexpected screenshot ref %q", start.opts.ScreenshotRef)
	}
	if start.opts.MaxTokens != 3000 {
		t.Fatalf("unexpected max tokens %d", start.opts.MaxTokens)
	}
}

func TestStartConsensusMissingTask(t *testing.T) {
	engine := &mockEngine{}
	_, router := newTestServer(t, engine, &mockClient{})

	w := doJSON(t, router, http.MethodPost, "/api/consensus", `{"models":["a/x"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if len(engine.starts) != 0 {
		t.Fatal("engine should not be called for invalid requests")
	}
}

func TestStartConsensusValidationError(t *testing.T) {
	engine := &mockEngine{
		StartFunc: func(task string, models []string, opts consensus.RunOptions) (string, error) {
			return "", &consensus.ValidationError{Msg: "model identifier 0 is empty"}
		},
	}
	_, router := newTestServer(t, engine, &mockClient{})

	w := doJSON(t, router, http.MethodPost, "/api/consensus", `{"task":"t","models":[""]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "model identifier 0 is empty" {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestGetConsensusSnapshot(t *testing.T) {
	sess := consensus.NewSession("abc", "Build a timer")
	sess.Phase = consensus.PhaseCoding
	sess.AddMessage("Architect (model-1)", "Analyzing the request...", consensus.KindDiscussion)
	sess.MergeFiles(map[string]string{"index.html": "<h1>Timer</h1>"})

	engine := &mockEngine{
		SessionFunc: func(id string) (*consensus.Session, error) {
			if id == "abc" {
				return sess.Clone(), nil
			}
			return nil, consensus.ErrSessionNotFound
		},
	}
	_, router := newTestServer(t, engine, &mockClient{})

	w := doJSON(t, router, http.MethodGet, "/api/consensus/abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["id"] != "abc" || body["phase"] != "coding" {
		t.Fatalf("unexpected snapshot %v", body)
	}
	files, ok := body["files"].(map[string]interface{})
	if !ok || files["index.html"] != "<h1>Timer</h1>" {
		t.Fatalf("unexpected files %v", body["files"])
	}
	messages, ok := body["messages"].([]interface{})
	if !ok || len(messages) != 1 {
		t.Fatalf("unexpected messages %v", body["messages"])
	}

	if w := doJSON(t, router, http.MethodGet, "/api/consensus/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestPingModel(t *testing.T) {
	client := &mockClient{}
	_, router := newTestServer(t, &mockEngine{}, client)

	w := doJSON(t, router, http.MethodPost, "/api/ping-model", `{"model":"vendor/model-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "working" || body["model"] != "vendor/model-1" {
		t.Fatalf("unexpected ping result %v", body)
	}

	client.PingFunc = func(modelID string) error {
		return &llm.TimeoutError{Model: modelID, Timeout: 30 * time.Second}
	}
	w = doJSON(t, router, http.MethodPost, "/api/ping-model", `{"model":"vendor/model-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body = decodeBody(t, w)
	if body["status"] != "unavailable" {
		t.Fatalf("expected unavailable, got %v", body["status"])
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "timed out") {
		t.Fatalf("expected timeout detail, got %v", body["error"])
	}

	if w := doJSON(t, router, http.MethodPost, "/api/ping-model", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestListModelsProxy(t *testing.T) {
	client := &mockClient{
		ModelsFunc: func() (json.RawMessage, error) {
			return json.RawMessage(`{"data":[{"id":"vendor/model-1"}]}`), nil
		},
	}
	_, router := newTestServer(t, &mockEngine{}, client)

	w := doJSON(t, router, http.MethodGet, "/api/models", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != `{"data":[{"id":"vendor/model-1"}]}` {
		t.Fatalf("expected raw upstream payload, got %s", w.Body.String())
	}

	client.ModelsFunc = func() (json.RawMessage, error) {
		return nil, &llm.UpstreamError{StatusCode: 500, Detail: "upstream down"}
	}
	if w := doJSON(t, router, http.MethodGet, "/api/models", ""); w.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", w.Code)
	}
}

func TestProjectsLifecycle(t *testing.T) {
	_, router := newTestServer(t, &mockEngine{}, &mockClient{})

	w := doJSON(t, router, http.MethodPost, "/api/projects",
		`{"name":"demo","task":"Build a page","files":{"index.html":"<p>v1</p>"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	id, _ := created["id"].(string)
	if id == "" || created["name"] != "demo" {
		t.Fatalf("unexpected project %v", created)
	}

	// Same name updates in place instead of creating a second project.
	w = doJSON(t, router, http.MethodPost, "/api/projects",
		`{"name":"demo","task":"Build a better page","files":{"index.html":"<p>v2</p>"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	updated := decodeBody(t, w)
	if updated["id"] != id {
		t.Fatalf("upsert changed the project id: %v vs %v", updated["id"], id)
	}

	w = doJSON(t, router, http.MethodGet, "/api/projects", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list))
	}

	w = doJSON(t, router, http.MethodGet, "/api/projects/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	got := decodeBody(t, w)
	if got["task"] != "Build a better page" {
		t.Fatalf("expected updated task, got %v", got["task"])
	}
	files, _ := got["files"].(map[string]interface{})
	if files["index.html"] != "<p>v2</p>" {
		t.Fatalf("expected updated files, got %v", got["files"])
	}

	if w := doJSON(t, router, http.MethodGet, "/api/projects/missing", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}
