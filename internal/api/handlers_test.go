package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"standingwave/internal/config"
	"standingwave/internal/core"
	"standingwave/internal/memory"
	"standingwave/internal/model"
	"standingwave/internal/wave"
)

func testDeps(t *testing.T, backend string) Deps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	store, err := memory.LoadOrCreate(filepath.Join(dir, "memories.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	client := model.NewClient(backend, 5*time.Second)
	models := model.NewOrchestrator(client, "gen", "elab", "class", 2, 0)
	cr := core.New(wave.New(), filepath.Join(dir, "wave.json"), store, models, nil, core.ModeParallel, nil)

	cfg := &config.Config{}
	cfg.Agent.Mode = "parallel"
	cfg.Agent.WeavingRounds = 2
	cfg.Agent.PulseSeconds = 60
	cfg.Agent.SearchInterval = 25
	cfg.Models.Generator = "gen"
	cfg.Models.Elaborator = "elab"
	cfg.Models.Classifier = "class"

	return Deps{Cfg: cfg, Core: cr, Store: store, Models: client}
}

func fakeModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		answers := map[string]string{
			"gen":   "A calm and present reply.",
			"elab":  "What makes presence feel real?",
			"class": "0.3",
		}
		json.NewEncoder(w).Encode(map[string]string{"response": answers[req.Model]})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	d := testDeps(t, fakeModelServer(t).URL)
	r := SetupRouter(d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "alive" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["affirmed"] != true {
		t.Errorf("fresh wave should report affirmed")
	}
}

func TestConfigEndpointHidesSecrets(t *testing.T) {
	d := testDeps(t, fakeModelServer(t).URL)
	d.Cfg.Server.JWTSecret = "topsecret"
	d.Cfg.Server.Password = "hunter2"
	r := SetupRouter(d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/config", nil))

	if strings.Contains(w.Body.String(), "topsecret") || strings.Contains(w.Body.String(), "hunter2") {
		t.Errorf("config endpoint leaked secrets: %s", w.Body.String())
	}
}

func TestTurnEndpoint(t *testing.T) {
	d := testDeps(t, fakeModelServer(t).URL)
	r := SetupRouter(d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/turn", strings.NewReader(`{"text":"Hello there"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body["response"], "reply") {
		t.Errorf("response = %q", body["response"])
	}
}

func TestTurnEndpointRequiresText(t *testing.T) {
	d := testDeps(t, fakeModelServer(t).URL)
	r := SetupRouter(d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/turn", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLoginDisabledWithoutRedis(t *testing.T) {
	d := testDeps(t, fakeModelServer(t).URL)
	r := SetupRouter(d)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func TestPulsePauseResume(t *testing.T) {
	d := testDeps(t, fakeModelServer(t).URL)
	r := SetupRouter(d)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pulse/pause", nil))
	if w.Code != http.StatusOK || !d.Core.PulsePaused() {
		t.Fatalf("pause failed: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pulse/resume", nil))
	if w.Code != http.StatusOK || d.Core.PulsePaused() {
		t.Fatalf("resume failed: %d", w.Code)
	}
}

func TestMemoriesCountAfterTurn(t *testing.T) {
	d := testDeps(t, fakeModelServer(t).URL)
	r := SetupRouter(d)

	req := httptest.NewRequest(http.MethodPost, "/turn", strings.NewReader(`{"text":"Remember this"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/memories/count", nil))

	var body map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["total"] != 2 {
		t.Errorf("total = %d, want 2", body["total"])
	}
}

func TestWSStatusStream(t *testing.T) {
	d := testDeps(t, fakeModelServer(t).URL)
	srv := httptest.NewServer(SetupRouter(d))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/status"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to subscribe before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for d.Core.Hub().SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	d.Core.Hub().Publish(core.StatusEvent{Type: "pulse", Message: "cycle_started"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt core.StatusEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if evt.Type != "pulse" || evt.Message != "cycle_started" {
		t.Errorf("event = %+v", evt)
	}
}
