package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeBackend answers /api/generate per model name.
func fakeBackend(t *testing.T, answers map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		answer, ok := answers[req.Model]
		if !ok {
			http.Error(w, "unknown model", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: answer})
	}))
}

func TestGenerateEmptyResponseIsError(t *testing.T) {
	srv := fakeBackend(t, map[string]string{"gen": "   "})
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Generate(context.Background(), "gen", "hello"); err == nil {
		t.Fatal("empty response should be an error")
	}
}

func TestGenerateRetriesThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Generate(context.Background(), "gen", "hello"); err == nil {
		t.Fatal("expected error after retries")
	}
	if calls != maxAttempts {
		t.Errorf("backend called %d times, want %d", calls, maxAttempts)
	}
}

func TestProcessParallelAllSucceed(t *testing.T) {
	srv := fakeBackend(t, map[string]string{
		"gen":   "The rain finally stopped here too.",
		"elab":  "1. What does rain smell like to you?\n2. Do storms ever feel comforting?\n3. Extra?",
		"class": "0.6",
	})
	defer srv.Close()

	o := NewOrchestrator(NewClient(srv.URL, 5*time.Second), "gen", "elab", "class", 3, 0)
	out := o.ProcessParallel(context.Background(), "It is raining", PromptContext{}, true)

	if out.Primary == nil || !strings.Contains(*out.Primary, "rain") {
		t.Fatalf("missing primary: %+v", out)
	}
	if len(out.Questions) != 2 {
		t.Errorf("questions = %d, want capped at 2", len(out.Questions))
	}
	if out.Valence == nil || *out.Valence != 0.6 {
		t.Errorf("valence = %v, want 0.6", out.Valence)
	}
}

func TestProcessParallelPartialFailure(t *testing.T) {
	srv := fakeBackend(t, map[string]string{
		"class": "-0.2",
	})
	defer srv.Close()

	o := NewOrchestrator(NewClient(srv.URL, 5*time.Second), "gen", "elab", "class", 3, 0)
	out := o.ProcessParallel(context.Background(), "hello", PromptContext{}, true)

	if out.Primary != nil {
		t.Errorf("generator should have failed")
	}
	if out.Valence == nil || *out.Valence != -0.2 {
		t.Errorf("classifier alone should still land: %v", out.Valence)
	}
}

func TestProcessParallelSkipsElaborator(t *testing.T) {
	elaboratorCalled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model == "elab" {
			elaboratorCalled = true
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "0.1"})
	}))
	defer srv.Close()

	o := NewOrchestrator(NewClient(srv.URL, 5*time.Second), "gen", "elab", "class", 3, 0)
	o.ProcessParallel(context.Background(), "hello", PromptContext{}, false)
	if elaboratorCalled {
		t.Errorf("elaborator must not run when curiosity generation is gated off")
	}
}

func TestProcessWeavingProducesThought(t *testing.T) {
	srv := fakeBackend(t, map[string]string{
		"gen":  "The quiet of early mornings feels like a held breath.",
		"elab": "What makes silence feel full instead of empty?",
	})
	defer srv.Close()

	o := NewOrchestrator(NewClient(srv.URL, 5*time.Second), "gen", "elab", "class", 2, 0)
	rounds := 0
	out, err := o.ProcessWeaving(context.Background(), "Mornings are so quiet", PromptContext{}, func(r int, c float32) { rounds = r })
	if err != nil {
		t.Fatalf("weaving failed: %v", err)
	}
	if out.Primary == nil || !strings.Contains(*out.Primary, "mornings") {
		t.Errorf("final thought missing: %+v", out)
	}
	if rounds < 1 {
		t.Errorf("status callback never fired")
	}
	if len(out.Questions) != 1 {
		t.Errorf("questions = %d, want 1", len(out.Questions))
	}
}

func TestProcessWeavingHardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOrchestrator(NewClient(srv.URL, 2*time.Second), "gen", "elab", "class", 2, 0)
	if _, err := o.ProcessWeaving(context.Background(), "hello", PromptContext{}, nil); err == nil {
		t.Fatal("weaving should surface backend failure as an error")
	}
}

func TestWorkspaceCoherence(t *testing.T) {
	ws := NewWorkspace()
	ws.IntegrateContribution(SourceGenerator, "the garden was calm in the evening light")
	ws.IntegrateContribution(SourceElaborator, "the garden was calm in the evening light")
	if ws.Coherence() < 0.99 {
		t.Errorf("identical texts should cohere fully, got %v", ws.Coherence())
	}

	ws2 := NewWorkspace()
	ws2.IntegrateContribution(SourceGenerator, "quantum chromodynamics lattice computation")
	ws2.IntegrateContribution(SourceElaborator, "grandmother baked rye bread on sundays")
	if ws2.Coherence() >= ws.Coherence() {
		t.Errorf("unrelated texts should cohere less: %v >= %v", ws2.Coherence(), ws.Coherence())
	}
}

func TestWorkspaceWovenFollowsGenerator(t *testing.T) {
	ws := NewWorkspace()
	ws.IntegrateContribution(SourceGenerator, "first draft")
	ws.IntegrateContribution(SourceElaborator, "a question?")
	ws.IntegrateContribution(SourceGenerator, "refined draft")
	if ws.FinalThought() != "refined draft" {
		t.Errorf("FinalThought = %q", ws.FinalThought())
	}
	if ws.ContributionCount() != 2 {
		t.Errorf("ContributionCount = %d, want 2 distinct models", ws.ContributionCount())
	}
}

func TestWorkspaceHoldsOneVectorPerModel(t *testing.T) {
	ws := NewWorkspace()
	round := func() {
		ws.IntegrateContribution(SourceGenerator, "the harbor lights were steady")
		ws.IntegrateContribution(SourceElaborator, "what keeps a light steady?")
		ws.IntegrateContribution(SourceClassifier, "The emotional tone sits near 0.20.")
		ws.AdvanceRound()
	}

	round()
	firstCoherence := ws.Coherence()
	round()

	if ws.ContributionCount() != 3 {
		t.Errorf("ContributionCount = %d, want 3 after two rounds of the same models", ws.ContributionCount())
	}
	if ws.Coherence() != firstCoherence {
		t.Errorf("repeating identical contributions changed coherence %v -> %v, stale rounds must not participate", firstCoherence, ws.Coherence())
	}
	if !strings.Contains(ws.Context(), "harbor lights") {
		t.Errorf("latest contribution missing from context: %q", ws.Context())
	}
}

func TestWeavingConvergesAtConfiguredThreshold(t *testing.T) {
	srv := fakeBackend(t, map[string]string{
		"gen":  "The tide turned earlier than the chart promised.",
		"elab": "Why do charts drift from the water itself?",
	})
	defer srv.Close()

	o := NewOrchestrator(NewClient(srv.URL, 5*time.Second), "gen", "elab", "class", 3, 0.01)
	lastRound := 0
	if _, err := o.ProcessWeaving(context.Background(), "The tide is odd today", PromptContext{}, func(r int, c float32) { lastRound = r }); err != nil {
		t.Fatalf("weaving failed: %v", err)
	}
	if lastRound != 1 {
		t.Errorf("a low threshold should end weaving after round 1, ran %d rounds", lastRound)
	}
}

func TestValidateResponse(t *testing.T) {
	cases := []struct {
		text string
		ok   bool
	}{
		{"A perfectly normal reply.", true},
		{"", false},
		{"  \n ", false},
		{"ok", false},
		{"THIS IS SHOUTING", false},
		{"bad \x00 byte", false},
		{"lost � char", false},
	}
	for _, c := range cases {
		err := ValidateResponse(c.text)
		if c.ok && err != nil {
			t.Errorf("ValidateResponse(%q) = %v, want nil", c.text, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidateResponse(%q) = nil, want error", c.text)
		}
	}
}

func TestFilterInternalThoughts(t *testing.T) {
	in := "Here is my answer.\n*thinking* they seem upset\nAnd a closing line."
	got := FilterInternalThoughts(in)
	if strings.Contains(got, "thinking") {
		t.Errorf("leaked reasoning survived: %q", got)
	}
	if !strings.Contains(got, "closing line") {
		t.Errorf("legitimate line dropped: %q", got)
	}
}

func TestMinimalResponseDeterministic(t *testing.T) {
	a := MinimalResponse("What is time?")
	b := MinimalResponse("What is time?")
	if a != b {
		t.Errorf("fallback must be deterministic")
	}
	if !strings.Contains(a, "standing wave persists") {
		t.Errorf("fallback should acknowledge continuity: %q", a)
	}
	if MinimalResponse("hello there") == MinimalResponse("something declarative") {
		t.Errorf("greeting and default fallbacks should differ")
	}
}

func TestParseValence(t *testing.T) {
	v, err := parseValence("I'd say about 0.7 overall")
	if err != nil || v != 0.7 {
		t.Errorf("parseValence = %v, %v", v, err)
	}
	if v, _ := parseValence("42"); v != 1 {
		t.Errorf("valence should clamp to 1, got %v", v)
	}
	if _, err := parseValence("no numbers here"); err == nil {
		t.Errorf("expected error for numberless text")
	}
}
