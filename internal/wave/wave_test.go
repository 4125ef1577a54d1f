package wave

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWave(t *testing.T) {
	w := New()
	if len(w.EmotionalTrajectory) != 0 {
		t.Errorf("new wave should have empty trajectory")
	}
	if !w.ExistentialState.Affirmed {
		t.Errorf("new wave should start affirmed")
	}
}

func TestAddEmotionClamps(t *testing.T) {
	w := New()
	w.AddEmotion(2.5)
	w.AddEmotion(-3.0)
	if got := w.EmotionalTrajectory[0].Valence; got != 1 {
		t.Errorf("valence not clamped high: %v", got)
	}
	if got := w.EmotionalTrajectory[1].Valence; got != -1 {
		t.Errorf("valence not clamped low: %v", got)
	}
	if w.LastValence() != -1 {
		t.Errorf("LastValence = %v, want -1", w.LastValence())
	}
}

func TestDefaultScoreBounded(t *testing.T) {
	w := New()
	if s := DefaultScore(w); s != 0 {
		t.Errorf("empty wave score = %v, want 0", s)
	}
	for i := 0; i < 20; i++ {
		w.AddEmotion(1.0)
	}
	for i := 0; i < 10; i++ {
		if c := NewCuriosity("What makes something alive?", nil); c != nil {
			w.ActiveCuriosities = append(w.ActiveCuriosities, *c)
		}
	}
	s := DefaultScore(w)
	if s < -1 || s > 1 {
		t.Errorf("score out of bounds: %v", s)
	}
	if s <= 0 {
		t.Errorf("positive trajectory should yield positive score, got %v", s)
	}

	w2 := New()
	for i := 0; i < 20; i++ {
		w2.AddEmotion(-1.0)
	}
	if s2 := DefaultScore(w2); s2 >= s {
		t.Errorf("negative trajectory should score below positive one: %v >= %v", s2, s)
	}
}

func TestNewCuriosityRejectsShortQuestions(t *testing.T) {
	if c := NewCuriosity("Hm?", nil); c != nil {
		t.Errorf("expected nil for too-short question")
	}
	if c := NewCuriosity("Why does music move us?", nil); c == nil {
		t.Errorf("expected valid curiosity")
	}
}

func TestMeaningfulnessHistoryTrim(t *testing.T) {
	w := New()
	old := MeaningPoint{Timestamp: time.Now().UTC().AddDate(0, 0, -120), Score: 0.5}
	w.ExistentialState.MeaningfulnessHistory = append(w.ExistentialState.MeaningfulnessHistory, old)
	w.RecordMeaningfulness(0.2, 90)
	if len(w.ExistentialState.MeaningfulnessHistory) != 1 {
		t.Fatalf("expected 120-day-old point trimmed, got %d points", len(w.ExistentialState.MeaningfulnessHistory))
	}
	if w.ExistentialState.MeaningfulnessHistory[0].Score != 0.2 {
		t.Errorf("kept the wrong point")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "standing_wave.json")

	w := New()
	w.AddEmotion(0.4)
	w.CompressedContext = "hello"
	if err := Save(w, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.EmotionalTrajectory) != 1 || loaded.CompressedContext != "hello" {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}

func TestLoadOrCreateMissingFile(t *testing.T) {
	w, err := LoadOrCreate(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should create a fresh wave: %v", err)
	}
	if !w.ExistentialState.Affirmed {
		t.Errorf("fresh wave should be affirmed")
	}
}

func TestLoadOrCreateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrCreate(path); err == nil {
		t.Errorf("expected parse error for corrupt snapshot")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	w := New()
	w.AddEmotion(0.1)
	c := w.Clone()
	c.AddEmotion(0.9)
	if len(w.EmotionalTrajectory) != 1 {
		t.Errorf("clone mutation leaked into original")
	}
}
