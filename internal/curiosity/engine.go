// internal/curiosity/engine.go
package curiosity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"standingwave/internal/memory"
)

const (
	defaultEndpoint       = "https://api.duckduckgo.com"
	defaultSearchInterval = 25
	searchTimeout         = 10 * time.Second
	minCallGap            = 2 * time.Second

	resolutionCap       = 100
	resolutionTrimBatch = 10

	// pageExcerptMax bounds the text taken from a fallback page fetch.
	pageExcerptMax = 500

	// researchConfidence marks externally looked-up facts as less certain
	// than direct experience.
	researchConfidence = 0.75

	noAnswer = "The search returned nothing conclusive."
)

// Resolution is one answered curiosity.
type Resolution struct {
	ResolvedAt time.Time `json:"resolved_at"`
	Question   string    `json:"question"`
}

// Engine resolves curiosities against an instant-answer endpoint, with a
// readable-page fallback when the instant answer is empty.
type Engine struct {
	mu             sync.Mutex
	httpClient     *http.Client
	endpoint       string
	searchInterval int
	pulseCounter   int
	lastCall       time.Time
	resolved       []Resolution
	repo           *ResolutionRepository
}

// NewEngine builds an engine firing every searchInterval pulses. repo may
// be nil; the in-memory resolution log works without it.
func NewEngine(searchInterval int, repo *ResolutionRepository) *Engine {
	if searchInterval < 1 {
		searchInterval = defaultSearchInterval
	}
	return &Engine{
		httpClient:     &http.Client{Timeout: searchTimeout},
		endpoint:       defaultEndpoint,
		searchInterval: searchInterval,
		repo:           repo,
	}
}

// SetEndpoint overrides the instant-answer endpoint, for config overrides
// and tests.
func (e *Engine) SetEndpoint(endpoint string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endpoint = strings.TrimRight(endpoint, "/")
}

// ShouldSearchThisPulse counts pulses and fires once the count reaches the
// interval, but only resets when there is a question waiting. An empty queue
// at the Nth pulse keeps the slot armed, so the next pulse with a queued
// question fires immediately.
func (e *Engine) ShouldSearchThisPulse(queued int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pulseCounter++
	if e.pulseCounter >= e.searchInterval && queued > 0 {
		e.pulseCounter = 0
		return true
	}
	return false
}

type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	Abstract      string `json:"Abstract"`
	Answer        string `json:"Answer"`
	Definition    string `json:"Definition"`
	RelatedTopics []struct {
		FirstURL string `json:"FirstURL"`
		Text     string `json:"Text"`
	} `json:"RelatedTopics"`
}

// SearchQuery asks the instant-answer endpoint about a question. The first
// non-empty of the abstract, answer and definition fields wins; failing
// that, a related page is fetched and excerpted. Calls are rate limited.
func (e *Engine) SearchQuery(ctx context.Context, question string) (string, error) {
	e.mu.Lock()
	if wait := minCallGap - time.Since(e.lastCall); wait > 0 {
		e.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		e.mu.Lock()
	}
	e.lastCall = time.Now()
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/?q=%s&format=json&no_html=1", e.endpoint, url.QueryEscape(question))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var ia instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ia); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	for _, candidate := range []string{ia.AbstractText, ia.Abstract, ia.Answer, ia.Definition} {
		if strings.TrimSpace(candidate) != "" {
			return strings.TrimSpace(candidate), nil
		}
	}

	if len(ia.RelatedTopics) > 0 && ia.RelatedTopics[0].FirstURL != "" {
		if excerpt, err := e.fetchPageExcerpt(ctx, ia.RelatedTopics[0].FirstURL); err == nil && excerpt != "" {
			return excerpt, nil
		} else if err != nil {
			log.Printf("[Curiosity] Page fallback failed: %v", err)
		}
	}

	return noAnswer, nil
}

// fetchPageExcerpt pulls a related page and extracts its title and a short
// run of readable text.
func (e *Engine) fetchPageExcerpt(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("bad page url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	html := string(raw)

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("failed to extract readable text: %w", err)
	}

	title := article.Title
	if title == "" {
		if doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html)); derr == nil {
			title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}

	text := strings.TrimSpace(article.TextContent)
	if r := []rune(text); len(r) > pageExcerptMax {
		text = string(r[:pageExcerptMax])
	}
	if text == "" {
		return "", nil
	}
	if title != "" {
		return fmt.Sprintf("%s: %s", title, text), nil
	}
	return text, nil
}

// ResearchMemory shapes a lookup result into a memory record marked as
// external and less than fully trusted.
func ResearchMemory(question, answer string) memory.Memory {
	content := fmt.Sprintf("Explored: %s\nLearned: %s\n[Source: External lookup, unverified]", question, answer)
	m := memory.NewMemoryWithSource(content, memory.TypeCuriosity, 0, memory.SourceCuriosityLookup, researchConfidence)
	m.Entities = memory.ExtractEntities(content)
	return m
}

// RecordResolution logs an answered question, keeping the log bounded.
func (e *Engine) RecordResolution(question string) {
	e.mu.Lock()
	e.resolved = append(e.resolved, Resolution{ResolvedAt: time.Now().UTC(), Question: question})
	if len(e.resolved) > resolutionCap {
		e.resolved = e.resolved[resolutionTrimBatch:]
	}
	e.mu.Unlock()

	if e.repo != nil {
		if err := e.repo.Record(question); err != nil {
			log.Printf("[Curiosity] Failed to persist resolution: %v", err)
		}
	}
}

// Resolved returns a copy of the in-memory resolution log, oldest first.
func (e *Engine) Resolved() []Resolution {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Resolution, len(e.resolved))
	copy(out, e.resolved)
	return out
}
