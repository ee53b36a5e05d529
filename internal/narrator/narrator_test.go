package narrator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/Porkelson/dnd-project/internal/models"
)

func towerEvent() models.AdventureEvent {
	return models.AdventureEvent{
		ID:       "ancient_tower",
		Title:    "Ancient Tower",
		Category: models.CategoryExploration,
		Choices:  []string{"Enter", "Leave"},
		Grants:   models.NewTagSet("found_tower_key"),
		Prompt:   "Describe an abandoned tower.",
	}
}

func TestTemplate_Generate(t *testing.T) {
	tests := []struct {
		name     string
		category models.Category
		mutate   func(*models.PlayerState)
		contains []string
		excludes []string
	}{
		{
			name:     "fresh player",
			category: models.CategoryExploration,
			contains: []string{"You encounter ancient tower. Describe an abandoned tower.", "potential discoveries"},
			excludes: []string{"well-rested", "injuries", "experience helps"},
		},
		{
			name:     "combat",
			category: models.CategoryCombat,
			contains: []string{"tense and dangerous"},
		},
		{
			name:     "rested",
			category: models.CategorySocial,
			mutate:   func(s *models.PlayerState) { s.Tags = s.Tags.With("rested") },
			contains: []string{"valuable information", "well-rested"},
		},
		{
			name:     "injured",
			category: models.CategoryPuzzle,
			mutate:   func(s *models.PlayerState) { s.Stats.Health = 49 },
			contains: []string{"clues scattered", "injuries make this situation more challenging"},
		},
		{
			name:     "exactly half health is not injured",
			category: models.CategoryTreasure,
			mutate:   func(s *models.PlayerState) { s.Stats.Health = 50 },
			contains: []string{"traps or guardians"},
			excludes: []string{"injuries"},
		},
		{
			name:     "veteran",
			category: models.CategoryTreasure,
			mutate:   func(s *models.PlayerState) { s.Stats.Level = 6 },
			contains: []string{"experience helps you notice"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := towerEvent()
			ev.Category = tt.category
			state := models.NewPlayerState()
			if tt.mutate != nil {
				tt.mutate(&state)
			}

			got, err := Template{}.Generate(context.Background(), ev, state)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("description %q missing %q", got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("description %q unexpectedly contains %q", got, bad)
				}
			}
		})
	}
}

func TestTemplate_Deterministic(t *testing.T) {
	state := models.NewPlayerState()
	a, _ := Template{}.Generate(context.Background(), towerEvent(), state)
	b, _ := Template{}.Generate(context.Background(), towerEvent(), state)
	if a != b {
		t.Errorf("Template output differs: %q vs %q", a, b)
	}
}

func TestBuildPrompt(t *testing.T) {
	state := models.NewPlayerState()
	state.Tags = state.Tags.With("merchant_friend", "rested")
	state.Inventory = []string{"rope", "lantern"}
	state.Stats.Gold = 12

	got, err := BuildPrompt(towerEvent(), state)
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	for _, want := range []string{
		"Scene: Ancient Tower (exploration)",
		"Describe an abandoned tower.",
		"Tags: merchant_friend, rested",
		"Inventory: rope, lantern",
		"Level: 1",
		"Health: 100/100",
		"Gold: 12",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "nil content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: true,
		},
		{
			name: "joined parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text(" The tower "), genai.Text("looms. ")}},
			}}},
			want: "The tower looms.",
		},
		{
			name: "whitespace only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}},
			}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func newChatServer(t *testing.T, status int, content string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestOpenAI_Generate(t *testing.T) {
	srv, requests := newChatServer(t, http.StatusOK, "  Vines coil around the tower.  ")

	p, err := NewOpenAI("test-key", "", WithBaseURL(srv.URL+"/"), WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}

	got, err := p.Generate(context.Background(), towerEvent(), models.NewPlayerState())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Vines coil around the tower." {
		t.Errorf("text = %q", got)
	}
	if len(*requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(*requests))
	}
	if model := (*requests)[0]["model"]; model != defaultOpenAIModel {
		t.Errorf("model = %v, want %s", model, defaultOpenAIModel)
	}
}

func TestOpenAI_GenerateError(t *testing.T) {
	srv, _ := newChatServer(t, http.StatusBadRequest, "")

	p, err := NewOpenAI("test-key", "gpt-4o", WithBaseURL(srv.URL+"/"), WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	if _, err := p.Generate(context.Background(), towerEvent(), models.NewPlayerState()); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenAI_BuildParams(t *testing.T) {
	p, err := NewOpenAI("test-key", "gpt-4o")
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	params, err := p.buildParams(towerEvent(), models.NewPlayerState())
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if string(params.Model) != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(params.Messages))
	}
	if params.Messages[0].OfSystem == nil {
		t.Error("expected system message first")
	}
	if params.Messages[1].OfUser == nil {
		t.Error("expected user message second")
	}
}

// fakeProvider returns canned results and counts calls.
type fakeProvider struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Generate(context.Context, models.AdventureEvent, models.PlayerState) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.text, f.err
}

type closingProvider struct {
	fakeProvider
	closed bool
}

func (c *closingProvider) Close() error {
	c.closed = true
	return nil
}

func TestFallback_UsesFirstHealthy(t *testing.T) {
	primary := &fakeProvider{err: errors.New("boom")}
	secondary := &fakeProvider{text: "from secondary"}
	f := NewFallback(Entry{Name: "primary", Provider: primary}, Entry{Name: "secondary", Provider: secondary})

	got, err := f.Generate(context.Background(), towerEvent(), models.NewPlayerState())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "from secondary" {
		t.Errorf("text = %q, want from secondary", got)
	}
}

func TestFallback_SkipsOpenBreaker(t *testing.T) {
	primary := &fakeProvider{err: errors.New("boom")}
	secondary := &fakeProvider{text: "ok"}
	f := NewFallback(Entry{Name: "primary", Provider: primary}, Entry{Name: "secondary", Provider: secondary})

	for i := 0; i < 5; i++ {
		if _, err := f.Generate(context.Background(), towerEvent(), models.NewPlayerState()); err != nil {
			t.Fatalf("Generate %d: %v", i, err)
		}
	}
	// the default breaker opens after three consecutive failures
	if primary.calls != 3 {
		t.Errorf("primary calls = %d, want 3", primary.calls)
	}
	if secondary.calls != 5 {
		t.Errorf("secondary calls = %d, want 5", secondary.calls)
	}
}

func TestFallback_AllFailed(t *testing.T) {
	f := NewFallback(Entry{Name: "only", Provider: &fakeProvider{err: errors.New("boom")}})
	_, err := f.Generate(context.Background(), towerEvent(), models.NewPlayerState())
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallback_CancelledContext(t *testing.T) {
	p := &fakeProvider{text: "never"}
	f := NewFallback(Entry{Name: "p", Provider: p})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Generate(ctx, towerEvent(), models.NewPlayerState()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times after cancel", p.calls)
	}
}

func TestFallback_Close(t *testing.T) {
	c := &closingProvider{}
	f := NewFallback(Entry{Name: "c", Provider: c}, Entry{Name: "template", Provider: Template{}})
	if err := Close(f); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !c.closed {
		t.Error("closable provider was not closed")
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, Options{})
	if err != nil {
		t.Fatalf("New(default): %v", err)
	}
	if _, ok := p.(Template); !ok {
		t.Errorf("default backend = %T, want Template", p)
	}

	p, err = New(ctx, Options{Backend: BackendOpenAI, OpenAIAPIKey: "k"})
	if err != nil {
		t.Fatalf("New(openai): %v", err)
	}
	if _, ok := p.(*Fallback); !ok {
		t.Errorf("openai backend = %T, want *Fallback", p)
	}

	if _, err := New(ctx, Options{Backend: BackendOpenAI}); err == nil {
		t.Error("expected error for missing openai key")
	}
	if _, err := New(ctx, Options{Backend: BackendGemini}); err == nil {
		t.Error("expected error for missing gemini key")
	}
	if _, err := New(ctx, Options{Backend: "claude"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestBackend_IsValid(t *testing.T) {
	for _, b := range []Backend{BackendTemplate, BackendGemini, BackendOpenAI} {
		if !b.IsValid() {
			t.Errorf("%q.IsValid() = false", b)
		}
	}
	if Backend("x").IsValid() {
		t.Error(`"x".IsValid() = true`)
	}
}
