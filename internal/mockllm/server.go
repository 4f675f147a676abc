// Package mockllm serves a fake Ollama API with controllable latency and
// failure modes, for tests and local demos of the fallback chain.
package mockllm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Mode selects how /api/generate answers.
type Mode string

const (
	ModeOK          Mode = "ok"
	ModeEmpty       Mode = "empty"
	ModeServerError Mode = "error"
	ModeGarbage     Mode = "garbage"
)

// ParseMode accepts the Mode names, case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOK, ModeEmpty, ModeServerError, ModeGarbage:
		return m, nil
	case "":
		return ModeOK, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	Model  string
	Prompt string
}

type Options struct {
	Model    string
	Delay    time.Duration
	Mode     Mode
	Response string
}

// DefaultResponse is returned by ModeOK unless overridden.
const DefaultResponse = "Subject: A cleaner space for your team\n\n" +
	"Hello,\n\nWe keep facilities like yours spotless so your people can focus on their work.\n\n" +
	"Would you be open to a quick walkthrough next week?\n\nBest regards"

// Server implements the subset of the Ollama API the generator uses.
type Server struct {
	mu       sync.Mutex
	model    string
	delay    time.Duration
	queued   []time.Duration
	mode     Mode
	response string
	calls    []Call
}

func New(opts Options) *Server {
	if opts.Model == "" {
		opts.Model = "llama3.2"
	}
	if opts.Mode == "" {
		opts.Mode = ModeOK
	}
	if opts.Response == "" {
		opts.Response = DefaultResponse
	}
	return &Server{model: opts.Model, delay: opts.Delay, mode: opts.Mode, response: opts.Response}
}

// SetDelay changes the latency of every later generate call.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// QueueDelays sets per-call latencies consumed in order by the next generate
// calls; afterwards the default delay applies again.
func (s *Server) QueueDelays(ds ...time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, ds...)
}

func (s *Server) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

func (s *Server) SetResponse(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.response = text
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", s.handleTags)
	mux.HandleFunc("/api/generate", s.handleGenerate)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// GenerateCalls counts /api/generate requests.
func (s *Server) GenerateCalls() int {
	n := 0
	for _, c := range s.Calls() {
		if c.Path == "/api/generate" {
			n++
		}
	}
	return n
}

func (s *Server) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.record(Call{Method: r.Method, Path: r.URL.Path})
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	model := s.model
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"models": []map[string]any{{"name": model, "model": model}},
	})
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.record(Call{Method: r.Method, Path: r.URL.Path})
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.record(Call{Method: r.Method, Path: r.URL.Path})
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	s.record(Call{Method: r.Method, Path: r.URL.Path, Model: req.Model, Prompt: req.Prompt})

	s.mu.Lock()
	delay := s.delay
	if len(s.queued) > 0 {
		delay = s.queued[0]
		s.queued = s.queued[1:]
	}
	mode, response, model := s.mode, s.response, s.model
	s.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-r.Context().Done():
			t.Stop()
			return
		}
	}

	if req.Model != "" {
		model = req.Model
	}
	switch mode {
	case ModeServerError:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "model runner crashed"})
	case ModeGarbage:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"response": "truncated`))
	case ModeEmpty:
		writeJSON(w, http.StatusOK, map[string]any{"model": model, "response": "", "done": true})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"model": model, "response": response, "done": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
