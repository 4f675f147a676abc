package mockllm_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/freshstart/outreach/internal/generator"
	"github.com/freshstart/outreach/internal/generator/ollama"
	"github.com/freshstart/outreach/internal/mockllm"
	"github.com/freshstart/outreach/internal/prospect"
)

func newClient(t *testing.T, srv *mockllm.Server) *ollama.Client {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ollama.New(ollama.Options{BaseURL: ts.URL, Model: "llama3.2"})
}

var req = generator.Request{Prospect: prospect.Prospect{CompanyName: "Acme", Email: "a@acme.example"}}

func TestGenerateOK(t *testing.T) {
	srv := mockllm.New(mockllm.Options{})
	c := newClient(t, srv)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	out, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Raw != mockllm.DefaultResponse {
		t.Fatalf("unexpected response %q", out.Raw)
	}
	calls := srv.Calls()
	if len(calls) != 2 || calls[1].Model != "llama3.2" || calls[1].Prompt == "" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if srv.GenerateCalls() != 1 {
		t.Fatalf("expected 1 generate call, got %d", srv.GenerateCalls())
	}
}

func TestModes(t *testing.T) {
	tests := []struct {
		mode mockllm.Mode
		want error
	}{
		{mockllm.ModeEmpty, generator.ErrMalformed},
		{mockllm.ModeGarbage, generator.ErrMalformed},
		{mockllm.ModeServerError, generator.ErrUnreachable},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			srv := mockllm.New(mockllm.Options{Mode: tt.mode})
			_, err := newClient(t, srv).Generate(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestQueuedDelaysTimeOutThenRecover(t *testing.T) {
	srv := mockllm.New(mockllm.Options{})
	srv.QueueDelays(200 * time.Millisecond)
	c := newClient(t, srv)

	_, err := generator.GenerateWithin(context.Background(), c, req, 20*time.Millisecond)
	if !errors.Is(err, generator.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if _, err := generator.GenerateWithin(context.Background(), c, req, time.Second); err != nil {
		t.Fatalf("second call should be fast: %v", err)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := mockllm.ParseMode(" Garbage "); err != nil || m != mockllm.ModeGarbage {
		t.Fatalf("ParseMode: %v %v", m, err)
	}
	if m, _ := mockllm.ParseMode(""); m != mockllm.ModeOK {
		t.Fatalf("empty mode should be ok, got %v", m)
	}
	if _, err := mockllm.ParseMode("slow"); err == nil {
		t.Fatalf("expected error")
	}
}
