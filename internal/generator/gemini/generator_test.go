package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/freshstart/outreach/internal/generator"
)

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "api_429", in: genai.APIError{Code: 429}, want: generator.ErrUnreachable},
		{name: "api_500", in: genai.APIError{Code: 500}, want: generator.ErrUnreachable},
		{name: "api_401", in: genai.APIError{Code: 401}, want: generator.ErrUnreachable},
		{name: "deadline", in: context.DeadlineExceeded, want: generator.ErrTimeout},
		{name: "other", in: errors.New("tls handshake failed"), want: generator.ErrUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(tt.in)
			if !errors.Is(got, tt.want) {
				t.Fatalf("classifyErr(%v)=%v want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	got, err := decode(`{"subject":"Cleaner sites for Turner","body":"Hello Turner team"}`, "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Raw != "Subject: Cleaner sites for Turner\n\nHello Turner team" || got.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected text: %#v", got)
	}

	got, err = decode(`{"subject":"","body":"Hello Turner team"}`, "m")
	if err != nil || got.Raw != "Hello Turner team" {
		t.Fatalf("unexpected subjectless decode: %#v err=%v", got, err)
	}

	if _, err := decode(`not json`, "m"); !errors.Is(err, generator.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := decode(`{"subject":"x","body":"  "}`, "m"); !errors.Is(err, generator.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for empty body, got %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{Model: "m"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := New(context.Background(), Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected missing model error")
	}
}
