package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/freshstart/outreach/internal/mockllm"
)

func main() {
	addr := defaultString("MOCK_LLM_ADDR", ":11434")
	model := defaultString("MOCK_LLM_MODEL", "llama3.2")
	mode := defaultString("MOCK_LLM_MODE", "ok")
	delay := defaultString("MOCK_LLM_DELAY", "0s")
	responseFile := defaultString("MOCK_LLM_RESPONSE_FILE", "")

	fs := flag.NewFlagSet("mock-llm", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&model, "model", model, "Model name reported by /api/tags")
	fs.StringVar(&mode, "mode", mode, "Response mode: ok, empty, error, garbage")
	fs.StringVar(&delay, "delay", delay, "Latency added to every generate call, e.g. 20s to force the slow tier")
	fs.StringVar(&responseFile, "response-file", responseFile, "File whose contents are returned as the generated text")
	_ = fs.Parse(os.Args[1:])

	m, err := mockllm.ParseMode(mode)
	if err != nil {
		fail(err)
	}
	d, err := time.ParseDuration(delay)
	if err != nil {
		fail(fmt.Errorf("invalid delay %q: %w", delay, err))
	}
	var response string
	if responseFile != "" {
		b, err := os.ReadFile(responseFile)
		if err != nil {
			fail(err)
		}
		response = string(b)
	}

	srv := mockllm.New(mockllm.Options{Model: model, Delay: d, Mode: m, Response: response})

	_, _ = fmt.Fprintf(os.Stdout, "mock-llm listening on %s (model=%s mode=%s delay=%s)\n", addr, model, m, d)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		fail(fmt.Errorf("server error: %w", err))
	}
}

func fail(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
