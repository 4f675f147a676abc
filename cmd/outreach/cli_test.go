package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "outreach ") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestGenerateThenDryRunSend(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	t.Setenv("OUTREACH_AI_PROVIDER", "none")
	t.Setenv("OUTREACH_LOG_LEVEL", "error")
	t.Setenv("OUTREACH_EMAIL_RATE_LIMIT_RPS", "-1")

	input := filepath.Join(dir, "prospects.csv")
	output := filepath.Join(dir, "emails.csv")
	csv := "company,email,industry\nLincoln Elementary,office@lincoln.edu,School\nAcme Builders,hi@acme.example,Construction\n"
	if err := os.WriteFile(input, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "generate", "--input", input, "--output", output, "--quiet")
	if err != nil {
		t.Fatalf("generate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Generated 2 emails") || !strings.Contains(out, "Template:   2") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output not written: %v", err)
	}

	out, err = execute(t, "send", "--input", output)
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected placeholder credentials to block sending, got %v", err)
	}

	out, err = execute(t, "send", "--input", output, "--dry-run")
	if err != nil {
		t.Fatalf("dry-run send failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Sent 2 of 2 (0 failed)") {
		t.Fatalf("unexpected send output %q", out)
	}
	sendDryRun = false
}

func TestTemplateCSVThenGenerate(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	t.Setenv("OUTREACH_AI_PROVIDER", "none")
	t.Setenv("OUTREACH_LOG_LEVEL", "error")

	input := filepath.Join(dir, "prospects.csv")
	out, err := execute(t, "template-csv", "-o", input)
	if err != nil {
		t.Fatalf("template-csv failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Template saved to "+input) {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = execute(t, "generate", "--input", input, "--output", filepath.Join(dir, "emails.json"), "--quiet")
	if err != nil {
		t.Fatalf("generate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Generated 3 emails") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}
