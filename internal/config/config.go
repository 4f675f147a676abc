// Package config holds runtime settings for the outreach CLI.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Placeholder credentials shipped in the sample config.
const (
	PlaceholderFromEmail = "your_email@gmail.com"
	PlaceholderPassword  = "your_16_character_app_password"
)

type Config struct {
	AI         AIConfig         `mapstructure:"ai"`
	Generation GenerationConfig `mapstructure:"generation"`
	Email      EmailConfig      `mapstructure:"email"`
	Company    CompanyConfig    `mapstructure:"company"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Export     ExportConfig     `mapstructure:"export"`
}

type AIConfig struct {
	// Provider is ollama, gemini or none.
	Provider    string        `mapstructure:"provider"`
	URL         string        `mapstructure:"url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	FastTimeout time.Duration `mapstructure:"fast_timeout"`
	SlowTimeout time.Duration `mapstructure:"slow_timeout"`

	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	GeminiModel   string `mapstructure:"gemini_model"`
	GeminiBaseURL string `mapstructure:"gemini_base_url"`
}

type GenerationConfig struct {
	Concurrency   int     `mapstructure:"concurrency"`
	RateLimitRPS  float64 `mapstructure:"rate_limit_rps"`
	TemplatesPath string  `mapstructure:"templates_path"`
	InferIndustry bool    `mapstructure:"infer_industry"`
}

type EmailConfig struct {
	// Transport is smtp, ses or log.
	Transport    string        `mapstructure:"transport"`
	FromEmail    string        `mapstructure:"from_email"`
	FromName     string        `mapstructure:"from_name"`
	FromPassword string        `mapstructure:"from_password"`
	SMTPServer   string        `mapstructure:"smtp_server"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	TLSMode      string        `mapstructure:"tls_mode"`
	SESRegion    string        `mapstructure:"ses_region"`
	SESConfigSet string        `mapstructure:"ses_configuration_set"`
	RateLimitRPS float64       `mapstructure:"rate_limit_rps"`
	MaxRetries   int           `mapstructure:"max_retries"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
}

type CompanyConfig struct {
	Name        string `mapstructure:"name"`
	Phone       string `mapstructure:"phone"`
	Website     string `mapstructure:"website"`
	ServiceArea string `mapstructure:"service_area"`
	Years       int    `mapstructure:"years"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `mapstructure:"addr"`
}

type ExportConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// EmailConfigured reports whether sending credentials are present and are not
// the sample placeholders. The log transport needs no credentials.
func (c *Config) EmailConfigured() bool {
	e := c.Email
	switch e.Transport {
	case "log":
		return true
	case "ses":
		return strings.Contains(e.FromEmail, "@") && e.FromEmail != PlaceholderFromEmail
	}
	return e.FromEmail != "" && e.FromPassword != "" &&
		e.FromEmail != PlaceholderFromEmail &&
		e.FromPassword != PlaceholderPassword &&
		strings.Contains(e.FromEmail, "@")
}

// Validate checks settings needed by every command. Email credentials are
// checked separately by EmailConfigured since generation does not need them.
func (c *Config) Validate() error {
	var errs []error
	switch c.AI.Provider {
	case "ollama":
		if c.AI.URL == "" || c.AI.Model == "" {
			errs = append(errs, errors.New("ai.url and ai.model are required for the ollama provider"))
		}
	case "gemini":
		if c.AI.GeminiAPIKey == "" {
			errs = append(errs, errors.New("ai.gemini_api_key is required for the gemini provider"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("unknown ai.provider %q", c.AI.Provider))
	}
	if c.AI.FastTimeout <= 0 || c.AI.SlowTimeout <= 0 {
		errs = append(errs, errors.New("ai.fast_timeout and ai.slow_timeout must be positive"))
	}
	if c.Generation.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("generation.concurrency must be at least 1, got %d", c.Generation.Concurrency))
	}
	switch c.Email.Transport {
	case "smtp", "ses", "log":
	default:
		errs = append(errs, fmt.Errorf("unknown email.transport %q", c.Email.Transport))
	}
	if c.Email.Transport == "smtp" && (c.Email.SMTPServer == "" || c.Email.SMTPPort <= 0) {
		errs = append(errs, errors.New("email.smtp_server and email.smtp_port are required for smtp"))
	}
	if strings.TrimSpace(c.Company.Name) == "" {
		errs = append(errs, errors.New("company.name is required"))
	}
	return errors.Join(errs...)
}
