package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OUTREACH_AI_MODEL.
const EnvPrefix = "OUTREACH"

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.url", "http://localhost:11434")
	v.SetDefault("ai.model", "llama3.2")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.fast_timeout", "15s")
	v.SetDefault("ai.slow_timeout", "60s")
	v.SetDefault("ai.gemini_api_key", "")
	v.SetDefault("ai.gemini_model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini_base_url", "")

	v.SetDefault("generation.concurrency", 1)
	v.SetDefault("generation.rate_limit_rps", 0)
	v.SetDefault("generation.templates_path", "")
	v.SetDefault("generation.infer_industry", true)

	v.SetDefault("email.transport", "smtp")
	v.SetDefault("email.from_email", PlaceholderFromEmail)
	v.SetDefault("email.from_name", "")
	v.SetDefault("email.from_password", PlaceholderPassword)
	v.SetDefault("email.smtp_server", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.tls_mode", "starttls")
	v.SetDefault("email.ses_region", "us-east-1")
	v.SetDefault("email.ses_configuration_set", "")
	v.SetDefault("email.rate_limit_rps", 1)
	v.SetDefault("email.max_retries", 2)
	v.SetDefault("email.send_timeout", "30s")

	v.SetDefault("company.name", "Fresh Start Cleaning Co.")
	v.SetDefault("company.phone", "")
	v.SetDefault("company.website", "")
	v.SetDefault("company.service_area", "Louisiana")
	v.SetDefault("company.years", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("export.path", "")
	v.SetDefault("export.format", "")
}

// Load reads configuration in increasing precedence: defaults, the YAML file
// at path (optional; "" searches ./config.yaml and ./configs/config.yaml),
// a .env file, then OUTREACH_* environment variables. String values may
// reference other variables as ${NAME}.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok || !strings.Contains(s, "${") {
			continue
		}
		if expanded := os.ExpandEnv(s); expanded != s {
			v.Set(key, expanded)
		}
	}
}

func normalize(cfg *Config) {
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	cfg.AI.URL = strings.TrimSpace(cfg.AI.URL)
	cfg.AI.Model = strings.TrimSpace(cfg.AI.Model)
	cfg.Email.Transport = strings.ToLower(strings.TrimSpace(cfg.Email.Transport))
	cfg.Email.FromEmail = strings.TrimSpace(cfg.Email.FromEmail)
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Email.FromName == "" {
		cfg.Email.FromName = cfg.Company.Name
	}
}
