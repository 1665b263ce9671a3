package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env            string `env:"ENVIRONMENT"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"jobwatch.sqlite"`

	Telegram struct {
		Token string `env:"TELEGRAM_BOT_TOKEN"`
	}
	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}
	Scrape struct {
		BaseURL         string `env:"SCRAPE_BASE_URL" envDefault:"https://www.workana.com/jobs"`
		Language        string `env:"SCRAPE_LANGUAGE" envDefault:"es"`
		Query           string `env:"SCRAPE_QUERY"`
		IntervalMinutes int    `env:"SCRAPE_INTERVAL_MINUTES" envDefault:"5"`
		// Fallback used only when the flag store is unreachable; the remote flag wins otherwise.
		EnabledDefault bool `env:"SCRAPE_ENABLED_DEFAULT" envDefault:"false"`
	}
	Scan struct {
		IntervalMinutes int `env:"SKILL_SCAN_INTERVAL_MINUTES" envDefault:"5"`
		Limit           int `env:"SKILL_SCAN_LIMIT" envDefault:"200"`
	}
	TickSecs int `env:"SCHEDULER_TICK_SECS" envDefault:"5"`

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		log.Sugar().Panic(err)
	}

	creds, err := cfg.parseCreds()
	if err != nil {
		if cfg.Env == "production" {
			cfg.log.Sugar().Panic(err)
		}
		cfg.log.Sugar().Infof("%s (credentials will be set to default outside production)", err)
		creds = map[string]string{"admin": "password"}
	}
	cfg.creds = creds

	return cfg
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	if len(creds) == 0 {
		return nil, errors.New("BASIC_AUTH_CREDS envvar should be filled with comma-separated values -- user1:pass1,user2:pass2")
	}

	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
