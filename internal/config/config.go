// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken   string   `env:"DISCORD_TOKEN"`
	GuildBlacklist []string `env:"GUILD_BLACKLIST" envSeparator:","`
	OwnerUserID    string   `env:"OWNER_USER_ID"`

	AppEnv   string `env:"APP_ENV" envDefault:"prod"`
	LogLevel string `env:"LOG_LEVEL"`

	StoragePath  string `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	PersonasPath string `env:"PERSONAS_PATH"`

	// Channel personalities
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"30m"`
	SendDelay        time.Duration `env:"SEND_DELAY" envDefault:"2s"`
	SendTimeout      time.Duration `env:"SEND_TIMEOUT" envDefault:"15s"`
	ReplyCooldown    time.Duration `env:"REPLY_COOLDOWN" envDefault:"60s"`
	ReplyProbability float64       `env:"REPLY_PROBABILITY" envDefault:"0.3"`
	HelpLength       int           `env:"HELP_LENGTH" envDefault:"50"`
	CheckStaleAfter  time.Duration `env:"CHECK_STALE_AFTER" envDefault:"24h"`

	// Text generation
	AIProvider string        `env:"AI_PROVIDER" envDefault:"pollinations"`
	AIBaseURL  string        `env:"AI_BASE_URL"`
	AIAPIKey   string        `env:"AI_API_KEY"`
	AIModel    string        `env:"AI_MODEL"`
	AITimeout  time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
	AIRPS      float64       `env:"AI_RPS" envDefault:"2"`

	RedisAddr string `env:"REDIS_ADDR"`
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.ReplyProbability < 0 || c.ReplyProbability > 1 {
		errs = append(errs, fmt.Errorf("REPLY_PROBABILITY must be within [0,1], got %v", c.ReplyProbability))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.ReplyCooldown <= 0 {
		errs = append(errs, errors.New("REPLY_COOLDOWN must be positive"))
	}
	if c.SendDelay < 0 || c.SendTimeout < 0 || c.AITimeout < 0 {
		errs = append(errs, errors.New("SEND_DELAY, SEND_TIMEOUT and AI_TIMEOUT must not be negative"))
	}
	if c.HelpLength < 0 {
		errs = append(errs, errors.New("HELP_LENGTH must not be negative"))
	}
	switch c.AIProvider {
	case "openai", "pollinations":
	default:
		errs = append(errs, fmt.Errorf("unsupported AI_PROVIDER: %s", c.AIProvider))
	}
	return errors.Join(errs...)
}

// RequireDiscord checks the settings only the serve command needs.
func (c *Config) RequireDiscord() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	return nil
}
