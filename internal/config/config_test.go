package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("GUILD_BLACKLIST", "1,2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SweepInterval != 30*time.Minute {
		t.Errorf("SweepInterval = %v, want 30m", cfg.SweepInterval)
	}
	if cfg.SendDelay != 2*time.Second {
		t.Errorf("SendDelay = %v, want 2s", cfg.SendDelay)
	}
	if cfg.ReplyCooldown != time.Minute {
		t.Errorf("ReplyCooldown = %v, want 1m", cfg.ReplyCooldown)
	}
	if cfg.ReplyProbability != 0.3 {
		t.Errorf("ReplyProbability = %v, want 0.3", cfg.ReplyProbability)
	}
	if cfg.HelpLength != 50 {
		t.Errorf("HelpLength = %d, want 50", cfg.HelpLength)
	}
	if cfg.AIProvider != "openai" {
		t.Errorf("AIProvider = %q, want openai", cfg.AIProvider)
	}
	if len(cfg.GuildBlacklist) != 2 {
		t.Errorf("GuildBlacklist = %v, want 2 entries", cfg.GuildBlacklist)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			SweepInterval:    time.Minute,
			ReplyCooldown:    time.Minute,
			ReplyProbability: 0.3,
			AIProvider:       "openai",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"probability above one", func(c *Config) { c.ReplyProbability = 1.5 }, true},
		{"zero sweep", func(c *Config) { c.SweepInterval = 0 }, true},
		{"negative delay", func(c *Config) { c.SendDelay = -time.Second }, true},
		{"unknown provider", func(c *Config) { c.AIProvider = "nope" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireDiscord(t *testing.T) {
	cfg := Config{}
	if err := cfg.RequireDiscord(); err == nil {
		t.Fatal("expected error without token")
	}
	cfg.DiscordToken = "x"
	if err := cfg.RequireDiscord(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
