// Package ai generates persona replies through an OpenAI-compatible chat
// completions endpoint.
package ai

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/keshon/accountability-bot/internal/config"
	"github.com/keshon/accountability-bot/pkg/retrylimit"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ErrEmptyReply is returned when the model answered with nothing usable.
var ErrEmptyReply = errors.New("ai: empty reply")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider turns a conversation into one reply. Implementations do not retry.
type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// NewProvider builds the provider selected by cfg.AIProvider. All providers
// share one adaptive limiter sized by cfg.AIRPS.
func NewProvider(cfg *config.Config) (Provider, error) {
	rps := rate.Limit(cfg.AIRPS)
	lim := retrylimit.NewAdaptiveLimiter(rps, rps/4, rps*2, 0.5, 0.5)

	switch cfg.AIProvider {
	case "openai":
		return NewOpenAI(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout, lim), nil
	case "pollinations", "":
		p := NewPollinations(cfg.AIModel, cfg.AITimeout, lim)
		if cfg.AIBaseURL != "" {
			p.baseURL = cfg.AIBaseURL
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER: %s", cfg.AIProvider)
	}
}
