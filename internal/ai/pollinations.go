package ai

import (
	"time"

	"github.com/keshon/accountability-bot/pkg/retrylimit"
)

const pollinationsBaseURL = "https://text.pollinations.ai"

// NewPollinations creates a client for the free Pollinations text endpoint.
// No API key is needed and requests are marked private.
func NewPollinations(model string, timeout time.Duration, lim *retrylimit.AdaptiveLimiter) *ChatClient {
	if model == "" {
		model = "openai"
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	c := NewOpenAI(pollinationsBaseURL, "", model, timeout, lim)
	c.name = "pollinations"
	c.path = "/openai"
	c.temperature = 1
	c.extra = map[string]any{"private": true}
	return c
}
