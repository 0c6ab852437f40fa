package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/keshon/accountability-bot/internal/metrics"
	"github.com/keshon/accountability-bot/pkg/retrylimit"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// ChatClient talks to a chat completions endpoint. It is used directly for
// OpenAI-compatible servers and, with different defaults, for Pollinations.
type ChatClient struct {
	name        string
	http        *http.Client
	baseURL     string
	path        string
	apiKey      string
	model       string
	temperature float64
	extra       map[string]any
	lim         *retrylimit.AdaptiveLimiter
}

// NewOpenAI creates a client for an OpenAI-compatible API. lim may be nil.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration, lim *retrylimit.AdaptiveLimiter) *ChatClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatClient{
		name:        "openai",
		http:        &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		path:        "/chat/completions",
		apiKey:      apiKey,
		model:       model,
		temperature: 0.9,
		lim:         lim,
	}
}

// Name identifies the provider in logs and metrics.
func (c *ChatClient) Name() string { return c.name }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Generate sends messages and returns the cleaned first choice.
func (c *ChatClient) Generate(ctx context.Context, messages []Message) (reply string, err error) {
	start := time.Now()
	defer func() { metrics.ObserveGeneration(c.name, start, err) }()

	if c.lim != nil {
		if err := c.lim.Wait(ctx); err != nil {
			return "", err
		}
		defer func() { c.lim.Observe(err) }()
	}

	body, err := c.encode(messages)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s: %w", c.name, &retrylimit.StatusError{Code: resp.StatusCode, Body: truncate(raw)})
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return "", fmt.Errorf("%s returned html", c.name)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%s: decode: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices: %w", c.name, ErrEmptyReply)
	}

	reply = cleanReply(parsed.Choices[0].Message.Content)
	if isGarbageResponse(reply) {
		return "", fmt.Errorf("%s: %w", c.name, ErrEmptyReply)
	}
	return reply, nil
}

func (c *ChatClient) encode(messages []Message) ([]byte, error) {
	if len(c.extra) == 0 {
		return json.Marshal(chatRequest{Model: c.model, Messages: messages, Temperature: c.temperature})
	}
	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": c.temperature,
	}
	for k, v := range c.extra {
		payload[k] = v
	}
	return json.Marshal(payload)
}
