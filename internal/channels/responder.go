package channels

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/keshon/accountability-bot/internal/ai"
	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/internal/logging"
	"github.com/keshon/accountability-bot/internal/metrics"
	"github.com/keshon/accountability-bot/internal/persona"
	"github.com/keshon/accountability-bot/internal/ratelimit"
)

// ResponderConfig tunes the reactive reply policy.
type ResponderConfig struct {
	Cooldown         time.Duration
	HelpLength       int
	ReplyProbability float64
	GenerateTimeout  time.Duration
	SendTimeout      time.Duration
}

// DefaultResponderConfig: one reply per user per channel a minute, messages
// over 50 characters count as asking for help, 30% of the rest get a reply.
func DefaultResponderConfig() ResponderConfig {
	return ResponderConfig{
		Cooldown:         60 * time.Second,
		HelpLength:       50,
		ReplyProbability: 0.3,
		GenerateTimeout:  30 * time.Second,
		SendTimeout:      15 * time.Second,
	}
}

// Responder answers inbound messages in persona channels.
type Responder struct {
	cfg      ResponderConfig
	registry *persona.Registry
	limiter  ratelimit.Limiter
	ledger   *engagement.Ledger
	gen      Generator
	platform Platform
	rng      Rand
	log      zerolog.Logger
}

func NewResponder(cfg ResponderConfig, registry *persona.Registry, limiter ratelimit.Limiter,
	ledger *engagement.Ledger, gen Generator, platform Platform, log zerolog.Logger, opts ...Option) *Responder {
	d := newDeps(opts)
	return &Responder{
		cfg:      cfg,
		registry: registry,
		limiter:  limiter,
		ledger:   ledger,
		gen:      gen,
		platform: platform,
		rng:      d.rng,
		log:      log.With().Str("component", "responder").Logger(),
	}
}

// OnMessage handles one inbound message. It never fails: collaborator errors
// and panics are logged and the message is dropped.
func (r *Responder) OnMessage(ctx context.Context, msg Message) {
	log := r.log.With().
		Str("channel", msg.ChannelName).
		Str("user", msg.AuthorID).
		Str("message", msg.ID).
		Logger()
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("reply aborted")
		}
	}()

	if msg.AuthorIsBot || msg.AuthorID == r.platform.BotUserID() {
		return
	}
	p, ok := r.registry.Get(msg.ChannelName)
	if !ok {
		return
	}

	// The window is consumed here, before generation, so a burst from one
	// user yields a single reply even while generation is in flight.
	if !r.limiter.CheckAndUpdate(ctx, msg.AuthorID, msg.ChannelID, r.cfg.Cooldown) {
		metrics.ObserveReply(p.ChannelName, metrics.OutcomeRateLimited)
		log.Debug().Msg("cooling down")
		return
	}
	if !r.eligible(p, msg.Content) {
		metrics.ObserveReply(p.ChannelName, metrics.OutcomeIrrelevant)
		return
	}

	gctx, cancel := withTimeout(ctx, r.cfg.GenerateTimeout)
	text, err := r.gen.Generate(gctx, r.prompt(p, msg))
	cancel()
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		metrics.ObserveReply(p.ChannelName, metrics.OutcomeSkipped)
		log.Warn().Err(err).Msg("no reply generated")
		return
	}

	post := Post{Title: p.Title(), Body: text, Color: p.Color}
	sctx, cancel := withTimeout(ctx, r.cfg.SendTimeout)
	err = r.platform.Reply(sctx, msg, post)
	cancel()
	if err != nil {
		metrics.ObserveReply(p.ChannelName, metrics.OutcomeFailed)
		log.Error().Err(err).Msg("send reply")
		return
	}

	rec := r.ledger.RecordResponse(p.ChannelName, msg.AuthorID)
	metrics.ObserveReply(p.ChannelName, metrics.OutcomeSent)
	log.Info().
		Int("responses", rec.ResponseCount).
		Str("reply", logging.Truncate(text, 80)).
		Msg("replied")
}

// eligible applies the relevance test. Off-topic short messages still get a
// reply with ReplyProbability.
func (r *Responder) eligible(p persona.Persona, content string) bool {
	if p.Matches(content) || utf8.RuneCountInString(content) > r.cfg.HelpLength {
		return true
	}
	return r.rng.Float64() < r.cfg.ReplyProbability
}

func (r *Responder) prompt(p persona.Persona, msg Message) []ai.Message {
	name := msg.AuthorName
	if name == "" {
		name = "a member"
	}
	return []ai.Message{
		{Role: ai.RoleSystem, Content: p.SystemPrompt + "\nKeep replies to 1-3 sentences."},
		{Role: ai.RoleUser, Content: fmt.Sprintf("Channel: #%s\nFrom: %s\nMessage: %s", p.ChannelName, name, msg.Content)},
	}
}
