package channels

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/internal/metrics"
	"github.com/keshon/accountability-bot/internal/persona"
)

// SchedulerConfig tunes the proactive check-in sweep.
type SchedulerConfig struct {
	// Interval is the polling period between sweeps.
	Interval time.Duration
	// SendDelay separates consecutive sends within one sweep.
	SendDelay   time.Duration
	SendTimeout time.Duration
	// StaleAfter is how long a user rests between check-ins.
	StaleAfter time.Duration
	// OwnerID is added to the targets of personas with IncludeOwner.
	OwnerID string
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:    30 * time.Minute,
		SendDelay:   2 * time.Second,
		SendTimeout: 15 * time.Second,
		StaleAfter:  24 * time.Hour,
	}
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	ID     string
	Due    []string
	Sent   int
	Failed int
}

// DueState is a persona's position in the schedule.
type DueState struct {
	Persona     persona.Persona
	NextCheckAt time.Time
}

// Scheduler polls the personas on a fixed period and fires check-ins for the
// ones whose next check time has passed. Each due persona redraws its next
// check time from its own interval.
type Scheduler struct {
	cfg      SchedulerConfig
	registry *persona.Registry
	ledger   *engagement.Ledger
	platform Platform
	rng      Rand
	now      func() time.Time
	sleep    Sleeper
	log      zerolog.Logger

	mu   sync.Mutex
	next map[string]time.Time

	// one sweep at a time
	sweepMu sync.Mutex
}

// NewScheduler seeds every persona's next check at now + its SeedOffset.
func NewScheduler(cfg SchedulerConfig, registry *persona.Registry, ledger *engagement.Ledger,
	platform Platform, log zerolog.Logger, opts ...Option) *Scheduler {
	d := newDeps(opts)
	s := &Scheduler{
		cfg:      cfg,
		registry: registry,
		ledger:   ledger,
		platform: platform,
		rng:      d.rng,
		now:      d.now,
		sleep:    d.sleep,
		log:      log.With().Str("component", "scheduler").Logger(),
		next:     make(map[string]time.Time),
	}
	start := s.now()
	for _, p := range registry.All() {
		s.next[p.ChannelName] = start.Add(p.SeedOffset)
	}
	return s
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = DefaultSchedulerConfig().Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Int("personas", s.registry.Len()).Msg("scheduler started")
	for {
		s.Sweep(ctx)
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep processes every due persona in registry order. Personas that are not
// due are left untouched.
func (s *Scheduler) Sweep(ctx context.Context) SweepReport {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	started := time.Now()
	rep := SweepReport{ID: uuid.NewString()}
	log := s.log.With().Str("sweep", rep.ID).Logger()
	attempts := 0

	for _, p := range s.registry.All() {
		if ctx.Err() != nil {
			break
		}
		if !s.due(p.ChannelName, s.now()) {
			continue
		}
		rep.Due = append(rep.Due, p.ChannelName)
		s.fire(ctx, p, &rep, &attempts, log.With().Str("persona", p.ChannelName).Logger())
	}

	metrics.ObserveSweep(started, rep.Due)
	if len(rep.Due) > 0 {
		log.Info().
			Strs("due", rep.Due).
			Int("sent", rep.Sent).
			Int("failed", rep.Failed).
			Msg("sweep done")
	}
	return rep
}

// fire runs one due cycle. The reschedule is deferred so it happens whatever
// the sends did, including a recovered panic.
func (s *Scheduler) fire(ctx context.Context, p persona.Persona, rep *SweepReport, attempts *int, log zerolog.Logger) {
	defer s.reschedule(p, log)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("due cycle aborted")
		}
	}()

	chans, err := s.platform.ListChannelsByName(ctx, p.ChannelName)
	if err != nil {
		log.Warn().Err(err).Msg("list channels")
	}
	if len(chans) == 0 {
		log.Debug().Msg("no matching channels")
		return
	}

	users := s.resolve(ctx, s.targets(p), log)
	for _, ch := range chans {
		for _, u := range users {
			if *attempts > 0 {
				if err := s.sleep(ctx, s.cfg.SendDelay); err != nil {
					return
				}
			}
			*attempts++

			tmpl := p.CheckTemplates[s.rng.Intn(len(p.CheckTemplates))]
			post := Post{
				Title:   p.Title(),
				Body:    p.RenderCheck(tmpl, u.Mention),
				Color:   p.Color,
				Footer:  "check-in",
				Content: u.Mention,
			}
			sctx, cancel := withTimeout(ctx, s.cfg.SendTimeout)
			err := s.platform.Send(sctx, ch.ID, post)
			cancel()
			metrics.ObserveCheckin(p.ChannelName, err)
			if err != nil {
				rep.Failed++
				log.Warn().Err(err).Str("channel_id", ch.ID).Str("user", u.ID).Msg("send check-in")
				continue
			}
			rep.Sent++
			rec := s.ledger.RecordCheck(p.ChannelName, u.ID)
			log.Debug().Str("channel_id", ch.ID).Str("user", u.ID).Int("checks", rec.CheckCount).Msg("check-in sent")
		}
	}
}

// targets is the owner (when the persona asks for it) followed by the most
// engaged users who are due a check-in. Duplicates collapse.
func (s *Scheduler) targets(p persona.Persona) []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if p.IncludeOwner {
		add(s.cfg.OwnerID)
	}
	for _, id := range s.ledger.Candidates(p.ChannelName, s.now(), s.cfg.StaleAfter, p.TargetCount) {
		add(id)
	}
	return ids
}

func (s *Scheduler) resolve(ctx context.Context, ids []string, log zerolog.Logger) []User {
	users := make([]User, 0, len(ids))
	for _, id := range ids {
		u, err := s.platform.FetchUser(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("user", id).Msg("fetch user")
			continue
		}
		users = append(users, u)
	}
	return users
}

func (s *Scheduler) due(channel string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := s.next[channel]
	return ok && !now.Before(next)
}

func (s *Scheduler) reschedule(p persona.Persona, log zerolog.Logger) {
	lo, hi := p.CheckInterval.Min(), p.CheckInterval.Max()
	wait := lo + time.Duration(s.rng.Float64()*float64(hi-lo))
	next := s.now().Add(wait)

	s.mu.Lock()
	s.next[p.ChannelName] = next
	s.mu.Unlock()
	log.Debug().Time("next_check_at", next).Msg("rescheduled")
}

// NextCheckAt returns when the persona governing channel is next due.
func (s *Scheduler) NextCheckAt(channel string) (time.Time, bool) {
	p, ok := s.registry.Get(channel)
	if !ok {
		return time.Time{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.next[p.ChannelName]
	return t, ok
}

// Schedule lists every persona with its next check time, in registry order.
func (s *Scheduler) Schedule() []DueState {
	all := s.registry.All()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DueState, 0, len(all))
	for _, p := range all {
		out = append(out, DueState{Persona: p, NextCheckAt: s.next[p.ChannelName]})
	}
	return out
}
