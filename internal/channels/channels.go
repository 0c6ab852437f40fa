// Package channels runs the topic channel personas: the reactive responder
// that answers inbound messages and the scheduler that checks in on members
// unprompted.
package channels

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/keshon/accountability-bot/internal/ai"
)

// Message is an inbound chat message as seen by the responder.
type Message struct {
	ID          string
	ChannelID   string
	ChannelName string
	GuildID     string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	Content     string
}

// Channel is one physical text channel.
type Channel struct {
	ID      string
	Name    string
	GuildID string
}

// User is a resolved check-in target.
type User struct {
	ID          string
	DisplayName string
	Mention     string
}

// Post is a persona-branded outbound message. Content is sent as plain text
// next to the card so mentions notify.
type Post struct {
	Title   string
	Body    string
	Color   int
	Footer  string
	Content string
}

// Platform is the chat platform the personas talk through.
type Platform interface {
	BotUserID() string
	ListChannelsByName(ctx context.Context, name string) ([]Channel, error)
	FetchUser(ctx context.Context, id string) (User, error)
	Send(ctx context.Context, channelID string, p Post) error
	Reply(ctx context.Context, m Message, p Post) error
}

// Generator produces reply text. ai.Provider satisfies it.
type Generator interface {
	Generate(ctx context.Context, messages []ai.Message) (string, error)
}

// Rand is the randomness the personas draw from.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a seeded Rand safe for concurrent use.
func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type deps struct {
	rng   Rand
	now   func() time.Time
	sleep Sleeper
}

// Option overrides a default collaborator, mostly for tests.
type Option func(*deps)

func WithRand(r Rand) Option { return func(d *deps) { d.rng = r } }
func WithClock(now func() time.Time) Option { return func(d *deps) { d.now = now } }
func WithSleeper(s Sleeper) Option { return func(d *deps) { d.sleep = s } }

func newDeps(opts []Option) deps {
	d := deps{
		rng:   NewRand(time.Now().UnixNano()),
		now:   time.Now,
		sleep: SleepContext,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
