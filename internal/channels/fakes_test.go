package channels

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/keshon/accountability-bot/internal/ai"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fixedRand always draws the same float and the first index.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }
func (f fixedRand) Intn(int) int     { return 0 }

type sentPost struct {
	ChannelID string
	Post      Post
}

type fakePlatform struct {
	mu        sync.Mutex
	botID     string
	channels  map[string][]Channel
	listErr   error
	users     map[string]User
	failSend  map[string]bool // channel IDs whose sends fail
	failReply bool
	sent      []sentPost
	replies   []Post
}

func newPlatform() *fakePlatform {
	return &fakePlatform{
		botID:    "bot",
		channels: make(map[string][]Channel),
		users:    make(map[string]User),
		failSend: make(map[string]bool),
	}
}

func (f *fakePlatform) addUser(ids ...string) {
	for _, id := range ids {
		f.users[id] = User{ID: id, DisplayName: "user " + id, Mention: "<@" + id + ">"}
	}
}

func (f *fakePlatform) BotUserID() string { return f.botID }

func (f *fakePlatform) ListChannelsByName(_ context.Context, name string) ([]Channel, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.channels[name], nil
}

func (f *fakePlatform) FetchUser(_ context.Context, id string) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, errors.New("unknown user")
	}
	return u, nil
}

func (f *fakePlatform) Send(_ context.Context, channelID string, p Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend[channelID] {
		return errors.New("missing permissions")
	}
	f.sent = append(f.sent, sentPost{ChannelID: channelID, Post: p})
	return nil
}

func (f *fakePlatform) Reply(_ context.Context, _ Message, p Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReply {
		return errors.New("send failed")
	}
	f.replies = append(f.replies, p)
	return nil
}

func (f *fakePlatform) replyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

type fakeGen struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
	panic bool
	last  []ai.Message
}

func (g *fakeGen) Generate(_ context.Context, msgs []ai.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.last = msgs
	if g.panic {
		panic("generator exploded")
	}
	return g.reply, g.err
}

type allowAll struct{}

func (allowAll) CheckAndUpdate(context.Context, string, string, time.Duration) bool { return true }

type countingSleeper struct {
	calls int
	total time.Duration
}

func (s *countingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.calls++
	s.total += d
	return nil
}
