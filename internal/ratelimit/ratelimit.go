// Package ratelimit gates reactive replies: one reply per (user, channel) per window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Limiter is the cooldown gate. CheckAndUpdate returns true and stamps the
// reply time when the pair is outside its window; otherwise it returns false
// and changes nothing.
type Limiter interface {
	CheckAndUpdate(ctx context.Context, userID, channelID string, window time.Duration) bool
}

type key struct {
	userID    string
	channelID string
}

// Memory keeps last-reply times in process memory.
type Memory struct {
	mu   sync.Mutex
	last map[key]time.Time
	now  func() time.Time
}

// NewMemory creates an in-memory limiter. now may be nil.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{last: make(map[key]time.Time), now: now}
}

// CheckAndUpdate checks and stamps in one critical section, so concurrent
// messages from the same user in the same channel yield a single reply.
func (m *Memory) CheckAndUpdate(_ context.Context, userID, channelID string, window time.Duration) bool {
	now := m.now()
	k := key{userID: userID, channelID: channelID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.last[k]; ok && now.Sub(last) < window {
		return false
	}
	m.last[k] = now
	return true
}

// LastReply returns when the pair was last allowed through.
func (m *Memory) LastReply(userID, channelID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.last[key{userID: userID, channelID: channelID}]
	return t, ok
}

// Len returns the number of tracked pairs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.last)
}

// Evict drops entries whose last reply is older than maxAge and returns how many went.
func (m *Memory) Evict(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, t := range m.last {
		if t.Before(cutoff) {
			delete(m.last, k)
			n++
		}
	}
	return n
}

// RunEvictor evicts stale entries every interval until ctx is done.
func (m *Memory) RunEvictor(ctx context.Context, interval, maxAge time.Duration, logger zerolog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Evict(maxAge); n > 0 {
				logger.Debug().Int("evicted", n).Int("remaining", m.Len()).Msg("ratelimit: evicted stale entries")
			}
		}
	}
}
