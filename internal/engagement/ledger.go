// Package engagement tracks per-channel, per-user interaction counters and
// derives the weighted cross-channel leaderboard from them.
package engagement

import (
	"sort"
	"sync"
	"time"
)

// Record holds one user's counters in one channel. Counters only grow.
type Record struct {
	LastActivity  time.Time `json:"last_activity"`
	ResponseCount int       `json:"response_count"`
	LastCheck     time.Time `json:"last_check"`
	CheckCount    int       `json:"check_count"`
}

// Entry is a record with its key, as returned by Snapshot.
type Entry struct {
	Channel string `json:"channel"`
	UserID  string `json:"user_id"`
	Record
}

type key struct {
	channel string
	userID  string
}

// Ledger is the in-memory engagement store shared by the responder and the
// scheduler. Safe for concurrent use. Nothing is persisted.
type Ledger struct {
	mu      sync.RWMutex
	records map[key]*Record
	order   []key
	now     func() time.Time
}

// NewLedger creates an empty ledger. now may be nil.
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{records: make(map[key]*Record), now: now}
}

func (l *Ledger) getLocked(channel, userID string) *Record {
	k := key{channel: channel, userID: userID}
	r, ok := l.records[k]
	if !ok {
		r = &Record{}
		l.records[k] = r
		l.order = append(l.order, k)
	}
	return r
}

// Get returns a copy of the record, creating a zero one if absent.
func (l *Ledger) Get(channel, userID string) Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.getLocked(channel, userID)
}

// Lookup returns the record without creating it.
func (l *Ledger) Lookup(channel, userID string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.records[key{channel: channel, userID: userID}]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// RecordResponse counts a reactive reply sent to userID in channel.
func (l *Ledger) RecordResponse(channel, userID string) Record {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.getLocked(channel, userID)
	r.ResponseCount++
	r.LastActivity = now
	return *r
}

// RecordCheck counts a proactive check-in sent to userID in channel.
func (l *Ledger) RecordCheck(channel, userID string) Record {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.getLocked(channel, userID)
	r.CheckCount++
	r.LastCheck = now
	return *r
}

// Candidates returns up to limit users of channel who were never checked or
// were last checked at least staleAfter ago, most responses first. Equal
// counts keep insertion order.
func (l *Ledger) Candidates(channel string, now time.Time, staleAfter time.Duration, limit int) []string {
	if limit <= 0 {
		return nil
	}
	l.mu.RLock()
	var pool []Entry
	for _, k := range l.order {
		if k.channel != channel {
			continue
		}
		r := l.records[k]
		if !r.LastCheck.IsZero() && now.Sub(r.LastCheck) < staleAfter {
			continue
		}
		pool = append(pool, Entry{Channel: k.channel, UserID: k.userID, Record: *r})
	}
	l.mu.RUnlock()

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].ResponseCount > pool[j].ResponseCount })
	if len(pool) > limit {
		pool = pool[:limit]
	}
	out := make([]string, 0, len(pool))
	for _, e := range pool {
		out = append(out, e.UserID)
	}
	return out
}

// Snapshot copies all records in insertion order.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, Entry{Channel: k.channel, UserID: k.userID, Record: *l.records[k]})
	}
	return out
}

// Leaderboard ranks users over the current snapshot with the given weights.
func (l *Ledger) Leaderboard(weights Weights, limit int) []LeaderboardEntry {
	return ComputeLeaderboard(l.Snapshot(), weights, limit)
}

// ChannelStats aggregates the current snapshot per channel.
func (l *Ledger) ChannelStats() []ChannelStats {
	return ComputeChannelStats(l.Snapshot(), l.now())
}
