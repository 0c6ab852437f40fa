// Package storage is the bot's key-value persistence on top of datastore:
// generic load/save by key plus per-guild command bookkeeping.
package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/accountability-bot/datastore"
)

const commandHistoryLimit = 20

// ErrNotFound is returned by Load for a missing key.
var ErrNotFound = errors.New("storage: not found")

type CommandHistory struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Param       string    `json:"param,omitempty"`
	Datetime    time.Time `json:"datetime"`
}

// GuildRecord is everything kept per guild.
type GuildRecord struct {
	CommandsHistory  []CommandHistory `json:"cmd_history"`
	CommandsDisabled []string         `json:"cmd_disabled"`
}

type Storage struct {
	ds *datastore.DataStore

	// guards guild read-modify-write cycles
	mu sync.Mutex
}

// New opens the JSON store at path.
func New(path string, logger zerolog.Logger) (*Storage, error) {
	cfg := datastore.DefaultConfig(path)
	cfg.Logger = logger
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

// Close flushes pending writes.
func (s *Storage) Close() error {
	return s.ds.Close()
}

// Load decodes the value under key into out, or returns ErrNotFound.
func (s *Storage) Load(key string, out any) error {
	ok, err := s.ds.Get(key, out)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// Save stores v under key.
func (s *Storage) Save(key string, v any) error {
	return s.ds.Put(key, v)
}

// Stats reports the underlying store's footprint.
func (s *Storage) Stats() datastore.Stats {
	return s.ds.Stats()
}

// LoadOr returns the value under key, or fallback when the key is missing.
func LoadOr[T any](s *Storage, key string, fallback T) (T, error) {
	var v T
	err := s.Load(key, &v)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, err
	}
	return v, nil
}

func guildKey(guildID string) string { return "guild:" + guildID }

func (s *Storage) guild(guildID string) (GuildRecord, error) {
	rec, err := LoadOr(s, guildKey(guildID), GuildRecord{})
	if err != nil {
		return GuildRecord{}, fmt.Errorf("load guild %s: %w", guildID, err)
	}
	return rec, nil
}

// AppendCommand adds an invocation to the guild's history, keeping the last 20.
func (s *Storage) AppendCommand(guildID string, cmd CommandHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.guild(guildID)
	if err != nil {
		return err
	}
	rec.CommandsHistory = append(rec.CommandsHistory, cmd)
	if n := len(rec.CommandsHistory); n > commandHistoryLimit {
		rec.CommandsHistory = rec.CommandsHistory[n-commandHistoryLimit:]
	}
	return s.Save(guildKey(guildID), rec)
}

// CommandHistory returns the guild's recent invocations, oldest first.
func (s *Storage) CommandHistory(guildID string) ([]CommandHistory, error) {
	rec, err := s.guild(guildID)
	if err != nil {
		return nil, err
	}
	return rec.CommandsHistory, nil
}

func (s *Storage) DisableGroup(guildID, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.guild(guildID)
	if err != nil {
		return err
	}
	for _, g := range rec.CommandsDisabled {
		if g == group {
			return nil
		}
	}
	rec.CommandsDisabled = append(rec.CommandsDisabled, group)
	return s.Save(guildKey(guildID), rec)
}

func (s *Storage) EnableGroup(guildID, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.guild(guildID)
	if err != nil {
		return err
	}
	kept := rec.CommandsDisabled[:0]
	for _, g := range rec.CommandsDisabled {
		if g != group {
			kept = append(kept, g)
		}
	}
	rec.CommandsDisabled = kept
	return s.Save(guildKey(guildID), rec)
}

func (s *Storage) IsGroupDisabled(guildID, group string) (bool, error) {
	rec, err := s.guild(guildID)
	if err != nil {
		return false, err
	}
	for _, g := range rec.CommandsDisabled {
		if g == group {
			return true, nil
		}
	}
	return false, nil
}

func (s *Storage) DisabledGroups(guildID string) ([]string, error) {
	rec, err := s.guild(guildID)
	if err != nil {
		return nil, err
	}
	return rec.CommandsDisabled, nil
}
