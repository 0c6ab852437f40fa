// Package persona holds the topic channel personas: who speaks in each
// channel, what they care about and how often they check in unprompted.
package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicatePersona = errors.New("duplicate persona channel")
	ErrInvalidPersona   = errors.New("invalid persona")
)

// UserPlaceholder is replaced by the target's mention in check-in templates.
const UserPlaceholder = "{user}"

// Interval bounds the randomized proactive cadence, in hours.
type Interval struct {
	MinHours float64 `yaml:"min_hours" json:"min_hours"`
	MaxHours float64 `yaml:"max_hours" json:"max_hours"`
}

func (i Interval) Min() time.Duration { return hours(i.MinHours) }
func (i Interval) Max() time.Duration { return hours(i.MaxHours) }

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// Persona governs one topic channel. Immutable after the registry is built.
type Persona struct {
	ChannelName    string        `yaml:"channel" json:"channel"`
	DisplayName    string        `yaml:"display_name" json:"display_name"`
	Emoji          string        `yaml:"emoji" json:"emoji"`
	Color          int           `yaml:"color" json:"color"`
	SystemPrompt   string        `yaml:"system_prompt" json:"-"`
	Topics         []string      `yaml:"topics" json:"topics"`
	CheckInterval  Interval      `yaml:"check_interval" json:"check_interval"`
	SeedOffset     time.Duration `yaml:"seed_offset" json:"seed_offset"`
	CheckTemplates []string      `yaml:"check_templates" json:"-"`

	// IncludeOwner puts the operator in every due cycle's target set.
	IncludeOwner bool `yaml:"include_owner" json:"include_owner"`
	// TargetCount is how many engaged users are picked per due cycle.
	TargetCount int `yaml:"target_count" json:"target_count"`
}

// Title is the branded header used on every message the persona sends.
func (p Persona) Title() string {
	if p.Emoji == "" {
		return p.DisplayName
	}
	return p.Emoji + " " + p.DisplayName
}

// Matches reports whether content mentions any of the persona's topics.
func (p Persona) Matches(content string) bool {
	lower := strings.ToLower(content)
	for _, topic := range p.Topics {
		if topic != "" && strings.Contains(lower, topic) {
			return true
		}
	}
	return false
}

// RenderCheck fills a check-in template with the target's mention.
func (p Persona) RenderCheck(template, mention string) string {
	return strings.ReplaceAll(template, UserPlaceholder, mention)
}

func (p Persona) validate() error {
	switch {
	case strings.TrimSpace(p.ChannelName) == "":
		return fmt.Errorf("%w: empty channel name", ErrInvalidPersona)
	case len(p.CheckTemplates) == 0:
		return fmt.Errorf("%w: %s has no check templates", ErrInvalidPersona, p.ChannelName)
	case p.CheckInterval.MinHours <= 0:
		return fmt.Errorf("%w: %s min_hours must be positive", ErrInvalidPersona, p.ChannelName)
	case p.CheckInterval.MaxHours < p.CheckInterval.MinHours:
		return fmt.Errorf("%w: %s max_hours below min_hours", ErrInvalidPersona, p.ChannelName)
	case p.TargetCount < 0:
		return fmt.Errorf("%w: %s target_count is negative", ErrInvalidPersona, p.ChannelName)
	}
	return nil
}

// Registry is the read-only set of personas, one per channel name.
type Registry struct {
	order  []string
	byName map[string]Persona
}

// NewRegistry validates personas and indexes them by channel name.
func NewRegistry(personas ...Persona) (*Registry, error) {
	r := &Registry{byName: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		p.ChannelName = strings.ToLower(strings.TrimSpace(p.ChannelName))
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, ok := r.byName[p.ChannelName]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePersona, p.ChannelName)
		}
		topics := make([]string, 0, len(p.Topics))
		for _, t := range p.Topics {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				topics = append(topics, t)
			}
		}
		p.Topics = topics
		r.order = append(r.order, p.ChannelName)
		r.byName[p.ChannelName] = p
	}
	return r, nil
}

// Get returns the persona governing channelName. A miss means the channel is unmanaged.
func (r *Registry) Get(channelName string) (Persona, bool) {
	p, ok := r.byName[strings.ToLower(channelName)]
	return p, ok
}

// All returns personas in registry order.
func (r *Registry) All() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }

type fileFormat struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads personas from a YAML file. An empty path yields the built-ins.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}
	return Parse(b)
}

// Parse builds a registry from YAML bytes.
func Parse(b []byte) (*Registry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}
	if len(f.Personas) == 0 {
		return nil, fmt.Errorf("%w: no personas defined", ErrInvalidPersona)
	}
	return NewRegistry(f.Personas...)
}
