package persona

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	want := []string{"faith", "health", "wealth", "daily-checkins"}
	all := r.All()
	if len(all) != len(want) {
		t.Fatalf("expected %d personas, got %d", len(want), len(all))
	}
	for i, name := range want {
		if all[i].ChannelName != name {
			t.Errorf("persona %d = %q, want %q", i, all[i].ChannelName, name)
		}
		if _, ok := r.Get(name); !ok {
			t.Errorf("Get(%q) missed", name)
		}
	}

	faith, _ := r.Get("faith")
	wealth, _ := r.Get("wealth")
	health, _ := r.Get("health")
	if !faith.IncludeOwner || !wealth.IncludeOwner || health.IncludeOwner {
		t.Fatalf("owner priority should be faith and wealth only")
	}
	if faith.TargetCount != 3 || health.TargetCount != 2 {
		t.Fatalf("unexpected target counts: faith=%d health=%d", faith.TargetCount, health.TargetCount)
	}
}

func TestGetIsCaseInsensitiveAndMissesUnmanaged(t *testing.T) {
	r := Default()
	if _, ok := r.Get("Health"); !ok {
		t.Fatal("expected Health to resolve")
	}
	if _, ok := r.Get("general"); ok {
		t.Fatal("general should be unmanaged")
	}
}

func TestMatches(t *testing.T) {
	p, _ := Default().Get("health")
	tests := []struct {
		content string
		want    bool
	}{
		{"Just finished my WORKOUT", true},
		{"protein shake time", true},
		{"hello there", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.Matches(tt.content); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestRenderCheck(t *testing.T) {
	p, _ := Default().Get("faith")
	got := p.RenderCheck("{user}, hi {user}", "<@42>")
	if got != "<@42>, hi <@42>" {
		t.Fatalf("RenderCheck = %q", got)
	}
	if p.Title() != "🙏 Pastor Grace" {
		t.Fatalf("Title = %q", p.Title())
	}
}

func TestIntervalDurations(t *testing.T) {
	i := Interval{MinHours: 1.5, MaxHours: 2}
	if i.Min() != 90*time.Minute || i.Max() != 2*time.Hour {
		t.Fatalf("unexpected durations %v %v", i.Min(), i.Max())
	}
}

func TestNewRegistryValidation(t *testing.T) {
	valid := Persona{ChannelName: "x", CheckTemplates: []string{"hi"}, CheckInterval: Interval{1, 2}}

	if _, err := NewRegistry(valid, valid); !errors.Is(err, ErrDuplicatePersona) {
		t.Fatalf("expected ErrDuplicatePersona, got %v", err)
	}

	bad := []Persona{
		{ChannelName: "", CheckTemplates: []string{"a"}, CheckInterval: Interval{1, 2}},
		{ChannelName: "a", CheckInterval: Interval{1, 2}},
		{ChannelName: "a", CheckTemplates: []string{"a"}, CheckInterval: Interval{0, 2}},
		{ChannelName: "a", CheckTemplates: []string{"a"}, CheckInterval: Interval{3, 2}},
	}
	for i, p := range bad {
		if _, err := NewRegistry(p); !errors.Is(err, ErrInvalidPersona) {
			t.Errorf("case %d: expected ErrInvalidPersona, got %v", i, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	yml := `personas:
  - channel: Recovery
    display_name: Nurse Joy
    emoji: "🩹"
    color: 123
    topics: [Injury, " rest "]
    check_interval: {min_hours: 1, max_hours: 2}
    seed_offset: 15m
    check_templates: ["{user}, how is the knee?"]
    include_owner: true
    target_count: 1
`
	path := filepath.Join(t.TempDir(), "personas.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	p, ok := r.Get("recovery")
	if !ok {
		t.Fatal("recovery persona missing")
	}
	if p.SeedOffset != 15*time.Minute {
		t.Errorf("SeedOffset = %v", p.SeedOffset)
	}
	if len(p.Topics) != 2 || p.Topics[0] != "injury" || p.Topics[1] != "rest" {
		t.Errorf("topics not normalized: %v", p.Topics)
	}
	if !p.IncludeOwner || p.TargetCount != 1 {
		t.Errorf("priority fields not loaded: %+v", p)
	}
}

func TestLoadFileEmptyPathUsesDefaults(t *testing.T) {
	r, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 4 {
		t.Fatalf("expected built-ins, got %d personas", r.Len())
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse([]byte("personas: []")); !errors.Is(err, ErrInvalidPersona) {
		t.Fatalf("expected ErrInvalidPersona, got %v", err)
	}
}
