package command

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/accountability-bot/internal/channels"
	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/internal/persona"
	"github.com/keshon/accountability-bot/internal/storage"
	"github.com/keshon/accountability-bot/pkg/cmd"
)

type fakeSchedule []channels.DueState

func (f fakeSchedule) Schedule() []channels.DueState { return f }

type harness struct {
	ledger  *engagement.Ledger
	store   *storage.Storage
	reg     *cmd.Registry
	replies []*discordgo.InteractionResponse
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "datastore.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{ledger: engagement.NewLedger(nil), store: store, reg: cmd.NewRegistry()}
	p, _ := persona.Default().Get("faith")
	deps := Deps{
		Ledger:    h.ledger,
		Weights:   engagement.DefaultWeights(),
		Scheduler: fakeSchedule{{Persona: p, NextCheckAt: time.Now().Add(time.Hour)}},
		Registry:  h.reg,
	}
	if err := RegisterAll(deps, WithGroupAccessCheck(), WithGuildOnly(), WithCommandLogger(zerolog.Nop())); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	return h
}

func (h *harness) run(t *testing.T, guildID, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionResponse {
	t.Helper()
	sc := &SlashContext{
		Storage: h.store,
		Event: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   guildID,
			ChannelID: "c1",
			Member:    &discordgo.Member{User: &discordgo.User{ID: "caller", Username: "sam"}},
			Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
		}},
		respond: func(r *discordgo.InteractionResponse) error {
			h.replies = append(h.replies, r)
			return nil
		},
	}
	if err := Dispatch(context.Background(), h.reg, sc); err != nil {
		t.Fatalf("Dispatch(%s): %v", name, err)
	}
	if len(h.replies) == 0 {
		t.Fatalf("%s did not respond", name)
	}
	return h.replies[len(h.replies)-1]
}

func intOpt(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func strOpt(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func description(r *discordgo.InteractionResponse) string {
	if r.Data == nil || len(r.Data.Embeds) == 0 {
		return ""
	}
	return r.Data.Embeds[0].Description
}

func TestLeaderboardCommand(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.ledger.RecordResponse("faith", "u1")
	}
	h.ledger.RecordCheck("faith", "u1")
	h.ledger.RecordCheck("faith", "u1")
	h.ledger.RecordCheck("health", "u2")

	resp := h.run(t, "g1", "leaderboard", intOpt("limit", 1))
	desc := description(resp)
	if !strings.Contains(desc, "<@u1> **36.0** pts") {
		t.Fatalf("expected u1 with 36 points, got %q", desc)
	}
	if strings.Contains(desc, "<@u2>") {
		t.Fatalf("limit 1 should hide u2: %q", desc)
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	h := newHarness(t)
	if desc := description(h.run(t, "g1", "leaderboard")); !strings.Contains(desc, "No activity yet") {
		t.Fatalf("unexpected empty board %q", desc)
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{0: defaultBoardSize, -3: defaultBoardSize, 5: 5, 99: maxBoardSize} {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestChannelStatsCommand(t *testing.T) {
	h := newHarness(t)
	h.ledger.RecordResponse("wealth", "u1")
	resp := h.run(t, "g1", "channel-stats")
	fields := resp.Data.Embeds[0].Fields
	if len(fields) != 1 || fields[0].Name != "#wealth" || !strings.Contains(fields[0].Value, "1 replies") {
		t.Fatalf("unexpected fields %+v", fields)
	}
}

func TestScheduleEmbed(t *testing.T) {
	p, _ := persona.Default().Get("health")
	now := time.Now()
	embed := scheduleEmbed([]channels.DueState{{Persona: p, NextCheckAt: now.Add(-time.Minute)}}, now)
	if len(embed.Fields) != 1 || !strings.Contains(embed.Fields[0].Value, "due at the next sweep") {
		t.Fatalf("unexpected schedule embed %+v", embed.Fields)
	}
	if !strings.Contains(embed.Fields[0].Value, "every 4-8h") {
		t.Fatalf("interval missing: %q", embed.Fields[0].Value)
	}
}

func TestGuildOnly(t *testing.T) {
	h := newHarness(t)
	resp := h.run(t, "", "leaderboard")
	if !strings.Contains(description(resp), "must be in a server") {
		t.Fatalf("expected guild-only rejection, got %q", description(resp))
	}
	if resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatal("rejection should be ephemeral")
	}
}

func TestToggleDisablesGroup(t *testing.T) {
	h := newHarness(t)
	h.run(t, "g1", "commands-toggle", strOpt("group", "stats"), strOpt("state", "disable"))

	resp := h.run(t, "g1", "leaderboard")
	if !strings.Contains(description(resp), "disabled on this server") {
		t.Fatalf("expected disabled message, got %q", description(resp))
	}
	// other guilds are unaffected
	if desc := description(h.run(t, "g2", "leaderboard")); strings.Contains(desc, "disabled") {
		t.Fatalf("g2 should still have stats, got %q", desc)
	}

	h.run(t, "g1", "commands-toggle", strOpt("group", "stats"), strOpt("state", "enable"))
	if desc := description(h.run(t, "g1", "leaderboard")); strings.Contains(desc, "disabled") {
		t.Fatalf("stats should be enabled again, got %q", desc)
	}
}

func TestCommandHistoryIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.run(t, "g1", "leaderboard", intOpt("limit", 3))
	hist, err := h.store.CommandHistory("g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(hist))
	}
	got := hist[0]
	if got.Command != "leaderboard" || got.UserID != "caller" || got.Param != "limit=3" {
		t.Fatalf("unexpected history %+v", got)
	}
}

func TestDefinitions(t *testing.T) {
	h := newHarness(t)
	defs := Definitions(h.reg)
	names := map[string]*discordgo.ApplicationCommand{}
	for _, d := range defs {
		names[d.Name] = d
	}
	for _, want := range []string{"leaderboard", "channel-stats", "persona-schedule", "commands-toggle"} {
		if names[want] == nil {
			t.Fatalf("missing definition %s", want)
		}
	}
	choices := names["commands-toggle"].Options[0].Choices
	if len(choices) != 1 || choices[0].Value != "stats" {
		t.Fatalf("toggle should offer only the stats group, got %+v", choices)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	if desc := description(h.run(t, "g1", "nope")); desc != "Unknown command." {
		t.Fatalf("unexpected reply %q", desc)
	}
}
