package discord

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/keshon/accountability-bot/internal/command"
	"github.com/keshon/accountability-bot/internal/storage"
)

// Discord allows roughly 50 command writes per second per application.
const commandWriteInterval = time.Second / 40

func commandHashKey(guildID string) string { return "commands:" + guildID }

// registerCommands syncs the guild's slash commands with the registry.
// Definitions whose hash matches the stored one are left alone.
func (b *Bot) registerCommands(ctx context.Context, guildID string) error {
	appID := b.BotUserID()
	if appID == "" {
		user, err := b.dg.User("@me", discordgo.WithContext(ctx))
		if err != nil {
			return err
		}
		appID = user.ID
	}

	existing, err := b.dg.ApplicationCommands(appID, guildID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	cached, err := storage.LoadOr(b.storage, commandHashKey(guildID), map[string]string{})
	if err != nil {
		b.log.Warn().Err(err).Str("guild", guildID).Msg("load command hashes")
		cached = map[string]string{}
	}

	plan := planCommandSync(existing, command.Definitions(b.commands), cached)
	lim := rate.NewLimiter(rate.Every(commandWriteInterval), 1)

	for _, old := range plan.obsolete {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		if err := b.dg.ApplicationCommandDelete(appID, guildID, old.ID, discordgo.WithContext(ctx)); err != nil {
			b.log.Error().Err(err).Str("guild", guildID).Str("command", old.Name).Msg("delete obsolete command")
			continue
		}
		b.log.Info().Str("guild", guildID).Str("command", old.Name).Msg("deleted obsolete command")
	}

	for _, def := range plan.changed {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, def, discordgo.WithContext(ctx)); err != nil {
			b.log.Error().Err(err).Str("guild", guildID).Str("command", def.Name).Msg("create command")
			delete(plan.hashes, def.Name)
			continue
		}
		b.log.Info().Str("guild", guildID).Str("command", def.Name).Msg("command created")
	}

	return b.storage.Save(commandHashKey(guildID), plan.hashes)
}

type commandSync struct {
	obsolete []*discordgo.ApplicationCommand
	changed  []*discordgo.ApplicationCommand
	// hashes is what the cache should hold once the writes succeed.
	hashes map[string]string
}

func planCommandSync(existing, wanted []*discordgo.ApplicationCommand, cached map[string]string) commandSync {
	plan := commandSync{hashes: make(map[string]string, len(wanted))}

	live := make(map[string]bool, len(existing))
	for _, c := range existing {
		live[c.Name] = true
	}
	for _, def := range wanted {
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		h := hashCommand(def)
		plan.hashes[def.Name] = h
		if cached[def.Name] != h || !live[def.Name] {
			plan.changed = append(plan.changed, def)
		}
	}
	for _, c := range existing {
		if _, ok := plan.hashes[c.Name]; !ok {
			plan.obsolete = append(plan.obsolete, c)
		}
	}
	return plan
}

// hashCommand is a deterministic hash over the user-visible parts of a
// command definition.
func hashCommand(c *discordgo.ApplicationCommand) string {
	obj := map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type,
	}
	if c.DefaultMemberPermissions != nil {
		obj["permissions"] = *c.DefaultMemberPermissions
	}
	if len(c.Options) > 0 {
		obj["options"] = normalizeOptions(c.Options)
	}
	data, _ := json.Marshal(obj)
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]any {
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		entry := map[string]any{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if o.MinValue != nil {
			entry["min"] = *o.MinValue
		}
		if o.MaxValue != 0 {
			entry["max"] = o.MaxValue
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]any, len(o.Choices))
			for j, c := range o.Choices {
				choices[j] = map[string]any{"name": c.Name, "value": c.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["name"].(string) < out[j]["name"].(string)
	})
	return out
}
