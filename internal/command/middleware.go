package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/accountability-bot/internal/storage"
	"github.com/keshon/accountability-bot/pkg/cmd"
)

// WithGuildOnly rejects invocations from DMs.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if sc, ok := inv.Data.(*SlashContext); ok && sc.Event.GuildID == "" {
				return sc.RespondText("You must be in a server to use this command.")
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithGroupAccessCheck blocks commands whose group is disabled in the guild.
// The core group can't be disabled.
func WithGroupAccessCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			sc, ok := inv.Data.(*SlashContext)
			group := groupOf(c)
			if !ok || sc.Storage == nil || group == "" || group == groupCore {
				return c.Run(ctx, inv)
			}
			disabled, err := sc.Storage.IsGroupDisabled(sc.Event.GuildID, group)
			if err == nil && disabled {
				return sc.RespondText("This command is disabled on this server.")
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs every invocation and appends it to the guild's
// command history.
func WithCommandLogger(logger zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			sc, ok := inv.Data.(*SlashContext)
			if !ok {
				return err
			}
			user := sc.User()
			ev := logger.Info()
			if err != nil {
				ev = logger.Error().Err(err)
			}
			ev.Str("command", c.Name()).
				Str("guild", sc.Event.GuildID).
				Str("user", user.ID).
				Dur("took", time.Since(start)).
				Msg("command")

			if sc.Storage == nil || sc.Event.GuildID == "" {
				return err
			}
			rec := storage.CommandHistory{
				ChannelID: sc.Event.ChannelID,
				UserID:    user.ID,
				Username:  user.Username,
				Command:   c.Name(),
				Param:     params(sc.Event),
				Datetime:  start.UTC(),
			}
			if sc.Session != nil && sc.Session.State != nil {
				if ch, e := sc.Session.State.Channel(sc.Event.ChannelID); e == nil {
					rec.ChannelName = ch.Name
				}
				if g, e := sc.Session.State.Guild(sc.Event.GuildID); e == nil {
					rec.GuildName = g.Name
				}
			}
			if e := sc.Storage.AppendCommand(sc.Event.GuildID, rec); e != nil {
				logger.Warn().Err(e).Str("command", c.Name()).Msg("save command history")
			}
			return err
		})
	}
}

func params(e *discordgo.InteractionCreate) string {
	if e.Type != discordgo.InteractionApplicationCommand {
		return ""
	}
	var parts []string
	for _, o := range e.ApplicationCommandData().Options {
		parts = append(parts, fmt.Sprintf("%s=%v", o.Name, o.Value))
	}
	return strings.Join(parts, " ")
}
