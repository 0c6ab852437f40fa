// Package command holds the bot's slash commands and the middleware they run
// through.
package command

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/accountability-bot/internal/channels"
	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/internal/storage"
	"github.com/keshon/accountability-bot/pkg/cmd"
)

const (
	groupCore  = "core"
	groupStats = "stats"

	colorNeutral = 0x5865F2
)

// SlashContext is the Invocation.Data of a slash command.
type SlashContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Storage *storage.Storage

	// respond replaces Session.InteractionRespond in tests.
	respond func(*discordgo.InteractionResponse) error
}

// Respond answers the interaction.
func (c *SlashContext) Respond(resp *discordgo.InteractionResponse) error {
	if c.respond != nil {
		return c.respond(resp)
	}
	return c.Session.InteractionRespond(c.Event.Interaction, resp)
}

// RespondEmbed answers with a single embed.
func (c *SlashContext) RespondEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return c.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// RespondText answers with a short note only the caller sees.
func (c *SlashContext) RespondText(text string) error {
	return c.RespondEmbed(&discordgo.MessageEmbed{Description: text, Color: colorNeutral}, true)
}

// User is whoever invoked the command.
func (c *SlashContext) User() *discordgo.User {
	if c.Event.Member != nil && c.Event.Member.User != nil {
		return c.Event.Member.User
	}
	if c.Event.User != nil {
		return c.Event.User
	}
	return &discordgo.User{ID: "unknown", Username: "unknown"}
}

// SlashCommand is what every command here implements on top of cmd.Command.
type SlashCommand interface {
	cmd.Command
	Group() string
	SlashDefinition() *discordgo.ApplicationCommand
}

// Schedule is the read side of the check-in scheduler.
type Schedule interface {
	Schedule() []channels.DueState
}

// Deps are the services commands read from.
type Deps struct {
	Ledger    *engagement.Ledger
	Weights   engagement.Weights
	Scheduler Schedule
	Registry  *cmd.Registry
}

var errWrongContext = errors.New("command: wrong context type")

func slashContext(inv *cmd.Invocation) (*SlashContext, error) {
	sc, ok := inv.Data.(*SlashContext)
	if !ok || sc == nil {
		return nil, errWrongContext
	}
	return sc, nil
}

// RegisterAll registers the bot's commands on deps.Registry, each wrapped in mws.
func RegisterAll(deps Deps, mws ...cmd.Middleware) error {
	all := []SlashCommand{
		&LeaderboardCommand{deps: deps},
		&ChannelStatsCommand{deps: deps},
		&ScheduleCommand{deps: deps},
		&ToggleCommand{deps: deps},
	}
	for _, c := range all {
		if err := deps.Registry.Register(cmd.Apply(c, mws...)); err != nil {
			return err
		}
	}
	return nil
}

// Definitions returns the slash definitions of every registered command.
func Definitions(reg *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range reg.GetAll() {
		if sc, ok := cmd.As[SlashCommand](c); ok {
			defs = append(defs, sc.SlashDefinition())
		}
	}
	return defs
}

// Dispatch runs the slash command named in the interaction.
func Dispatch(ctx context.Context, reg *cmd.Registry, sc *SlashContext) error {
	c := reg.Get(sc.Event.ApplicationCommandData().Name)
	if c == nil {
		return sc.RespondText("Unknown command.")
	}
	return c.Run(ctx, &cmd.Invocation{Data: sc})
}

func groupOf(c cmd.Command) string {
	if sc, ok := cmd.As[SlashCommand](c); ok {
		return sc.Group()
	}
	return ""
}

func intOption(e *discordgo.InteractionCreate, name string, fallback int) int {
	for _, o := range e.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return int(o.IntValue())
		}
	}
	return fallback
}

func stringOption(e *discordgo.InteractionCreate, name string) string {
	for _, o := range e.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue()
		}
	}
	return ""
}
