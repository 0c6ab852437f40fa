package command

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/accountability-bot/pkg/cmd"
)

// ToggleCommand enables or disables a command group for the guild.
type ToggleCommand struct {
	deps Deps
}

func (c *ToggleCommand) Name() string        { return "commands-toggle" }
func (c *ToggleCommand) Description() string { return "Enable or disable a group of commands" }
func (c *ToggleCommand) Group() string       { return groupCore }

func (c *ToggleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, g := range c.groups() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: g, Value: g})
	}
	perm := int64(discordgo.PermissionAdministrator)
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: &perm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "group",
				Description: "Command group",
				Required:    true,
				Choices:     choices,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "state",
				Description: "Enable or disable the group",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Enable", Value: "enable"},
					{Name: "Disable", Value: "disable"},
				},
			},
		},
	}
}

// groups lists the toggleable groups of registered commands.
func (c *ToggleCommand) groups() []string {
	seen := map[string]bool{}
	var out []string
	if c.deps.Registry == nil {
		return out
	}
	for _, rc := range c.deps.Registry.GetAll() {
		g := groupOf(rc)
		if g == "" || g == groupCore || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func (c *ToggleCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	sc, err := slashContext(inv)
	if err != nil {
		return err
	}
	if sc.Storage == nil {
		return sc.RespondText("Storage is not available.")
	}
	group := stringOption(sc.Event, "group")
	state := stringOption(sc.Event, "state")

	if state == "disable" {
		if err := sc.Storage.DisableGroup(sc.Event.GuildID, group); err != nil {
			return sc.RespondText("Failed to disable the group.")
		}
		return sc.RespondText(fmt.Sprintf("Group `%s` disabled.", group))
	}
	if err := sc.Storage.EnableGroup(sc.Event.GuildID, group); err != nil {
		return sc.RespondText("Failed to enable the group.")
	}
	return sc.RespondText(fmt.Sprintf("Group `%s` enabled.", group))
}
