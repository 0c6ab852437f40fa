package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/accountability-bot/internal/channels"
	"github.com/keshon/accountability-bot/pkg/cmd"
)

type ScheduleCommand struct {
	deps Deps
}

func (c *ScheduleCommand) Name() string        { return "persona-schedule" }
func (c *ScheduleCommand) Description() string { return "When each persona checks in next" }
func (c *ScheduleCommand) Group() string       { return groupStats }

func (c *ScheduleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *ScheduleCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	sc, err := slashContext(inv)
	if err != nil {
		return err
	}
	return sc.RespondEmbed(scheduleEmbed(c.deps.Scheduler.Schedule(), time.Now()), true)
}

func scheduleEmbed(states []channels.DueState, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "🗓️ Persona check-ins", Color: colorNeutral}
	for _, st := range states {
		p := st.Persona
		when := fmt.Sprintf("<t:%d:R>", st.NextCheckAt.Unix())
		if !st.NextCheckAt.After(now) {
			when = "due at the next sweep"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s · #%s", p.Title(), p.ChannelName),
			Value: fmt.Sprintf("next %s\nevery %g-%gh", when, p.CheckInterval.MinHours, p.CheckInterval.MaxHours),
		})
	}
	return embed
}
