package command

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/pkg/cmd"
)

type ChannelStatsCommand struct {
	deps Deps
}

func (c *ChannelStatsCommand) Name() string        { return "channel-stats" }
func (c *ChannelStatsCommand) Description() string { return "Engagement per persona channel" }
func (c *ChannelStatsCommand) Group() string       { return groupStats }

func (c *ChannelStatsCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *ChannelStatsCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	sc, err := slashContext(inv)
	if err != nil {
		return err
	}
	return sc.RespondEmbed(statsEmbed(c.deps.Ledger.ChannelStats()), false)
}

func statsEmbed(stats []engagement.ChannelStats) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "📊 Channel stats", Color: colorNeutral}
	if len(stats) == 0 {
		embed.Description = "Nothing tracked yet."
		return embed
	}
	for _, s := range stats {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "#" + s.Channel,
			Value: fmt.Sprintf("👥 %d members (%d active this week)\n💬 %d replies · ✅ %d check-ins",
				s.TotalUsers, s.ActiveUsers, s.TotalResponses, s.TotalCheckins),
			Inline: true,
		})
	}
	return embed
}
