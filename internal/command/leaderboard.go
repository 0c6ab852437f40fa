package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/accountability-bot/internal/engagement"
	"github.com/keshon/accountability-bot/pkg/cmd"
)

const (
	defaultBoardSize = 10
	maxBoardSize     = 25
)

type LeaderboardCommand struct {
	deps Deps
}

func (c *LeaderboardCommand) Name() string        { return "leaderboard" }
func (c *LeaderboardCommand) Description() string { return "Top members across the persona channels" }
func (c *LeaderboardCommand) Group() string       { return groupStats }

func (c *LeaderboardCommand) SlashDefinition() *discordgo.ApplicationCommand {
	min := float64(1)
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: fmt.Sprintf("How many members to show (default %d)", defaultBoardSize),
				MinValue:    &min,
				MaxValue:    maxBoardSize,
			},
		},
	}
}

func (c *LeaderboardCommand) Run(_ context.Context, inv *cmd.Invocation) error {
	sc, err := slashContext(inv)
	if err != nil {
		return err
	}
	limit := clampLimit(intOption(sc.Event, "limit", defaultBoardSize))
	board := c.deps.Ledger.Leaderboard(c.deps.Weights, limit)
	return sc.RespondEmbed(leaderboardEmbed(board), false)
}

func clampLimit(n int) int {
	switch {
	case n < 1:
		return defaultBoardSize
	case n > maxBoardSize:
		return maxBoardSize
	}
	return n
}

var medals = []string{"🥇", "🥈", "🥉"}

func leaderboardEmbed(board []engagement.LeaderboardEntry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🏆 Accountability Leaderboard",
		Color: 0xF1C40F,
	}
	if len(board) == 0 {
		embed.Description = "No activity yet. Say something in a persona channel to get on the board."
		return embed
	}

	var b strings.Builder
	for i, e := range board {
		rank := fmt.Sprintf("`#%d`", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "%s <@%s> **%.1f** pts", rank, e.UserID, e.TotalScore)
		if breakdown := channelBreakdown(e.Channels); breakdown != "" {
			b.WriteString(" · " + breakdown)
		}
		b.WriteString("\n")
	}
	embed.Description = b.String()
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "replies count double · weighted by channel"}
	return embed
}

func channelBreakdown(chs map[string]engagement.ChannelScore) string {
	names := make([]string, 0, len(chs))
	for name := range chs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %.1f", name, chs[name].Score))
	}
	return strings.Join(parts, ", ")
}
