package discord

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/accountability-bot/internal/channels"
	"github.com/keshon/accountability-bot/pkg/retrylimit"
	"github.com/keshon/accountability-bot/pkg/util"
)

const (
	embedDescriptionLimit = 4096
	embedsPerMessage      = 10
	fetchUserAttempts     = 3
	guildFetchWorkers     = 4
)

var _ channels.Platform = (*Bot)(nil)

// BotUserID is the bot's own user ID, empty before READY.
func (b *Bot) BotUserID() string {
	if b.dg.State == nil || b.dg.State.User == nil {
		return ""
	}
	return b.dg.State.User.ID
}

// ListChannelsByName finds text channels named name in every guild the bot
// is in. Guilds missing from the state cache are fetched over REST.
func (b *Bot) ListChannelsByName(ctx context.Context, name string) ([]channels.Channel, error) {
	if b.dg.State == nil {
		return nil, errNoSession
	}

	b.dg.State.RLock()
	var (
		found   []channels.Channel
		missing []string
	)
	for _, g := range b.dg.State.Guilds {
		if b.isGuildBlacklisted(g.ID) {
			continue
		}
		if len(g.Channels) == 0 {
			missing = append(missing, g.ID)
			continue
		}
		found = append(found, matchChannels(g.ID, g.Channels, name)...)
	}
	b.dg.State.RUnlock()

	var mu sync.Mutex
	err := util.Parallel(ctx, missing, guildFetchWorkers, func(ctx context.Context, guildID string) error {
		chs, err := b.dg.GuildChannels(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return err
		}
		matched := matchChannels(guildID, chs, name)
		mu.Lock()
		found = append(found, matched...)
		mu.Unlock()
		return nil
	})

	sortChannels(found)
	if err != nil && len(found) == 0 {
		return nil, err
	}
	if err != nil {
		b.log.Warn().Err(err).Str("channel", name).Msg("some guild channel lists failed")
	}
	return found, nil
}

// FetchUser resolves id from the member cache first, then over REST.
func (b *Bot) FetchUser(ctx context.Context, id string) (channels.User, error) {
	if u, ok := b.cachedUser(id); ok {
		return u, nil
	}

	var user *discordgo.User
	err := retrylimit.WithRetryMax(ctx, func() error {
		u, err := b.dg.User(id, discordgo.WithContext(ctx))
		if err != nil {
			if isNotFound(err) {
				return &retrylimit.FatalError{Err: err}
			}
			return err
		}
		user = u
		return nil
	}, nil, fetchUserAttempts)
	if err != nil {
		return channels.User{}, err
	}
	return toUser(user, ""), nil
}

func (b *Bot) cachedUser(id string) (channels.User, bool) {
	if b.dg.State == nil {
		return channels.User{}, false
	}
	b.dg.State.RLock()
	defer b.dg.State.RUnlock()
	for _, g := range b.dg.State.Guilds {
		for _, m := range g.Members {
			if m.User != nil && m.User.ID == id {
				return toUser(m.User, m.Nick), true
			}
		}
	}
	return channels.User{}, false
}

// Send posts p to channelID.
func (b *Bot) Send(ctx context.Context, channelID string, p channels.Post) error {
	_, err := b.dg.ChannelMessageSendComplex(channelID, buildMessage(p), discordgo.WithContext(ctx))
	return err
}

// Reply posts p as a reply to m.
func (b *Bot) Reply(ctx context.Context, m channels.Message, p channels.Post) error {
	msg := buildMessage(p)
	msg.Reference = &discordgo.MessageReference{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
	}
	_, err := b.dg.ChannelMessageSendComplex(m.ChannelID, msg, discordgo.WithContext(ctx))
	return err
}

// buildMessage renders a post as one or more embeds. Long bodies continue
// in follow-up embeds; the title heads the first and the footer closes the
// last.
func buildMessage(p channels.Post) *discordgo.MessageSend {
	parts := splitMessage(p.Body, embedDescriptionLimit)
	if len(parts) == 0 {
		parts = []string{""}
	}
	if len(parts) > embedsPerMessage {
		parts = parts[:embedsPerMessage]
	}

	embeds := make([]*discordgo.MessageEmbed, len(parts))
	for i, part := range parts {
		embeds[i] = &discordgo.MessageEmbed{Description: part, Color: p.Color}
	}
	embeds[0].Title = p.Title
	if p.Footer != "" {
		embeds[len(embeds)-1].Footer = &discordgo.MessageEmbedFooter{Text: p.Footer}
	}

	return &discordgo.MessageSend{
		Content: p.Content,
		Embeds:  embeds,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
}

// splitMessage cuts s into chunks of at most limit runes, preferring line
// breaks, then spaces.
func splitMessage(s string, limit int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for utf8.RuneCountInString(s) > limit {
		runes := []rune(s)
		head := string(runes[:limit])
		cut := strings.LastIndex(head, "\n")
		if cut <= 0 {
			cut = strings.LastIndex(head, " ")
		}
		if cut <= 0 {
			cut = len(head)
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func matchChannels(guildID string, chs []*discordgo.Channel, name string) []channels.Channel {
	var out []channels.Channel
	for _, ch := range chs {
		if ch.Type != discordgo.ChannelTypeGuildText || !strings.EqualFold(ch.Name, name) {
			continue
		}
		out = append(out, channels.Channel{ID: ch.ID, Name: ch.Name, GuildID: guildID})
	}
	return out
}

func sortChannels(chs []channels.Channel) {
	sort.Slice(chs, func(i, j int) bool {
		if chs[i].GuildID != chs[j].GuildID {
			return chs[i].GuildID < chs[j].GuildID
		}
		return chs[i].ID < chs[j].ID
	})
}

func toUser(u *discordgo.User, nick string) channels.User {
	name := u.Username
	if u.GlobalName != "" {
		name = u.GlobalName
	}
	if nick != "" {
		name = nick
	}
	return channels.User{ID: u.ID, DisplayName: name, Mention: u.Mention()}
}

func isNotFound(err error) bool {
	var rerr *discordgo.RESTError
	return errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound
}
