// Package discord connects the personas and slash commands to a Discord
// gateway session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/accountability-bot/internal/channels"
	"github.com/keshon/accountability-bot/internal/command"
	"github.com/keshon/accountability-bot/internal/config"
	"github.com/keshon/accountability-bot/internal/storage"
	"github.com/keshon/accountability-bot/pkg/cmd"
)

// MessageHandler receives every inbound guild message.
type MessageHandler interface {
	OnMessage(ctx context.Context, msg channels.Message)
}

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	storage  *storage.Storage
	commands *cmd.Registry
	log      zerolog.Logger

	mu      sync.RWMutex
	handler MessageHandler
	ctx     context.Context

	readyOnce sync.Once
	ready     chan struct{}
}

// New prepares a session. Nothing connects until Run.
func New(cfg *config.Config, store *storage.Storage, commands *cmd.Registry, logger zerolog.Logger) (*Bot, error) {
	if err := cfg.RequireDiscord(); err != nil {
		return nil, err
	}
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Bot{
		dg:       dg,
		cfg:      cfg,
		storage:  store,
		commands: commands,
		log:      logger.With().Str("component", "discord").Logger(),
		ctx:      context.Background(),
		ready:    make(chan struct{}),
	}, nil
}

// SetMessageHandler routes inbound messages to h.
func (b *Bot) SetMessageHandler(h MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Ready is closed once the gateway reports READY.
func (b *Bot) Ready() <-chan struct{} { return b.ready }

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing session")
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
}

func (b *Bot) runContext() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.leaveIfBlacklisted(s, g.ID) {
			continue
		}
		if err := b.registerCommands(b.runContext(), g.ID); err != nil {
			b.log.Error().Err(err).Str("guild", g.ID).Msg("register slash commands")
		}
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("guild available")
	if b.leaveIfBlacklisted(s, g.ID) {
		return
	}
	if err := b.registerCommands(b.runContext(), g.ID); err != nil {
		b.log.Error().Err(err).Str("guild", g.ID).Msg("register slash commands")
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.GuildID == "" {
		return
	}
	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h == nil || b.isGuildBlacklisted(m.GuildID) {
		return
	}

	name := ""
	if ch, err := s.State.Channel(m.ChannelID); err == nil {
		name = ch.Name
	} else if ch, err := s.Channel(m.ChannelID); err == nil {
		name = ch.Name
	} else {
		b.log.Warn().Err(err).Str("channel", m.ChannelID).Msg("resolve channel name")
		return
	}
	h.OnMessage(b.runContext(), toMessage(m.Message, name))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	sc := &command.SlashContext{Session: s, Event: i, Storage: b.storage}
	if err := command.Dispatch(b.runContext(), b.commands, sc); err != nil {
		name := i.ApplicationCommandData().Name
		b.log.Error().Err(err).Str("command", name).Msg("slash command failed")
		if rerr := sc.RespondText(fmt.Sprintf("Error running command: %v", err)); rerr != nil {
			b.log.Warn().Err(rerr).Str("command", name).Msg("respond with error")
		}
	}
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) bool {
	if !b.isGuildBlacklisted(guildID) {
		return false
	}
	b.log.Info().Str("guild", guildID).Msg("leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Err(err).Str("guild", guildID).Msg("leave guild")
	}
	return true
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return slices.Contains(b.cfg.GuildBlacklist, guildID)
}

func toMessage(m *discordgo.Message, channelName string) channels.Message {
	msg := channels.Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		ChannelName: channelName,
		GuildID:     m.GuildID,
		Content:     m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
		if m.Author.GlobalName != "" {
			msg.AuthorName = m.Author.GlobalName
		}
		msg.AuthorIsBot = m.Author.Bot
	}
	if m.Member != nil && m.Member.Nick != "" {
		msg.AuthorName = m.Member.Nick
	}
	return msg
}

var errNoSession = errors.New("discord: session not ready")
