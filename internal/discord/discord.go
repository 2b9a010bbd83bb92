package discord

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wrenfield/rankman/internal/database"
	"github.com/wrenfield/rankman/internal/discord/rank"
	"github.com/wrenfield/rankman/internal/leveling"
)

// Bot owns the gateway session and one rank module per guild. Gateway
// events are routed to the module for their guild; guilds seen for the
// first time get a module created and loaded on the fly.
type Bot struct {
	session *discordgo.Session
	db      *gorm.DB
	engine  *leveling.Engine
	appId   string
	log     *zerolog.Logger

	mu      sync.RWMutex
	modules map[string]*rank.Rank
}

func New(token, appId string, db *gorm.DB, engine *leveling.Engine, log *zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("unable to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions
	session.State.MaxMessageCount = 500

	l := log.With().Str("component", "discord").Logger()
	b := &Bot{
		session: session,
		db:      db,
		engine:  engine,
		appId:   appId,
		log:     &l,
		modules: make(map[string]*rank.Rank),
	}

	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onReactionAdd)
	session.AddHandler(b.onReactionRemove)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onMessageDelete)
	return b, nil
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("unable to open discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) module(guildID string) *rank.Rank {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.modules[guildID]
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	row := &database.Guild{
		Snowflake: g.ID,
		Name:      g.Name,
		IconUrl:   g.IconURL("128"),
		OwnerID:   g.OwnerID,
	}
	if err := b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		b.log.Error().Err(err).Str("guild_snowflake", g.ID).Msg("unable to upsert guild")
	}

	b.mu.Lock()
	mod, ok := b.modules[g.ID]
	if !ok {
		mod = rank.New(g.Name, g.ID, b.appId, s, b.db, b.engine, b.log)
		b.modules[g.ID] = mod
	}
	b.mu.Unlock()

	if err := mod.Load(); err != nil {
		b.log.Error().Err(err).Str("guild_snowflake", g.ID).Msg("unable to load rank module")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if mod := b.module(i.GuildID); mod != nil {
		mod.OnInteractionCreate(s, i)
	}
}

func (b *Bot) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if mod := b.module(r.GuildID); mod != nil {
		mod.OnReactionAdd(s, r)
	}
}

func (b *Bot) onReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if mod := b.module(r.GuildID); mod != nil {
		mod.OnReactionRemove(s, r)
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if mod := b.module(m.GuildID); mod != nil {
		mod.OnMessageCreate(s, m)
	}
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if mod := b.module(m.GuildID); mod != nil {
		mod.OnMessageDelete(s, m)
	}
}
