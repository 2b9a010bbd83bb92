package rank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/wrenfield/rankman/internal/database"
	"github.com/wrenfield/rankman/internal/leveling"
)

const (
	name        = "Rank"
	description = "Engagement points & levels"
)

var (
	ErrModuleAlreadyDisabled = errors.New("module is already disabled")
	ErrModuleAlreadyEnabled  = errors.New("module is already enabled")
)

var validate = validator.New()

// Rank is the Discord-facing leveling module for one guild. It feeds
// gateway signals into the engine and serves the slash command surface.
type Rank struct {
	guildName      string
	guildSnowflake string
	appId          string
	session        *discordgo.Session
	repo           *Repository
	engine         *leveling.Engine
	announcer      *Announcer
	log            *zerolog.Logger
}

// New returns an instance of the rank module
func New(
	guildName string,
	guildSnowflake string,
	appId string,
	session *discordgo.Session,
	db *gorm.DB,
	engine *leveling.Engine,
	log *zerolog.Logger,
) *Rank {
	l := log.With().
		Str("module", name).
		Str("guild_name", guildName).
		Str("guild_snowflake", guildSnowflake).
		Logger()

	return &Rank{
		guildName:      guildName,
		guildSnowflake: guildSnowflake,
		appId:          appId,
		session:        session,
		repo:           NewRepository(db),
		engine:         engine,
		announcer:      NewAnnouncer(session, engine.Configs(), &l),
		log:            &l,
	}
}

// Load is called when a guild first becomes available or on reconnect
func (m *Rank) Load() error {
	mod, err := m.repo.ReadModule(m.guildSnowflake)
	if err == gorm.ErrRecordNotFound {
		m.log.Debug().Msg("rank module not found, creating...")

		cfgJson, _ := json.Marshal(struct{}{})

		cmdMap := make(map[string]bool)
		for _, cmd := range commands {
			cmdMap[cmd.Name] = true
		}
		cmdJson, _ := json.Marshal(cmdMap)

		insert := &database.Module{
			GuildSnowflake: m.guildSnowflake,
			Name:           name,
			Description:    description,
			Enabled:        true,
			Config:         cfgJson,
			Commands:       cmdJson,
		}
		if mod, err = m.repo.CreateModule(insert); err != nil {
			return fmt.Errorf("unable to create rank module: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to read rank module from DB: %w", err)
	}

	if !mod.Enabled {
		m.log.Debug().Msg("rank module disabled, skipping load")
		return nil
	}

	var cmds map[string]bool
	if err := json.Unmarshal([]byte(mod.Commands), &cmds); err != nil {
		return fmt.Errorf("critical error unmarshalling command map: %w", err)
	}

	updated := false
	for _, cmd := range commands {
		if _, ok := cmds[cmd.Name]; !ok {
			cmds[cmd.Name] = true
			updated = true
		}
	}
	if updated {
		newCmdJson, _ := json.Marshal(cmds)
		mod.Commands = newCmdJson
		_, err = m.repo.UpdateModule(mod)
		if err != nil {
			return fmt.Errorf("unable to update rank module commands: %w", err)
		}
	}

	for _, cmd := range commands {
		if !cmds[cmd.Name] {
			m.log.Debug().Str("command", cmd.Name).Msg("command disabled, skipping")
			continue
		}
		_, err := m.session.ApplicationCommandCreate(m.appId, m.guildSnowflake, cmd)
		if err != nil {
			m.log.Error().Err(err).Str("command", cmd.Name).Msg("error registering command")
		}
	}

	m.log.Debug().Msgf("rank module loaded for guild %s", m.guildName)
	return nil
}

// Enable sets the rank module as enabled in DB and registers commands
func (m *Rank) Enable() error {
	mod, err := m.repo.ReadModule(m.guildSnowflake)
	if err != nil {
		return err
	}
	if mod.Enabled {
		return ErrModuleAlreadyEnabled
	}
	mod.Enabled = true
	if _, err := m.repo.UpdateModule(mod); err != nil {
		return err
	}

	var cmds map[string]bool
	if err := json.Unmarshal([]byte(mod.Commands), &cmds); err != nil {
		return fmt.Errorf("unmarshal commands: %w", err)
	}
	for _, cmd := range commands {
		if !cmds[cmd.Name] {
			continue
		}
		if _, err := m.session.ApplicationCommandCreate(m.appId, m.guildSnowflake, cmd); err != nil {
			m.log.Error().Err(err).Str("cmd", cmd.Name).Msg("error registering command")
		}
	}

	m.log.Info().Msg("rank module enabled")
	return nil
}

// Disable sets the rank module as disabled in DB and removes commands from Discord
func (m *Rank) Disable() error {
	mod, err := m.repo.ReadModule(m.guildSnowflake)
	if err != nil {
		return err
	}
	if !mod.Enabled {
		return ErrModuleAlreadyDisabled
	}
	mod.Enabled = false

	if _, err := m.repo.UpdateModule(mod); err != nil {
		return err
	}

	remote, err := m.session.ApplicationCommands(m.appId, m.guildSnowflake)
	if err != nil {
		return fmt.Errorf("unable to fetch remote commands: %w", err)
	}
	for _, c := range remote {
		for _, known := range commands {
			if c.Name == known.Name {
				m.session.ApplicationCommandDelete(m.appId, m.guildSnowflake, c.ID)
			}
		}
	}

	m.log.Info().Msg("rank module disabled")
	return nil
}

// Status returns true if the module is enabled, otherwise false
func (m *Rank) Status() (bool, error) {
	mod, err := m.repo.ReadModule(m.guildSnowflake)
	if err != nil {
		return false, err
	}
	return mod.Enabled, nil
}

func (m *Rank) enabled() bool {
	mod, err := m.repo.ReadModule(m.guildSnowflake)
	return err == nil && mod.Enabled
}

// OnInteractionCreate processes slash commands
func (m *Rank) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !m.enabled() {
		return
	}

	if i.Type == discordgo.InteractionApplicationCommand {
		m.handleCommand(s, i)
	}
}

// handleCommand routes each slash command
func (m *Rank) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmdName := i.ApplicationCommandData().Name
	switch cmdName {
	case "rank":
		m.handleRankCommand(s, i)
	case "leaderboard":
		m.handleLeaderboardCommand(s, i)
	case "levels":
		m.handleLevelsCommand(s, i)
	case "setlevel":
		m.handleSetLevelCommand(s, i)
	case "dellevel":
		m.handleDelLevelCommand(s, i)
	case "levelconfig":
		m.handleLevelConfigCommand(s, i)
	default:
		// no-op
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (m *Rank) handleRankCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := i.Member.User.ID
	opts := i.ApplicationCommandData().Options
	if len(opts) > 0 {
		userID = opts[0].UserValue(s).ID
	}

	stats, err := m.engine.GetMemberStats(context.Background(), i.GuildID, userID)
	if err != nil {
		m.log.Error().Err(err).Msg("unable to read member stats")
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Rank Error",
			Description: "Could not look up that member right now.",
			Color:       0xFF0000, // red
		}, true)
		return
	}
	if stats == nil {
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Rank",
			Description: fmt.Sprintf("<@%s> has not earned any points yet.", userID),
			Color:       0xFF0000, // red
		}, true)
		return
	}

	desc := fmt.Sprintf("<@%s> — **%s** with **%d points**", userID, stats.LevelName, stats.ActivePoints)
	if stats.NextLevelName != "" {
		desc += fmt.Sprintf("\nNext: **%s** at %d points", stats.NextLevelName, stats.NextThreshold)
	}
	respond(s, i, &discordgo.MessageEmbed{
		Title:       "Rank",
		Description: desc,
		Color:       0x00FF00, // green
	}, false)
}

func (m *Rank) handleLeaderboardCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	entries, err := m.engine.GetLeaderboard(context.Background(), i.GuildID, 10) // top 10
	if err != nil {
		m.log.Error().Err(err).Msg("unable to read leaderboard")
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Leaderboard Error",
			Description: "Could not load the leaderboard right now.",
			Color:       0xFF0000, // red
		}, true)
		return
	}
	if len(entries) == 0 {
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Leaderboard",
			Description: "No leaderboard data found!",
			Color:       0xFF0000, // red
		}, false)
		return
	}

	lines := []string{}
	for _, entry := range entries {
		line := fmt.Sprintf("**%d.** <@%s> — %d points (%s)", entry.Rank, entry.UserID, entry.ActivePoints, entry.LevelName)
		lines = append(lines, line)
	}

	respond(s, i, &discordgo.MessageEmbed{
		Title:       "Top 10 Leaderboard",
		Description: strings.Join(lines, "\n"),
		Color:       0x00FF00, // green
	}, false)
}

func (m *Rank) handleLevelsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defs, err := m.engine.Levels().Get(context.Background(), i.GuildID)
	if err != nil {
		m.log.Error().Err(err).Msg("unable to list level definitions")
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Levels Error",
			Description: "Could not load the level ladder right now.",
			Color:       0xFF0000,
		}, true)
		return
	}
	if len(defs) == 0 {
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Level Ladder",
			Description: "No custom levels configured; the default curve is in effect.",
			Color:       0x00FF00,
		}, false)
		return
	}

	lines := []string{}
	for _, d := range defs {
		lines = append(lines, fmt.Sprintf("**%d. %s** — %d points", d.LevelRank, d.LevelName, d.PointsRequired))
	}
	respond(s, i, &discordgo.MessageEmbed{
		Title:       "Level Ladder",
		Description: strings.Join(lines, "\n"),
		Color:       0x00FF00,
	}, false)
}

type levelInput struct {
	Rank   int    `validate:"min=1"`
	Name   string `validate:"required,max=64"`
	Points int    `validate:"min=1"`
}

func (m *Rank) handleSetLevelCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	in := levelInput{}
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "rank":
			in.Rank = int(opt.IntValue())
		case "name":
			in.Name = opt.StringValue()
		case "points":
			in.Points = int(opt.IntValue())
		}
	}

	if err := validate.Struct(in); err != nil {
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Invalid Level",
			Description: "Rank and points must be 1 or higher, and the name must be at most 64 characters.",
			Color:       0xFF0000,
		}, true)
		return
	}

	err := m.engine.Levels().Upsert(context.Background(), i.GuildID, in.Rank, in.Name, in.Points)
	if errors.Is(err, leveling.ErrDuplicateThreshold) {
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Duplicate Threshold",
			Description: fmt.Sprintf("Another level already requires %d points.", in.Points),
			Color:       0xFF0000,
		}, true)
		return
	}
	if err != nil {
		m.log.Error().Err(err).Msg("unable to upsert level definition")
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Level Error",
			Description: "Could not save the level. Try again later?",
			Color:       0xFF0000,
		}, true)
		return
	}

	respond(s, i, &discordgo.MessageEmbed{
		Title:       "Level Saved",
		Description: fmt.Sprintf("Rank %d is now **%s** at %d points.", in.Rank, in.Name, in.Points),
		Color:       0x00FF00,
	}, true)
}

func (m *Rank) handleDelLevelCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	rankOpt := int(i.ApplicationCommandData().Options[0].IntValue())

	removed, err := m.engine.Levels().Remove(context.Background(), i.GuildID, rankOpt)
	if err != nil {
		m.log.Error().Err(err).Msg("unable to delete level definition")
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Level Error",
			Description: "Could not delete the level. Try again later?",
			Color:       0xFF0000,
		}, true)
		return
	}
	if !removed {
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Nothing To Delete",
			Description: fmt.Sprintf("No level with rank %d exists.", rankOpt),
			Color:       0xFF0000,
		}, true)
		return
	}

	respond(s, i, &discordgo.MessageEmbed{
		Title:       "Level Deleted",
		Description: fmt.Sprintf("Rank %d was removed from the ladder.", rankOpt),
		Color:       0x00FF00,
	}, true)
}

func (m *Rank) handleLevelConfigCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	cfg, err := m.engine.Configs().Get(ctx, i.GuildID)
	if err != nil {
		m.log.Error().Err(err).Msg("unable to read guild config")
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Config Error",
			Description: "Could not load the current settings.",
			Color:       0xFF0000,
		}, true)
		return
	}

	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "reaction_points":
			cfg.ReactionPoints = int(opt.IntValue())
		case "reply_points":
			cfg.ReplyPoints = int(opt.IntValue())
		case "cooldown":
			cfg.CooldownSeconds = int(opt.IntValue())
		case "announce_channel":
			cfg.AnnounceChannelSnowflake = opt.ChannelValue(s).ID
		case "announce":
			cfg.AnnounceEnabled = opt.BoolValue()
		case "dm":
			cfg.DMEnabled = opt.BoolValue()
		}
	}
	if cfg.ReactionPoints < 0 {
		cfg.ReactionPoints = 0
	}
	if cfg.ReplyPoints < 0 {
		cfg.ReplyPoints = 0
	}
	if cfg.CooldownSeconds < 0 {
		cfg.CooldownSeconds = 0
	}

	if err := m.engine.Configs().Update(ctx, cfg); err != nil {
		m.log.Error().Err(err).Msg("unable to save guild config")
		respond(s, i, &discordgo.MessageEmbed{
			Title:       "Config Error",
			Description: "Could not save the settings. Try again later?",
			Color:       0xFF0000,
		}, true)
		return
	}

	desc := fmt.Sprintf(
		"Reaction points: **%d**\nReply points: **%d**\nCooldown: **%ds**\nAnnounce: **%t**\nDM: **%t**",
		cfg.ReactionPoints, cfg.ReplyPoints, cfg.CooldownSeconds, cfg.AnnounceEnabled, cfg.DMEnabled,
	)
	if cfg.AnnounceChannelSnowflake != "" {
		desc += fmt.Sprintf("\nAnnounce channel: <#%s>", cfg.AnnounceChannelSnowflake)
	}
	respond(s, i, &discordgo.MessageEmbed{
		Title:       "Leveling Settings",
		Description: desc,
		Color:       0x00FF00,
	}, true)
}
