package rank

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/wrenfield/rankman/internal/leveling"
)

// Announcer delivers level-up notifications per the guild's announcement
// settings. Delivery failures are logged and never propagate; the score
// mutation that triggered them stands.
type Announcer struct {
	session *discordgo.Session
	configs *leveling.ConfigStore
	log     *zerolog.Logger
}

func NewAnnouncer(session *discordgo.Session, configs *leveling.ConfigStore, log *zerolog.Logger) *Announcer {
	return &Announcer{session: session, configs: configs, log: log}
}

func levelUpEmbed(userID string, res *leveling.AwardResult) *discordgo.MessageEmbed {
	desc := fmt.Sprintf("<@%s> reached **%s** with %d points!", userID, res.LevelName, res.ActivePoints)
	if res.NextLevelName != "" {
		desc += fmt.Sprintf("\nNext: **%s** at %d points.", res.NextLevelName, res.NextThreshold)
	}
	return &discordgo.MessageEmbed{
		Title:       "Level Up!",
		Description: desc,
		Color:       0x00FF00, // green
	}
}

// LevelUp posts to the announce channel and/or DMs the member, depending on
// the guild config.
func (a *Announcer) LevelUp(guildID, userID string, res *leveling.AwardResult) {
	cfg, err := a.configs.Get(context.Background(), guildID)
	if err != nil {
		a.log.Error().Err(err).Msg("unable to read guild config for announcement")
		return
	}

	embed := levelUpEmbed(userID, res)

	if cfg.AnnounceEnabled && cfg.AnnounceChannelSnowflake != "" {
		if _, err := a.session.ChannelMessageSendEmbed(cfg.AnnounceChannelSnowflake, embed); err != nil {
			a.log.Error().Err(err).
				Str("channel_snowflake", cfg.AnnounceChannelSnowflake).
				Msg("unable to post level-up announcement")
		}
	}

	if cfg.DMEnabled {
		ch, err := a.session.UserChannelCreate(userID)
		if err != nil {
			a.log.Error().Err(err).Str("user_snowflake", userID).Msg("unable to open DM channel")
			return
		}
		if _, err := a.session.ChannelMessageSendEmbed(ch.ID, embed); err != nil {
			a.log.Error().Err(err).Str("user_snowflake", userID).Msg("unable to DM level-up")
		}
	}
}
