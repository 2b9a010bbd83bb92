package rank

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/wrenfield/rankman/internal/leveling"
)

// Gateway handlers. Each filters bot accounts and self-interactions,
// resolves the message author, prices the signal from the guild config and
// hands it to the engine. Delivery of level-up notifications never blocks
// or fails the ledger mutation.

func emojiType(e discordgo.Emoji) string {
	if e.ID != "" {
		return "custom"
	}
	return "unicode"
}

// messageAuthor resolves the author of a message, preferring the state
// cache and falling back to the REST API.
func (m *Rank) messageAuthor(s *discordgo.Session, channelID, messageID string) *discordgo.User {
	if msg, err := s.State.Message(channelID, messageID); err == nil && msg.Author != nil {
		return msg.Author
	}
	msg, err := s.ChannelMessage(channelID, messageID)
	if err != nil || msg.Author == nil {
		return nil
	}
	return msg.Author
}

// OnReactionAdd feeds a reaction signal into the engine.
func (m *Rank) OnReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if !m.enabled() {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}

	author := m.messageAuthor(s, r.ChannelID, r.MessageID)
	if author == nil || author.Bot || author.ID == r.UserID {
		return
	}

	ctx := context.Background()
	cfg, err := m.engine.Configs().Get(ctx, r.GuildID)
	if err != nil {
		m.log.Error().Err(err).Msg("unable to read guild config")
		return
	}

	res, err := m.engine.RecordReactionAdd(ctx, leveling.ReactionEvent{
		GuildID:         r.GuildID,
		MessageID:       r.MessageID,
		SourceUserID:    r.UserID,
		TargetUserID:    author.ID,
		Points:          cfg.ReactionPoints,
		CooldownSeconds: cfg.CooldownSeconds,
		EmojiID:         r.Emoji.ID,
		EmojiName:       r.Emoji.Name,
		EmojiType:       emojiType(r.Emoji),
	})
	if err != nil {
		m.log.Error().Err(err).Str("message_snowflake", r.MessageID).Msg("unable to record reaction add")
		return
	}
	if res.LevelUp {
		m.announcer.LevelUp(r.GuildID, author.ID, res)
	}
}

// OnReactionRemove feeds a reaction removal into the engine.
func (m *Rank) OnReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if !m.enabled() {
		return
	}

	author := m.messageAuthor(s, r.ChannelID, r.MessageID)
	if author == nil || author.Bot || author.ID == r.UserID {
		return
	}

	err := m.engine.RecordReactionRemoval(context.Background(), leveling.ReactionEvent{
		GuildID:      r.GuildID,
		MessageID:    r.MessageID,
		SourceUserID: r.UserID,
		TargetUserID: author.ID,
		EmojiID:      r.Emoji.ID,
		EmojiName:    r.Emoji.Name,
		EmojiType:    emojiType(r.Emoji),
	})
	if err != nil {
		m.log.Error().Err(err).Str("message_snowflake", r.MessageID).Msg("unable to record reaction removal")
	}
}

// OnMessageCreate feeds reply messages into the engine. Plain messages with
// no reference are not engagement signals.
func (m *Rank) OnMessageCreate(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if !m.enabled() {
		return
	}
	if msg.Author == nil || msg.Author.Bot || msg.MessageReference == nil {
		return
	}

	target := msg.ReferencedMessage
	if target == nil {
		parent, err := s.ChannelMessage(msg.MessageReference.ChannelID, msg.MessageReference.MessageID)
		if err != nil {
			m.log.Debug().Err(err).Msg("unable to resolve referenced message")
			return
		}
		target = parent
	}
	if target.Author == nil || target.Author.Bot || target.Author.ID == msg.Author.ID {
		return
	}

	ctx := context.Background()
	cfg, err := m.engine.Configs().Get(ctx, msg.GuildID)
	if err != nil {
		m.log.Error().Err(err).Msg("unable to read guild config")
		return
	}

	res, err := m.engine.RecordReplyCreate(ctx, leveling.ReplyEvent{
		GuildID:         msg.GuildID,
		ReplyMessageID:  msg.ID,
		SourceUserID:    msg.Author.ID,
		TargetUserID:    target.Author.ID,
		Points:          cfg.ReplyPoints,
		CooldownSeconds: cfg.CooldownSeconds,
	})
	if err != nil {
		m.log.Error().Err(err).Str("message_snowflake", msg.ID).Msg("unable to record reply")
		return
	}
	if res.LevelUp {
		m.announcer.LevelUp(msg.GuildID, target.Author.ID, res)
	}
}

// OnMessageDelete revokes credit for a deleted reply. Deletions of messages
// that never qualified are a no-op inside the engine.
func (m *Rank) OnMessageDelete(s *discordgo.Session, msg *discordgo.MessageDelete) {
	if !m.enabled() {
		return
	}
	err := m.engine.RecordReplyRemoval(context.Background(), msg.GuildID, msg.ID)
	if err != nil {
		m.log.Error().Err(err).Str("message_snowflake", msg.ID).Msg("unable to record reply removal")
	}
}
