package leveling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/wrenfield/rankman/internal/database"
)

// ReactionEvent is one raw reaction signal from the gateway, already
// filtered and priced by the caller.
type ReactionEvent struct {
	GuildID         string
	MessageID       string
	SourceUserID    string
	TargetUserID    string
	Points          int
	CooldownSeconds int
	EmojiID         string
	EmojiName       string
	EmojiType       string
}

// ReplyEvent is one raw reply signal from the gateway.
type ReplyEvent struct {
	GuildID         string
	ReplyMessageID  string
	SourceUserID    string
	TargetUserID    string
	Points          int
	CooldownSeconds int
}

// AwardResult reports what an award attempt did to the target's score.
// NextThreshold and NextLevelName are populated only when LevelUp is true;
// without a level-up, LevelName carries the numeric fallback name for the
// unchanged stored level.
type AwardResult struct {
	Awarded       bool
	ActivePoints  int
	LevelUp       bool
	Level         int
	LevelName     string
	NextThreshold int
	NextLevelName string
}

// Engine converts deduplicated engagement signals into point and level
// mutations. All operations on the same ledger key are serialized.
type Engine struct {
	repo    *Repository
	configs *ConfigStore
	levels  *LevelStore
	locks   *keyMutex
	log     *zerolog.Logger
	now     func() time.Time
}

func NewEngine(db *gorm.DB, log *zerolog.Logger) *Engine {
	l := log.With().Str("module", "leveling").Logger()
	repo := NewRepository(db)
	return &Engine{
		repo:    repo,
		configs: NewConfigStore(repo),
		levels:  NewLevelStore(repo),
		locks:   newKeyMutex(),
		log:     &l,
		now:     time.Now,
	}
}

// Configs exposes the guild config store to callers that price events or
// deliver notifications.
func (e *Engine) Configs() *ConfigStore { return e.configs }

// Levels exposes the level definition store for admin management.
func (e *Engine) Levels() *LevelStore { return e.levels }

func reactionKey(evt ReactionEvent) string {
	return fmt.Sprintf("reaction|%s|%s|%s|%s", evt.GuildID, evt.MessageID, evt.SourceUserID, evt.TargetUserID)
}

func replyPairKey(guildID, sourceID, targetID string) string {
	return fmt.Sprintf("reply|%s|%s|%s", guildID, sourceID, targetID)
}

func scoreKey(guildID, userID string) string {
	return fmt.Sprintf("score|%s|%s", guildID, userID)
}

func (e *Engine) cooledDown(lastTriggeredAt *time.Time, cooldownSeconds int) bool {
	if lastTriggeredAt == nil {
		return true
	}
	return e.now().Sub(*lastTriggeredAt) >= time.Duration(cooldownSeconds)*time.Second
}

// RecordReactionAdd credits a reaction once per (message, source, target)
// relationship. Repeat reactions only bump the multiplicity counter; a fully
// lapsed relationship re-qualifies after the cooldown has elapsed.
func (e *Engine) RecordReactionAdd(ctx context.Context, evt ReactionEvent) (*AwardResult, error) {
	unlock := e.locks.Lock(reactionKey(evt))
	defer unlock()

	row, err := e.repo.ReadEvent(ctx, evt.GuildID, evt.MessageID, database.EventTypeReaction, evt.SourceUserID, evt.TargetUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := e.now()
		row = &database.EngagementEvent{
			GuildSnowflake:   evt.GuildID,
			MessageSnowflake: evt.MessageID,
			Type:             database.EventTypeReaction,
			SourceSnowflake:  evt.SourceUserID,
			TargetSnowflake:  evt.TargetUserID,
			Points:           evt.Points,
			Active:           true,
			ReactionCount:    1,
			LastTriggeredAt:  &now,
			EmojiSnowflake:   evt.EmojiID,
			EmojiName:        evt.EmojiName,
			EmojiType:        evt.EmojiType,
		}
		if err := e.repo.CreateEvent(ctx, row); err != nil {
			return nil, fmt.Errorf("unable to create reaction event: %w", err)
		}
		res, err := e.AddPoints(ctx, evt.GuildID, evt.TargetUserID, evt.Points)
		if err != nil {
			return nil, err
		}
		res.Awarded = true
		return res, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to read reaction event: %w", err)
	}

	row.ReactionCount++
	row.EmojiSnowflake = evt.EmojiID
	row.EmojiName = evt.EmojiName
	row.EmojiType = evt.EmojiType

	qualifies := !row.Active && e.cooledDown(row.LastTriggeredAt, evt.CooldownSeconds) && evt.Points > 0
	if !qualifies {
		if err := e.repo.SaveEvent(ctx, row); err != nil {
			return nil, fmt.Errorf("unable to update reaction event: %w", err)
		}
		return &AwardResult{}, nil
	}

	now := e.now()
	row.Active = true
	row.Points = evt.Points
	row.LastTriggeredAt = &now
	if err := e.repo.SaveEvent(ctx, row); err != nil {
		return nil, fmt.Errorf("unable to reactivate reaction event: %w", err)
	}
	res, err := e.AddPoints(ctx, evt.GuildID, evt.TargetUserID, evt.Points)
	if err != nil {
		return nil, err
	}
	res.Awarded = true
	return res, nil
}

// RecordReactionRemoval decrements the multiplicity counter and revokes the
// stored points exactly once, when the last live reaction from the source
// disappears. A missing row is a benign no-op.
func (e *Engine) RecordReactionRemoval(ctx context.Context, evt ReactionEvent) error {
	unlock := e.locks.Lock(reactionKey(evt))
	defer unlock()

	row, err := e.repo.ReadEvent(ctx, evt.GuildID, evt.MessageID, database.EventTypeReaction, evt.SourceUserID, evt.TargetUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("unable to read reaction event: %w", err)
	}

	if row.ReactionCount > 0 {
		row.ReactionCount--
	}
	wasActive := row.Active
	row.Active = row.Active && row.ReactionCount > 0
	if err := e.repo.SaveEvent(ctx, row); err != nil {
		return fmt.Errorf("unable to update reaction event: %w", err)
	}

	if wasActive && !row.Active {
		return e.RemovePoints(ctx, evt.GuildID, evt.TargetUserID, row.Points)
	}
	return nil
}

// RecordReplyCreate inserts a ledger row for the new reply. The cooldown is
// judged against the most recently triggered reply between the same pair
// across all messages; a pair with no history is always cooled down.
func (e *Engine) RecordReplyCreate(ctx context.Context, evt ReplyEvent) (*AwardResult, error) {
	unlock := e.locks.Lock(replyPairKey(evt.GuildID, evt.SourceUserID, evt.TargetUserID))
	defer unlock()

	prior, err := e.repo.LatestReplyBetween(ctx, evt.GuildID, evt.SourceUserID, evt.TargetUserID)
	if err != nil {
		return nil, fmt.Errorf("unable to read prior reply events: %w", err)
	}

	cooled := prior == nil || e.cooledDown(prior.LastTriggeredAt, evt.CooldownSeconds)
	active := cooled && evt.Points > 0

	row := &database.EngagementEvent{
		GuildSnowflake:   evt.GuildID,
		MessageSnowflake: evt.ReplyMessageID,
		Type:             database.EventTypeReply,
		SourceSnowflake:  evt.SourceUserID,
		TargetSnowflake:  evt.TargetUserID,
		Points:           evt.Points,
		Active:           active,
	}
	if active {
		now := e.now()
		row.LastTriggeredAt = &now
	}
	if err := e.repo.CreateEvent(ctx, row); err != nil {
		return nil, fmt.Errorf("unable to create reply event: %w", err)
	}

	if !active {
		return &AwardResult{}, nil
	}
	res, err := e.AddPoints(ctx, evt.GuildID, evt.TargetUserID, evt.Points)
	if err != nil {
		return nil, err
	}
	res.Awarded = true
	return res, nil
}

// RecordReplyRemoval deactivates the single ledger row for a deleted reply
// and revokes its stored points once. Unknown messages are a benign no-op;
// the reply may never have qualified.
func (e *Engine) RecordReplyRemoval(ctx context.Context, guildID, replyMessageID string) error {
	row, err := e.repo.ReadReplyByMessage(ctx, guildID, replyMessageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("unable to read reply event: %w", err)
	}

	unlock := e.locks.Lock(replyPairKey(guildID, row.SourceSnowflake, row.TargetSnowflake))
	defer unlock()

	// Re-read under the pair lock; a concurrent toggle may have beaten us.
	row, err = e.repo.ReadReplyByMessage(ctx, guildID, replyMessageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("unable to read reply event: %w", err)
	}
	if !row.Active {
		return nil
	}

	row.Active = false
	if err := e.repo.SaveEvent(ctx, row); err != nil {
		return fmt.Errorf("unable to deactivate reply event: %w", err)
	}
	return e.RemovePoints(ctx, guildID, row.TargetSnowflake, row.Points)
}

// AddPoints grants points to a member, creating the score row on first
// award, and resolves the level from the updated total. The stored level
// only moves when the resolver advances past it.
func (e *Engine) AddPoints(ctx context.Context, guildID, userID string, points int) (*AwardResult, error) {
	unlock := e.locks.Lock(scoreKey(guildID, userID))
	defer unlock()

	now := e.now()
	score, err := e.repo.ReadScore(ctx, guildID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		score = &database.MemberScore{
			GuildSnowflake: guildID,
			UserSnowflake:  userID,
			ActivePoints:   points,
			LastAwardedAt:  now,
		}
		if err := e.repo.CreateScore(ctx, score); err != nil {
			return nil, fmt.Errorf("unable to create member score: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("unable to read member score: %w", err)
	} else {
		score.ActivePoints += points
		score.LastAwardedAt = now
		if err := e.repo.SaveScore(ctx, score); err != nil {
			return nil, fmt.Errorf("unable to update member score: %w", err)
		}
	}

	defs, err := e.levels.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}

	prev := score.CurrentLevel
	resolved := Resolve(score.ActivePoints, prev, defs)
	out := &AwardResult{
		ActivePoints: score.ActivePoints,
		Level:        prev,
		LevelName:    FallbackName(prev),
	}
	if resolved.Level <= prev {
		return out, nil
	}

	score.CurrentLevel = resolved.Level
	if err := e.repo.SaveScore(ctx, score); err != nil {
		return nil, fmt.Errorf("unable to persist level: %w", err)
	}
	out.LevelUp = true
	out.Level = resolved.Level
	out.LevelName = resolved.Name
	out.NextThreshold = resolved.NextThreshold
	out.NextLevelName = resolved.NextLevelName
	e.log.Info().
		Str("guild_snowflake", guildID).
		Str("user_snowflake", userID).
		Int("level", resolved.Level).
		Int("points", score.ActivePoints).
		Msg("member leveled up")
	return out, nil
}

// RemovePoints revokes points from a member, floored at zero. The stored
// level is sticky and is never lowered here. Points that are zero or
// negative, or a member with no score row, are a no-op.
func (e *Engine) RemovePoints(ctx context.Context, guildID, userID string, points int) error {
	if points <= 0 {
		return nil
	}

	unlock := e.locks.Lock(scoreKey(guildID, userID))
	defer unlock()

	score, err := e.repo.ReadScore(ctx, guildID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("unable to read member score: %w", err)
	}

	score.ActivePoints -= points
	if score.ActivePoints < 0 {
		score.ActivePoints = 0
	}
	if err := e.repo.SaveScore(ctx, score); err != nil {
		return fmt.Errorf("unable to update member score: %w", err)
	}
	return nil
}
