package leveling

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wrenfield/rankman/internal/database"
)

// Repository is the engine's data access layer over the guild-scoped tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// --- guild config ---

func (r *Repository) ReadConfig(ctx context.Context, guildID string) (*database.GuildConfig, error) {
	c := &database.GuildConfig{}
	result := r.db.WithContext(ctx).First(c, "guild_snowflake = ?", guildID)
	if result.Error != nil {
		return nil, result.Error
	}
	return c, nil
}

func (r *Repository) CreateConfig(ctx context.Context, cfg *database.GuildConfig) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *Repository) SaveConfig(ctx context.Context, cfg *database.GuildConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

// --- level definitions ---

func (r *Repository) ListDefinitions(ctx context.Context, guildID string) ([]database.LevelDefinition, error) {
	var defs []database.LevelDefinition
	err := r.db.WithContext(ctx).
		Where("guild_snowflake = ?", guildID).
		Order("points_required ASC").
		Find(&defs).Error
	return defs, err
}

func (r *Repository) ReadDefinitionByRank(ctx context.Context, guildID string, rank int) (*database.LevelDefinition, error) {
	d := &database.LevelDefinition{}
	result := r.db.WithContext(ctx).
		First(d, "guild_snowflake = ? AND level_rank = ?", guildID, rank)
	if result.Error != nil {
		return nil, result.Error
	}
	return d, nil
}

func (r *Repository) ReadDefinitionByPoints(ctx context.Context, guildID string, points int) (*database.LevelDefinition, error) {
	d := &database.LevelDefinition{}
	result := r.db.WithContext(ctx).
		First(d, "guild_snowflake = ? AND points_required = ?", guildID, points)
	if result.Error != nil {
		return nil, result.Error
	}
	return d, nil
}

func (r *Repository) CreateDefinition(ctx context.Context, def *database.LevelDefinition) error {
	return r.db.WithContext(ctx).Create(def).Error
}

func (r *Repository) SaveDefinition(ctx context.Context, def *database.LevelDefinition) error {
	return r.db.WithContext(ctx).Save(def).Error
}

// DeleteDefinitionByRank removes a rank and reports whether a row existed.
func (r *Repository) DeleteDefinitionByRank(ctx context.Context, guildID string, rank int) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("guild_snowflake = ? AND level_rank = ?", guildID, rank).
		Delete(&database.LevelDefinition{})
	return result.RowsAffected > 0, result.Error
}

// --- engagement events ---

func (r *Repository) ReadEvent(ctx context.Context, guildID, messageID, eventType, sourceID, targetID string) (*database.EngagementEvent, error) {
	e := &database.EngagementEvent{}
	result := r.db.WithContext(ctx).First(e,
		"guild_snowflake = ? AND message_snowflake = ? AND type = ? AND source_snowflake = ? AND target_snowflake = ?",
		guildID, messageID, eventType, sourceID, targetID)
	if result.Error != nil {
		return nil, result.Error
	}
	return e, nil
}

// ReadReplyByMessage finds the single reply row for a message, if any.
func (r *Repository) ReadReplyByMessage(ctx context.Context, guildID, messageID string) (*database.EngagementEvent, error) {
	e := &database.EngagementEvent{}
	result := r.db.WithContext(ctx).First(e,
		"guild_snowflake = ? AND message_snowflake = ? AND type = ?",
		guildID, messageID, database.EventTypeReply)
	if result.Error != nil {
		return nil, result.Error
	}
	return e, nil
}

// LatestReplyBetween returns the most recently triggered reply row from
// source to target across all messages, or nil when the pair has none.
func (r *Repository) LatestReplyBetween(ctx context.Context, guildID, sourceID, targetID string) (*database.EngagementEvent, error) {
	e := &database.EngagementEvent{}
	result := r.db.WithContext(ctx).
		Where("guild_snowflake = ? AND type = ? AND source_snowflake = ? AND target_snowflake = ?",
			guildID, database.EventTypeReply, sourceID, targetID).
		Order("last_triggered_at DESC").
		First(e)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return e, nil
}

func (r *Repository) CreateEvent(ctx context.Context, e *database.EngagementEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *Repository) SaveEvent(ctx context.Context, e *database.EngagementEvent) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// --- member scores ---

func (r *Repository) ReadScore(ctx context.Context, guildID, userID string) (*database.MemberScore, error) {
	s := &database.MemberScore{}
	result := r.db.WithContext(ctx).
		First(s, "guild_snowflake = ? AND user_snowflake = ?", guildID, userID)
	if result.Error != nil {
		return nil, result.Error
	}
	return s, nil
}

func (r *Repository) CreateScore(ctx context.Context, s *database.MemberScore) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repository) SaveScore(ctx context.Context, s *database.MemberScore) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// TopScores returns the guild's scores ranked by points, ties broken by
// level, truncated to limit.
func (r *Repository) TopScores(ctx context.Context, guildID string, limit int) ([]database.MemberScore, error) {
	var scores []database.MemberScore
	err := r.db.WithContext(ctx).
		Where("guild_snowflake = ?", guildID).
		Order("active_points DESC, current_level DESC").
		Limit(limit).
		Find(&scores).Error
	return scores, err
}
