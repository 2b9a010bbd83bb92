package database

import (
	"time"

	"gorm.io/datatypes"
)

// Event types stored in EngagementEvent.Type.
const (
	EventTypeReaction = "reaction"
	EventTypeReply    = "reply"
)

type Guild struct {
	Snowflake string `gorm:"primaryKey;unique"`
	Name      string
	IconUrl   string
	OwnerID   string
	Modules   []Module `gorm:"foreignKey:GuildSnowflake;references:Snowflake;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time // Managed by GORM
	UpdatedAt time.Time // Managed by GORM
}

type Module struct {
	ID             uint   `gorm:"primarykey;autoIncrement"`
	GuildSnowflake string `gorm:"index"`
	Name           string
	Description    string
	Enabled        bool `gorm:"default:false"`
	Config         datatypes.JSON
	Commands       datatypes.JSON
	CreatedAt      time.Time // Managed by GORM
	UpdatedAt      time.Time // Managed by GORM
}

// GuildConfig holds the per-guild leveling tunables. A row is created with
// defaults the first time a guild is read, and rewritten in full on every
// admin update.
type GuildConfig struct {
	GuildSnowflake           string `gorm:"primaryKey"`
	ReactionPoints           int    `gorm:"default:1"`
	ReplyPoints              int    `gorm:"default:5"`
	CooldownSeconds          int    `gorm:"default:60"`
	AnnounceChannelSnowflake string
	AnnounceEnabled          bool `gorm:"default:false"`
	DMEnabled                bool `gorm:"default:false"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// LevelDefinition is one rung of a guild's custom level ladder. PointsRequired
// is unique per guild so two ranks can never share a threshold.
type LevelDefinition struct {
	ID             uint   `gorm:"primaryKey"`
	GuildSnowflake string `gorm:"uniqueIndex:idx_level_rank,priority:1;uniqueIndex:idx_level_points,priority:1"`
	LevelRank      int    `gorm:"uniqueIndex:idx_level_rank,priority:2"`
	LevelName      string `gorm:"size:64"`
	PointsRequired int    `gorm:"uniqueIndex:idx_level_points,priority:2"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EngagementEvent collapses every raw signal for one (message, type, source,
// target) relationship into a single unit of credit. Active reports whether
// the row currently contributes Points to the target's score; ReactionCount
// tracks how many distinct reactions from the source are live on the message.
type EngagementEvent struct {
	ID               uint   `gorm:"primaryKey"`
	GuildSnowflake   string `gorm:"index;uniqueIndex:idx_engagement_key,priority:1"`
	MessageSnowflake string `gorm:"index;uniqueIndex:idx_engagement_key,priority:2"`
	Type             string `gorm:"size:16;uniqueIndex:idx_engagement_key,priority:3"`
	SourceSnowflake  string `gorm:"uniqueIndex:idx_engagement_key,priority:4"`
	TargetSnowflake  string `gorm:"uniqueIndex:idx_engagement_key,priority:5"`
	Points           int
	Active           bool
	ReactionCount    int
	LastTriggeredAt  *time.Time
	EmojiSnowflake   string
	EmojiName        string
	EmojiType        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MemberScore is the running total for one member in one guild. CurrentLevel
// is a high-water mark: it never decreases, even when points are revoked.
type MemberScore struct {
	ID             uint   `gorm:"primaryKey"`
	GuildSnowflake string `gorm:"index;uniqueIndex:idx_member_score,priority:1"`
	UserSnowflake  string `gorm:"uniqueIndex:idx_member_score,priority:2"`
	ActivePoints   int
	CurrentLevel   int
	LastAwardedAt  time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
