package leveling

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wrenfield/rankman/internal/database"
)

// Defaults applied when a guild has no config row yet.
const (
	DefaultReactionPoints  = 1
	DefaultReplyPoints     = 5
	DefaultCooldownSeconds = 60
)

// ConfigStore is the read-through cached view of per-guild tunables. Absent
// rows are materialized with defaults on first read.
type ConfigStore struct {
	repo  *Repository
	cache *guildCache[*database.GuildConfig]
}

func NewConfigStore(repo *Repository) *ConfigStore {
	return &ConfigStore{repo: repo, cache: newGuildCache[*database.GuildConfig]()}
}

func defaultConfig(guildID string) *database.GuildConfig {
	return &database.GuildConfig{
		GuildSnowflake:  guildID,
		ReactionPoints:  DefaultReactionPoints,
		ReplyPoints:     DefaultReplyPoints,
		CooldownSeconds: DefaultCooldownSeconds,
	}
}

// Get returns a private copy of the guild's config, creating the default
// row when absent. Callers may mutate the copy freely; only Update makes
// changes visible to other readers.
func (s *ConfigStore) Get(ctx context.Context, guildID string) (*database.GuildConfig, error) {
	if cfg, ok := s.cache.Get(guildID); ok {
		cp := *cfg
		return &cp, nil
	}

	cfg, err := s.repo.ReadConfig(ctx, guildID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = defaultConfig(guildID)
		if err := s.repo.CreateConfig(ctx, cfg); err != nil {
			return nil, fmt.Errorf("unable to create default guild config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("unable to read guild config: %w", err)
	}

	s.cache.Put(guildID, cfg)
	cp := *cfg
	return &cp, nil
}

// Update rewrites the full config row and refreshes the cache entry with a
// copy. A failed write invalidates the entry instead, so readers repopulate
// from storage rather than serve unpersisted values.
func (s *ConfigStore) Update(ctx context.Context, cfg *database.GuildConfig) error {
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		s.cache.Invalidate(cfg.GuildSnowflake)
		return fmt.Errorf("unable to save guild config: %w", err)
	}
	cp := *cfg
	s.cache.Put(cfg.GuildSnowflake, &cp)
	return nil
}

// LevelStore is the read-through cached view of a guild's custom level
// ladder. Every write path invalidates the guild's cache entry.
type LevelStore struct {
	repo  *Repository
	cache *guildCache[[]database.LevelDefinition]
}

func NewLevelStore(repo *Repository) *LevelStore {
	return &LevelStore{repo: repo, cache: newGuildCache[[]database.LevelDefinition]()}
}

// Get returns the guild's definitions sorted ascending by points required.
// An empty slice means the default curve applies.
func (s *LevelStore) Get(ctx context.Context, guildID string) ([]database.LevelDefinition, error) {
	if defs, ok := s.cache.Get(guildID); ok {
		return defs, nil
	}

	defs, err := s.repo.ListDefinitions(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("unable to list level definitions: %w", err)
	}
	s.cache.Put(guildID, defs)
	return defs, nil
}

// Upsert merges a definition by rank. A points threshold already claimed by
// a different rank is rejected with ErrDuplicateThreshold.
func (s *LevelStore) Upsert(ctx context.Context, guildID string, rank int, name string, pointsRequired int) error {
	existing, err := s.repo.ReadDefinitionByPoints(ctx, guildID, pointsRequired)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("unable to check threshold uniqueness: %w", err)
	}
	if existing != nil && existing.LevelRank != rank {
		return ErrDuplicateThreshold
	}

	def, err := s.repo.ReadDefinitionByRank(ctx, guildID, rank)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		def = &database.LevelDefinition{
			GuildSnowflake: guildID,
			LevelRank:      rank,
			LevelName:      name,
			PointsRequired: pointsRequired,
		}
		if err := s.repo.CreateDefinition(ctx, def); err != nil {
			return fmt.Errorf("unable to create level definition: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to read level definition: %w", err)
	} else {
		def.LevelName = name
		def.PointsRequired = pointsRequired
		if err := s.repo.SaveDefinition(ctx, def); err != nil {
			return fmt.Errorf("unable to update level definition: %w", err)
		}
	}

	s.cache.Invalidate(guildID)
	return nil
}

// Remove deletes a rank and reports whether a definition actually existed.
func (s *LevelStore) Remove(ctx context.Context, guildID string, rank int) (bool, error) {
	removed, err := s.repo.DeleteDefinitionByRank(ctx, guildID, rank)
	if err != nil {
		return false, fmt.Errorf("unable to delete level definition: %w", err)
	}
	s.cache.Invalidate(guildID)
	return removed, nil
}
