package leveling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// MemberStats is the live view of one member: the display name and next
// threshold are re-resolved against the current level definitions, so the
// label tracks ladder edits made after the last award.
type MemberStats struct {
	UserID        string    `json:"user_id"`
	ActivePoints  int       `json:"active_points"`
	Level         int       `json:"level"`
	LevelName     string    `json:"level_name"`
	NextThreshold int       `json:"next_threshold"`
	NextLevelName string    `json:"next_level_name"`
	LastAwardedAt time.Time `json:"last_awarded_at"`
}

// LeaderboardEntry is the snapshot view of one ranked member: the display
// name is looked up by the stored rank as last persisted, not re-derived.
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id"`
	ActivePoints int    `json:"active_points"`
	Level        int    `json:"level"`
	LevelName    string `json:"level_name"`
}

// GetMemberStats returns nil when the member has never been awarded.
func (e *Engine) GetMemberStats(ctx context.Context, guildID, userID string) (*MemberStats, error) {
	score, err := e.repo.ReadScore(ctx, guildID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to read member score: %w", err)
	}

	defs, err := e.levels.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}

	resolved := Resolve(score.ActivePoints, score.CurrentLevel, defs)
	return &MemberStats{
		UserID:        score.UserSnowflake,
		ActivePoints:  score.ActivePoints,
		Level:         resolved.Level,
		LevelName:     resolved.Name,
		NextThreshold: resolved.NextThreshold,
		NextLevelName: resolved.NextLevelName,
		LastAwardedAt: score.LastAwardedAt,
	}, nil
}

// GetLeaderboard ranks the guild's members by points descending, ties
// broken by level descending, truncated to limit.
func (e *Engine) GetLeaderboard(ctx context.Context, guildID string, limit int) ([]LeaderboardEntry, error) {
	scores, err := e.repo.TopScores(ctx, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to read top scores: %w", err)
	}

	defs, err := e.levels.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(defs))
	for _, d := range defs {
		names[d.LevelRank] = d.LevelName
	}

	entries := make([]LeaderboardEntry, 0, len(scores))
	for i, s := range scores {
		name, ok := names[s.CurrentLevel]
		if !ok {
			name = FallbackName(s.CurrentLevel)
		}
		entries = append(entries, LeaderboardEntry{
			Rank:         i + 1,
			UserID:       s.UserSnowflake,
			ActivePoints: s.ActivePoints,
			Level:        s.CurrentLevel,
			LevelName:    name,
		})
	}
	return entries, nil
}
