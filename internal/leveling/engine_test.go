package leveling

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wrenfield/rankman/internal/database"
)

var testEpoch = time.Unix(1_700_000_000, 0)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	log := zerolog.Nop()
	e := NewEngine(db, &log)
	e.now = func() time.Time { return testEpoch }
	return e
}

// setClock pins the engine clock to a fixed offset from the test epoch.
func setClock(e *Engine, d time.Duration) {
	e.now = func() time.Time { return testEpoch.Add(d) }
}

func testReaction(points int) ReactionEvent {
	return ReactionEvent{
		GuildID:         "guild-1",
		MessageID:       "msg-1",
		SourceUserID:    "alice",
		TargetUserID:    "bob",
		Points:          points,
		CooldownSeconds: 60,
		EmojiName:       "👍",
		EmojiType:       "unicode",
	}
}

func memberPoints(t *testing.T, e *Engine, guildID, userID string) int {
	t.Helper()
	score, err := e.repo.ReadScore(context.Background(), guildID, userID)
	if err != nil {
		t.Fatalf("read score: %v", err)
	}
	return score.ActivePoints
}

func TestReactionAddAwardsOnce(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	evt := testReaction(3)

	res, err := e.RecordReactionAdd(ctx, evt)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if !res.Awarded {
		t.Error("first add: expected awarded")
	}
	if res.ActivePoints != 3 {
		t.Errorf("points = %d, want 3", res.ActivePoints)
	}

	// Second emoji on the same message before the cooldown elapses.
	res, err = e.RecordReactionAdd(ctx, evt)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if res.Awarded {
		t.Error("second add: expected not awarded")
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 3 {
		t.Errorf("points = %d, want 3", got)
	}
}

func TestReactionMultiplicity(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	evt := testReaction(3)

	// Two distinct emoji from the same source on the same message.
	if _, err := e.RecordReactionAdd(ctx, evt); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := e.RecordReactionAdd(ctx, evt); err != nil {
		t.Fatalf("second add: %v", err)
	}

	row, err := e.repo.ReadEvent(ctx, evt.GuildID, evt.MessageID, database.EventTypeReaction, evt.SourceUserID, evt.TargetUserID)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if row.ReactionCount != 2 {
		t.Errorf("reaction count = %d, want 2", row.ReactionCount)
	}
	if !row.Active {
		t.Error("expected row active")
	}

	// Removing one of two keeps the credit.
	if err := e.RecordReactionRemoval(ctx, evt); err != nil {
		t.Fatalf("first removal: %v", err)
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 3 {
		t.Errorf("points after first removal = %d, want 3", got)
	}

	// Removing the last one revokes exactly once.
	if err := e.RecordReactionRemoval(ctx, evt); err != nil {
		t.Fatalf("second removal: %v", err)
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 0 {
		t.Errorf("points after second removal = %d, want 0", got)
	}

	// A straggling removal signal changes nothing.
	if err := e.RecordReactionRemoval(ctx, evt); err != nil {
		t.Fatalf("third removal: %v", err)
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 0 {
		t.Errorf("points after third removal = %d, want 0", got)
	}
}

func TestReactionRemovalUnknownRowIsNoop(t *testing.T) {
	e := newTestEngine(t)
	if err := e.RecordReactionRemoval(context.Background(), testReaction(3)); err != nil {
		t.Fatalf("removal of unknown row: %v", err)
	}
}

func TestReactionCooldownBoundary(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	evt := testReaction(3)

	if _, err := e.RecordReactionAdd(ctx, evt); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.RecordReactionRemoval(ctx, evt); err != nil {
		t.Fatalf("removal: %v", err)
	}

	setClock(e, 59*time.Second)
	res, err := e.RecordReactionAdd(ctx, evt)
	if err != nil {
		t.Fatalf("add at 59s: %v", err)
	}
	if res.Awarded {
		t.Error("add at 59s: expected not awarded")
	}

	setClock(e, 60*time.Second)
	res, err = e.RecordReactionAdd(ctx, evt)
	if err != nil {
		t.Fatalf("add at 60s: %v", err)
	}
	if !res.Awarded {
		t.Error("add at 60s: expected awarded")
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 3 {
		t.Errorf("points = %d, want 3", got)
	}
}

func TestReactionZeroPointsNeverRequalifies(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	evt := testReaction(3)

	if _, err := e.RecordReactionAdd(ctx, evt); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.RecordReactionRemoval(ctx, evt); err != nil {
		t.Fatalf("removal: %v", err)
	}

	setClock(e, time.Hour)
	evt.Points = 0
	res, err := e.RecordReactionAdd(ctx, evt)
	if err != nil {
		t.Fatalf("add with zero points: %v", err)
	}
	if res.Awarded {
		t.Error("expected not awarded with zero configured points")
	}
}

func TestLevelIsSticky(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	evt := testReaction(30)
	evt.CooldownSeconds = 10

	res, err := e.RecordReactionAdd(ctx, evt)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !res.LevelUp {
		t.Fatal("expected level up")
	}
	if res.Level != 1 {
		t.Errorf("level = %d, want 1", res.Level)
	}
	if res.LevelName != "Level 1" {
		t.Errorf("level name = %q, want %q", res.LevelName, "Level 1")
	}

	if err := e.RecordReactionRemoval(ctx, evt); err != nil {
		t.Fatalf("removal: %v", err)
	}
	score, err := e.repo.ReadScore(ctx, "guild-1", "bob")
	if err != nil {
		t.Fatalf("read score: %v", err)
	}
	if score.ActivePoints != 0 {
		t.Errorf("points = %d, want 0", score.ActivePoints)
	}
	if score.CurrentLevel != 1 {
		t.Errorf("level = %d, want 1 (sticky)", score.CurrentLevel)
	}
}

func TestCustomLevelAwardAndStats(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if err := e.Levels().Upsert(ctx, "guild-1", 1, "Recruit", 5); err != nil {
		t.Fatalf("upsert rank 1: %v", err)
	}
	if err := e.Levels().Upsert(ctx, "guild-1", 2, "Pilot", 20); err != nil {
		t.Fatalf("upsert rank 2: %v", err)
	}

	evt := testReaction(5)
	res, err := e.RecordReactionAdd(ctx, evt)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !res.LevelUp {
		t.Fatal("expected level up")
	}
	if res.LevelName != "Recruit" {
		t.Errorf("level name = %q, want %q", res.LevelName, "Recruit")
	}

	stats, err := e.GetMemberStats(ctx, "guild-1", "bob")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}
	if stats.NextThreshold != 20 || stats.NextLevelName != "Pilot" {
		t.Errorf("next = %d/%q, want 20/Pilot", stats.NextThreshold, stats.NextLevelName)
	}
}

func TestAddPointsBelowThresholdReportsFallbackName(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.AddPoints(context.Background(), "guild-1", "bob", 10)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if res.LevelUp {
		t.Error("expected no level up")
	}
	if res.LevelName != "Unranked" {
		t.Errorf("level name = %q, want %q", res.LevelName, "Unranked")
	}
	if res.NextThreshold != 0 || res.NextLevelName != "" {
		t.Errorf("next = %d/%q, want unset without a level-up", res.NextThreshold, res.NextLevelName)
	}
	if res.ActivePoints != 10 {
		t.Errorf("points = %d, want 10", res.ActivePoints)
	}
}

func TestRemovePointsFloorsAtZero(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.AddPoints(ctx, "guild-1", "bob", 4); err != nil {
		t.Fatalf("add points: %v", err)
	}
	if err := e.RemovePoints(ctx, "guild-1", "bob", 10); err != nil {
		t.Fatalf("remove points: %v", err)
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 0 {
		t.Errorf("points = %d, want 0", got)
	}

	// Non-positive amounts and unknown members are no-ops.
	if err := e.RemovePoints(ctx, "guild-1", "bob", 0); err != nil {
		t.Fatalf("remove zero: %v", err)
	}
	if err := e.RemovePoints(ctx, "guild-1", "nobody", 5); err != nil {
		t.Fatalf("remove from unknown member: %v", err)
	}
}

func testReply(messageID string, points int) ReplyEvent {
	return ReplyEvent{
		GuildID:         "guild-1",
		ReplyMessageID:  messageID,
		SourceUserID:    "alice",
		TargetUserID:    "bob",
		Points:          points,
		CooldownSeconds: 60,
	}
}

func TestReplyCooldownSpansMessages(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	res, err := e.RecordReplyCreate(ctx, testReply("reply-1", 5))
	if err != nil {
		t.Fatalf("first reply: %v", err)
	}
	if !res.Awarded {
		t.Error("first reply: expected awarded")
	}

	// A different message, same pair, inside the cooldown.
	setClock(e, 30*time.Second)
	res, err = e.RecordReplyCreate(ctx, testReply("reply-2", 5))
	if err != nil {
		t.Fatalf("second reply: %v", err)
	}
	if res.Awarded {
		t.Error("second reply: expected not awarded")
	}

	setClock(e, 90*time.Second)
	res, err = e.RecordReplyCreate(ctx, testReply("reply-3", 5))
	if err != nil {
		t.Fatalf("third reply: %v", err)
	}
	if !res.Awarded {
		t.Error("third reply: expected awarded")
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 10 {
		t.Errorf("points = %d, want 10", got)
	}
}

func TestReplyRemoval(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.RecordReplyCreate(ctx, testReply("reply-1", 5)); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if err := e.RecordReplyRemoval(ctx, "guild-1", "reply-1"); err != nil {
		t.Fatalf("removal: %v", err)
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 0 {
		t.Errorf("points = %d, want 0", got)
	}

	// Revocation happens exactly once.
	if err := e.RecordReplyRemoval(ctx, "guild-1", "reply-1"); err != nil {
		t.Fatalf("repeat removal: %v", err)
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 0 {
		t.Errorf("points = %d, want 0", got)
	}

	// Unknown messages are a benign no-op.
	if err := e.RecordReplyRemoval(ctx, "guild-1", "never-existed"); err != nil {
		t.Fatalf("removal of unknown reply: %v", err)
	}
}

func TestUnqualifiedReplyRemovalRevokesNothing(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.RecordReplyCreate(ctx, testReply("reply-1", 5)); err != nil {
		t.Fatalf("first reply: %v", err)
	}
	// Second reply lands inside the cooldown and stays inactive.
	if _, err := e.RecordReplyCreate(ctx, testReply("reply-2", 5)); err != nil {
		t.Fatalf("second reply: %v", err)
	}
	if err := e.RecordReplyRemoval(ctx, "guild-1", "reply-2"); err != nil {
		t.Fatalf("removal: %v", err)
	}
	if got := memberPoints(t, e, "guild-1", "bob"); got != 5 {
		t.Errorf("points = %d, want 5", got)
	}
}
