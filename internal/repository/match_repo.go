package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchengine/internal/db"
)

// MatchRepository owns all reads/writes of the Match entity.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// UpsertMutualMatch canonicalizes (a, b), then inserts or no-ops a Match
// row — duplicate submissions must be idempotent, which this relies on
// GORM's OnConflict upsert clause to enforce at the database level.
func (r *MatchRepository) UpsertMutualMatch(ctx context.Context, a, b uint64, compatibilityScore *float64, source string) error {
	u1, u2 := db.CanonicalPair(a, b)
	m := db.Match{
		User1ID:     u1,
		User2ID:     u2,
		MatchSource: source,
		IsActive:    true,
	}
	if compatibilityScore != nil {
		m.CompatibilityScore = *compatibilityScore
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(&m).Error
}

// DeleteAllForUser removes every Match row where either side equals
// userID, the match-deletion internal endpoint. Returns the count
// deleted.
func (r *MatchRepository) DeleteAllForUser(ctx context.Context, userID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Delete(&db.Match{})
	return res.RowsAffected, res.Error
}

// Unmatch marks a match inactive, recording who initiated it and why.
func (r *MatchRepository) Unmatch(ctx context.Context, a, b, byUserID uint64, reason string) error {
	u1, u2 := db.CanonicalPair(a, b)
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Updates(map[string]interface{}{
			"is_active":           false,
			"unmatched_at":        now,
			"unmatched_by_user_id": byUserID,
			"unmatch_reason":      reason,
		}).Error
}

// Stats is the match-statistics endpoint's output shape.
type Stats struct {
	TotalMatches              int64
	ActiveMatches             int64
	AverageCompatibilityScore float64
	LastMatchAt               *time.Time
	TopReasons                []string
}

const topReasonsLimit = 3

// StatsForUser aggregates match statistics in a single query plus a
// second query ranking match_source by frequency for TopReasons. A
// cache layer sits above this at the engine level, not here.
func (r *MatchRepository) StatsForUser(ctx context.Context, userID uint64) (Stats, error) {
	var out Stats
	row := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Select(`
			COUNT(*) AS total_matches,
			SUM(CASE WHEN is_active THEN 1 ELSE 0 END) AS active_matches,
			AVG(compatibility_score) AS average_compatibility_score,
			MAX(created_at) AS last_match_at
		`).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Row()

	var avg *float64
	var last *time.Time
	if err := row.Scan(&out.TotalMatches, &out.ActiveMatches, &avg, &last); err != nil {
		return Stats{}, err
	}
	if avg != nil {
		out.AverageCompatibilityScore = *avg
	}
	out.LastMatchAt = last

	reasons, err := r.topReasonsForUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	out.TopReasons = reasons

	return out, nil
}

// topReasonsForUser ranks this user's non-empty match_source values by
// frequency, most common first, capped at topReasonsLimit.
func (r *MatchRepository) topReasonsForUser(ctx context.Context, userID uint64) ([]string, error) {
	var reasons []string
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Select("match_source").
		Where("(user1_id = ? OR user2_id = ?) AND match_source <> ''", userID, userID).
		Group("match_source").
		Order("COUNT(*) DESC").
		Limit(topReasonsLimit).
		Pluck("match_source", &reasons).Error
	if err != nil {
		return nil, err
	}
	return reasons, nil
}
