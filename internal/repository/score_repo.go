package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchengine/internal/db"
)

// ScoreRepository owns the PrecomputedScore cache table.
type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(database *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: database}
}

// GetFresh returns a valid, not-yet-expired row for (userID, targetID),
// the compatibility scorer's read-through check.
func (r *ScoreRepository) GetFresh(ctx context.Context, userID, targetID uint64, ttl time.Duration) (*db.PrecomputedScore, error) {
	var row db.PrecomputedScore
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_user_id = ? AND is_valid = ? AND calculated_at > ?",
			userID, targetID, true, time.Now().Add(-ttl)).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes through a freshly computed score, overwriting any prior
// row for the pair and marking it valid.
func (r *ScoreRepository) Upsert(ctx context.Context, row *db.PrecomputedScore) error {
	row.CalculatedAt = time.Now().UTC()
	row.IsValid = true
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "target_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"overall_score", "location_score", "age_score", "interests_score",
				"education_score", "lifestyle_score", "activity_score",
				"calculated_at", "is_valid",
			}),
		}).
		Create(row).Error
}

// UpsertBatch writes a batch of rows inside a single transaction, the
// refresher's "save once per user" discipline generalized to "save once
// per batch" for bulk callers.
func (r *ScoreRepository) UpsertBatch(ctx context.Context, rows []db.PrecomputedScore) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range rows {
		rows[i].CalculatedAt = now
		rows[i].IsValid = true
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "target_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"overall_score", "location_score", "age_score", "interests_score",
				"education_score", "lifestyle_score", "activity_score",
				"calculated_at", "is_valid",
			}),
		}).CreateInBatches(rows, 100).Error
	})
}

// TopValid returns the `limit` highest-scoring valid, unexpired rows for
// userID ordered by overall_score desc — the Pre-computed strategy's
// primary read.
func (r *ScoreRepository) TopValid(ctx context.Context, userID uint64, ttl time.Duration, limit int) ([]db.PrecomputedScore, error) {
	var rows []db.PrecomputedScore
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_valid = ? AND calculated_at > ?", userID, true, time.Now().Add(-ttl)).
		Order("overall_score DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Invalidate marks every row touching targetID (on either side) invalid,
// the scorer's cache-invalidation rule when a new swipe is recorded
// involving that user.
func (r *ScoreRepository) Invalidate(ctx context.Context, targetID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.PrecomputedScore{}).
		Where("user_id = ? OR target_user_id = ?", targetID, targetID).
		Update("is_valid", false).Error
}
