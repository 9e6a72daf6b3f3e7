package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchengine/internal/db"
)

// DailyPickRepository owns the DailyPick materialized table.
type DailyPickRepository struct {
	db *gorm.DB
}

func NewDailyPickRepository(database *gorm.DB) *DailyPickRepository {
	return &DailyPickRepository{db: database}
}

// DeleteExpired removes rows whose expiresAt has passed — the daily-pick
// generator's first step each run.
func (r *DailyPickRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&db.DailyPick{})
	return res.RowsAffected, res.Error
}

// InsertBatch upserts picks keyed on (userId, candidateUserId): a row for
// an existing pair overwrites it, and picks for candidates not in rows
// are left in place. rank must already be populated 1..N by the caller.
func (r *DailyPickRepository) InsertBatch(ctx context.Context, rows []db.DailyPick) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "candidate_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"score", "rank", "generated_at", "expires_at", "seen", "acted",
			}),
		}).
		Create(&rows).Error
}

// PendingForUser returns unexpired, not-yet-acted picks for userID,
// ordered by rank ascending, up to limit — the Daily-pick strategy's
// primary read path.
func (r *DailyPickRepository) PendingForUser(ctx context.Context, userID uint64, now time.Time, limit int) ([]db.DailyPick, error) {
	var rows []db.DailyPick
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ? AND acted = ?", userID, now, false).
		Order("rank ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CountUnseenToday returns the number of unexpired, unseen, not-yet-acted
// picks for userID — used to compute suggestionsRemaining/queueExhausted.
func (r *DailyPickRepository) CountUnseenToday(ctx context.Context, userID uint64, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.DailyPick{}).
		Where("user_id = ? AND expires_at > ? AND acted = ? AND seen = ?", userID, now, false, false).
		Count(&count).Error
	return count, err
}

// MarkSeen flips seen=true for exactly the rows served to the caller.
func (r *DailyPickRepository) MarkSeen(ctx context.Context, userID uint64, candidateIDs []uint64) error {
	if len(candidateIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.DailyPick{}).
		Where("user_id = ? AND candidate_user_id IN ?", userID, candidateIDs).
		Update("seen", true).Error
}

// MarkActed flips acted=true when a like/pass event lands on a pick.
func (r *DailyPickRepository) MarkActed(ctx context.Context, userID, candidateID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.DailyPick{}).
		Where("user_id = ? AND candidate_user_id = ?", userID, candidateID).
		Update("acted", true).Error
}
