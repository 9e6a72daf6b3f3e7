package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/db"
)

// ProfileRepository is the candidate store's entry point for everything
// keyed off Profile. Every read used by the filter pipeline and scoring
// strategies goes through here. The filter pipeline starts from Query,
// which hands back a *gorm.DB query rather than a slice so filters push
// down into the store; Get, GetMany and the id-page helpers return
// loaded rows or ids.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Query returns a fresh, no-tracking base query over active-store-shaped
// profiles for ctx. No-tracking keeps read paths from accidentally
// holding write handles open.
func (r *ProfileRepository) Query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Session(&gorm.Session{}).Table("profiles")
}

// Get loads a single profile by userId. Returns gorm.ErrRecordNotFound
// (callers classify this into KindNotFound) when absent or
// inactive-and-excluded by the caller's own filter.
func (r *ProfileRepository) Get(ctx context.Context, userID uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMany loads profiles for a batch of ids, preserving no particular
// order; callers that need rank order re-sort client-side using the ids
// they already have (e.g. from a PrecomputedScore read).
func (r *ProfileRepository) GetMany(ctx context.Context, userIDs []uint64) ([]db.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateLastActive bumps last_active_at for an existing profile. Unknown
// users are silently ignored; the bool reports whether a row was
// updated.
func (r *ProfileRepository) UpdateLastActive(ctx context.Context, userID uint64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Update("last_active_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateLastActiveBatch bumps last_active_at for every id in ids with one
// UPDATE inside a single transaction and reports how many existing
// profiles were touched out of the total requested.
func (r *ProfileRepository) UpdateLastActiveBatch(ctx context.Context, ids []uint64, at time.Time) (updated, total int, err error) {
	total = len(ids)
	if total == 0 {
		return 0, 0, nil
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.Profile{}).Where("user_id IN ?", ids).Update("last_active_at", at)
		if res.Error != nil {
			return res.Error
		}
		updated = int(res.RowsAffected)
		return nil
	})
	return updated, total, err
}

// UpdateDesirability persists a recalculated desirability score.
func (r *ProfileRepository) UpdateDesirability(ctx context.Context, userID uint64, score float64) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Update("desirability_score", score).Error
}

// ActiveIDsPage streams active user ids in stable userId order, batchSize
// at a time, for the daily-pick generator's "enumerate active user ids"
// step. Returning a plain slice page instead of a callback keeps
// the generator's adaptive-batching loop simple to drive and to test.
func (r *ProfileRepository) ActiveIDsPage(ctx context.Context, afterUserID uint64, batchSize int) ([]uint64, error) {
	var ids []uint64
	q := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("is_active = ?", true).
		Order("user_id ASC").
		Limit(batchSize)
	if afterUserID > 0 {
		q = q.Where("user_id > ?", afterUserID)
	}
	if err := q.Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountActive returns the number of active profiles, the population
// figure the Auto strategy resolver thresholds against.
func (r *ProfileRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Profile{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

// SoftDelete flips is_active=false, the account-deletion cascade's first
// step.
func (r *ProfileRepository) SoftDelete(ctx context.Context, userID uint64) error {
	res := r.db.WithContext(ctx).Model(&db.Profile{}).Where("user_id = ?", userID).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("soft delete: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// StaleFirstPage selects up to limit candidate ids for the refresher to
// work through next, ordered by staleness: profiles with no valid score
// row first, then oldest calculated_at, tie-broken by userId. afterUserID
// resumes the cursor so a long-running cycle scans forward instead of
// repeating work within the same pass.
//
// Implemented as a left-outer join against the freshest valid score per
// user.
func (r *ProfileRepository) StaleFirstPage(ctx context.Context, onlyActive bool, afterUserID uint64, limit int) ([]uint64, error) {
	tx := r.db.WithContext(ctx).
		Table("profiles p").
		Select("p.user_id").
		Joins(`LEFT JOIN (
			SELECT user_id, MAX(calculated_at) AS calculated_at
			FROM precomputed_scores
			WHERE is_valid = true
			GROUP BY user_id
		) s ON s.user_id = p.user_id`)

	if onlyActive {
		tx = tx.Where("p.is_active = ?", true)
	}
	if afterUserID > 0 {
		tx = tx.Where("p.user_id > ?", afterUserID)
	}

	tx = tx.Order("(s.calculated_at IS NULL) DESC, s.calculated_at ASC, p.user_id ASC").Limit(limit)

	var ids []uint64
	if err := tx.Pluck("p.user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
