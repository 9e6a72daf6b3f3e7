package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/db"
)

// InteractionRepository owns the append-only UserInteraction log.
type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// Record appends a swipe decision. Never used to exclude candidates —
// that list comes from the external swipe service — only to feed
// desirability and health metrics.
func (r *InteractionRepository) Record(ctx context.Context, userID, targetID uint64, typ db.InteractionType) error {
	return r.db.WithContext(ctx).Create(&db.UserInteraction{
		UserID:       userID,
		TargetUserID: targetID,
		Type:         typ,
	}).Error
}

// CountSince returns (swipesReceived, likesReceived) for targetID over
// the window [since, now) — a live alternative to AlgorithmMetric when a
// fresher count is needed than the last periodic summary.
func (r *InteractionRepository) CountSince(ctx context.Context, targetID uint64, since time.Time) (swipes, likes int64, err error) {
	if err = r.db.WithContext(ctx).
		Model(&db.UserInteraction{}).
		Where("target_user_id = ? AND created_at >= ?", targetID, since).
		Count(&swipes).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.WithContext(ctx).
		Model(&db.UserInteraction{}).
		Where("target_user_id = ? AND created_at >= ? AND type = ?", targetID, since, db.InteractionLike).
		Count(&likes).Error; err != nil {
		return 0, 0, err
	}
	return swipes, likes, nil
}
