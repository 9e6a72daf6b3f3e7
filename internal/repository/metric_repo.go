package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/db"
)

// MetricRepository owns the AlgorithmMetric periodic summary.
type MetricRepository struct {
	db *gorm.DB
}

func NewMetricRepository(database *gorm.DB) *MetricRepository {
	return &MetricRepository{db: database}
}

// Latest returns the most recent AlgorithmMetric row for userID, the
// desirability calculator's batch input. Returns
// gorm.ErrRecordNotFound when the user has never had a metric computed.
func (r *MetricRepository) Latest(ctx context.Context, userID uint64) (*db.AlgorithmMetric, error) {
	var m db.AlgorithmMetric
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("calculated_at DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// LatestForUsers batches Latest across many users in one query, returning
// a map keyed by userId. Users with no metric row are simply absent.
func (r *MetricRepository) LatestForUsers(ctx context.Context, userIDs []uint64) (map[uint64]db.AlgorithmMetric, error) {
	out := make(map[uint64]db.AlgorithmMetric, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []db.AlgorithmMetric
	if err := r.db.WithContext(ctx).
		Raw(`
			SELECT m.* FROM algorithm_metrics m
			INNER JOIN (
				SELECT user_id, MAX(calculated_at) AS calculated_at
				FROM algorithm_metrics
				WHERE user_id IN ?
				GROUP BY user_id
			) latest ON latest.user_id = m.user_id AND latest.calculated_at = m.calculated_at
		`, userIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}

// Insert appends a fresh AlgorithmMetric row.
func (r *MetricRepository) Insert(ctx context.Context, m *db.AlgorithmMetric) error {
	return r.db.WithContext(ctx).Create(m).Error
}
