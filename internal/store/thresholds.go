package store

import (
	"context"

	"profit-guard/internal/models"
)

// ListActiveThresholds retrieves every active profit threshold row.
// Resolution over the rows happens in memory (service.ThresholdResolver),
// so callers get a consistent snapshot in one round-trip.
func (s *Store) ListActiveThresholds(ctx context.Context) ([]models.ProfitThreshold, error) {
	var rows []models.ProfitThreshold
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM profit_thresholds WHERE is_active = true ORDER BY updated_at DESC, id DESC")
	return rows, err
}
