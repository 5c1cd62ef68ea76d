package store

import (
	"context"

	"profit-guard/internal/models"
)

// ListActiveChannels retrieves every active notification channel
func (s *Store) ListActiveChannels(ctx context.Context) ([]models.NotificationChannel, error) {
	var channels []models.NotificationChannel
	err := s.db.SelectContext(ctx, &channels,
		"SELECT * FROM notification_channels WHERE is_active = true ORDER BY id")
	return channels, err
}

// RecordChannelSuccess resets a channel's health fields after a delivery
func (s *Store) RecordChannelSuccess(ctx context.Context, channelID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_channels
		SET last_used_at = NOW(), error_count = 0, last_error = NULL, updated_at = NOW()
		WHERE id = $1`, channelID)
	return err
}

// RecordChannelFailure increments a channel's error count and stores the error
func (s *Store) RecordChannelFailure(ctx context.Context, channelID int64, sendErr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notification_channels
		SET error_count = error_count + 1, last_error = $1, updated_at = NOW()
		WHERE id = $2`, sendErr, channelID)
	return err
}
