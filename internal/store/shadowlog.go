package store

import (
	"context"

	"profit-guard/internal/models"
)

// AppendShadowLog inserts one audit entry. Entries are append-only;
// there are no update or delete paths for this table.
func (s *Store) AppendShadowLog(ctx context.Context, entry *models.ShadowLogEntry) error {
	query := `
		INSERT INTO shadow_logs (service, operation, input, output, decision, reason, is_dry_run, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, entry, query,
		entry.Service, entry.Operation, entry.Input, entry.Output,
		entry.Decision, entry.Reason, entry.IsDryRun, entry.DurationMS)
}

// ListShadowLogs retrieves recent audit entries for an operation, newest first
func (s *Store) ListShadowLogs(ctx context.Context, operation string, limit int) ([]models.ShadowLogEntry, error) {
	var entries []models.ShadowLogEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM shadow_logs WHERE operation = $1 ORDER BY created_at DESC LIMIT $2",
		operation, limit)
	return entries, err
}
