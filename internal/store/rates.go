package store

import (
	"context"
	"database/sql"
	"fmt"

	"profit-guard/internal/models"
)

// LatestExchangeRate retrieves the most recently fetched rate for a pair
func (s *Store) LatestExchangeRate(ctx context.Context, pair string) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	err := s.db.GetContext(ctx, &rate,
		"SELECT * FROM exchange_rates WHERE pair = $1 ORDER BY fetched_at DESC LIMIT 1", pair)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no exchange rate stored for pair: %s", pair)
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
