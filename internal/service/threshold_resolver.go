package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"profit-guard/internal/models"
	"profit-guard/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResolvedThreshold is the fully populated policy applied to one check
type ResolvedThreshold struct {
	MinProfitRate   decimal.Decimal `json:"min_profit_rate"`
	MinProfitAmount decimal.Decimal `json:"min_profit_amount"`
	AlertProfitRate decimal.Decimal `json:"alert_profit_rate"`
	IsDryRun        bool            `json:"is_dry_run"`
	Source          string          `json:"source"`
	ThresholdID     *int64          `json:"threshold_id,omitempty"`
}

// Threshold sources, most specific first
const (
	ThresholdSourceCategory    = "category"
	ThresholdSourceMarketplace = "marketplace"
	ThresholdSourceGlobal      = "global"
	ThresholdSourceDefault     = "default"
)

// DefaultThreshold returns the hard-coded fallback policy used when no
// threshold row matches at all. Dry-run by default: an unconfigured
// marketplace never blocks fulfillment.
func DefaultThreshold() ResolvedThreshold {
	return ResolvedThreshold{
		MinProfitRate:   decimal.NewFromInt(10),
		MinProfitAmount: decimal.NewFromInt(500),
		AlertProfitRate: decimal.NewFromInt(15),
		IsDryRun:        true,
		Source:          ThresholdSourceDefault,
	}
}

// ThresholdStore lists the active policy rows
type ThresholdStore interface {
	ListActiveThresholds(ctx context.Context) ([]models.ProfitThreshold, error)
}

// ThresholdResolver keeps an in-memory snapshot of the active threshold
// rows, refreshed on a bounded interval, and resolves the applicable
// policy for a (marketplace, category) pair without a store round-trip.
type ThresholdResolver struct {
	store    ThresholdStore
	interval time.Duration
	logger   *zap.Logger

	mu   sync.RWMutex
	rows []models.ProfitThreshold
}

// NewThresholdResolver creates a resolver with an empty snapshot.
// Call Refresh once before serving traffic.
func NewThresholdResolver(store ThresholdStore, interval time.Duration) *ThresholdResolver {
	return &ThresholdResolver{
		store:    store,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Refresh reloads the snapshot from the store
func (r *ThresholdResolver) Refresh(ctx context.Context) error {
	rows, err := r.store.ListActiveThresholds(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.rows = rows
	r.mu.Unlock()

	r.logger.Debug("Threshold snapshot refreshed", zap.Int("rows", len(rows)))
	return nil
}

// Start refreshes the snapshot on the configured interval until the
// context is cancelled. A failed refresh keeps the previous snapshot.
func (r *ThresholdResolver) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error("Failed to refresh threshold snapshot", zap.Error(err))
			}
		}
	}
}

// Resolve returns the applicable policy for a (marketplace, category) pair
func (r *ThresholdResolver) Resolve(marketplace string, category *string) ResolvedThreshold {
	r.mu.RLock()
	rows := r.rows
	r.mu.RUnlock()

	return ResolveThreshold(rows, marketplace, category)
}

// ResolveThreshold is the pure specificity resolution over a row set:
// exact (marketplace, category) beats (marketplace, NULL) beats
// (ALL, NULL). Rows tied in specificity are broken by updated_at DESC
// then id DESC, so resolution is total and never errors on ambiguity.
func ResolveThreshold(rows []models.ProfitThreshold, marketplace string, category *string) ResolvedThreshold {
	var exact, wide, global []models.ProfitThreshold

	for _, row := range rows {
		if !row.IsActive {
			continue
		}
		switch {
		case row.Marketplace == marketplace && row.Category != nil && category != nil && *row.Category == *category:
			exact = append(exact, row)
		case row.Marketplace == marketplace && row.Category == nil:
			wide = append(wide, row)
		case row.Marketplace == models.MarketplaceAll && row.Category == nil:
			global = append(global, row)
		}
	}

	if row, ok := mostRecent(exact); ok {
		return fromRow(row, ThresholdSourceCategory)
	}
	if row, ok := mostRecent(wide); ok {
		return fromRow(row, ThresholdSourceMarketplace)
	}
	if row, ok := mostRecent(global); ok {
		return fromRow(row, ThresholdSourceGlobal)
	}
	return DefaultThreshold()
}

func mostRecent(rows []models.ProfitThreshold) (models.ProfitThreshold, bool) {
	if len(rows) == 0 {
		return models.ProfitThreshold{}, false
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows[0], true
}

func fromRow(row models.ProfitThreshold, source string) ResolvedThreshold {
	id := row.ID
	return ResolvedThreshold{
		MinProfitRate:   row.MinProfitRate,
		MinProfitAmount: row.MinProfitAmount,
		AlertProfitRate: row.AlertProfitRate,
		IsDryRun:        row.IsDryRun,
		Source:          source,
		ThresholdID:     &id,
	}
}
