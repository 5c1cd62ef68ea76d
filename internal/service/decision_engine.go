package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"profit-guard/internal/models"
	"profit-guard/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShadowWriter appends one audit entry
type ShadowWriter interface {
	AppendShadowLog(ctx context.Context, entry *models.ShadowLogEntry) error
}

// ThresholdSource resolves the applicable policy for a check
type ThresholdSource interface {
	Resolve(marketplace string, category *string) ResolvedThreshold
}

// RateSource serves the current exchange rate
type RateSource interface {
	Latest(ctx context.Context) decimal.Decimal
}

// CheckRequest is one profit check. CostUnknown marks a sale line whose
// cost price has not been sourced yet; the check runs with cost 0 and
// the shadow log records that the guard was bypassed.
type CheckRequest struct {
	OrderID      *int64           `json:"order_id,omitempty"`
	SaleLineID   *int64           `json:"sale_line_id,omitempty"`
	ListingID    *string          `json:"listing_id,omitempty"`
	SalePrice    decimal.Decimal  `json:"sale_price"`
	CostPrice    decimal.Decimal  `json:"cost_price"`
	CostUnknown  bool             `json:"cost_unknown,omitempty"`
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty"`
	Marketplace  string           `json:"marketplace"`
	Category     *string          `json:"category,omitempty"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
}

// CheckResult is the decision for one check. Callers gate on Allowed,
// not on the verdict label: a dry-run policy flags dangerous sales as
// hold but still allows them.
type CheckResult struct {
	Allowed     bool              `json:"allowed"`
	Verdict     string            `json:"verdict"`
	Dangerous   bool              `json:"dangerous"`
	Reason      string            `json:"reason,omitempty"`
	Calculation Calculation       `json:"calculation"`
	Threshold   ResolvedThreshold `json:"threshold"`
}

// DecisionEngine combines the threshold policy with the profit
// calculation and writes one shadow log entry per invocation.
type DecisionEngine struct {
	thresholds ThresholdSource
	rates      RateSource
	shadow     ShadowWriter
	logger     *zap.Logger
}

// NewDecisionEngine creates a decision engine
func NewDecisionEngine(thresholds ThresholdSource, rates RateSource, shadow ShadowWriter) *DecisionEngine {
	return &DecisionEngine{
		thresholds: thresholds,
		rates:      rates,
		shadow:     shadow,
		logger:     util.GetLogger(),
	}
}

// Check runs one profit decision. The shadow log write is attempted
// unconditionally, including when the check itself fails.
func (e *DecisionEngine) Check(ctx context.Context, req CheckRequest) (result *CheckResult, err error) {
	ctx, span := util.StartSpan(ctx, "DecisionEngine.Check")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ProfitCheckLatency.Observe(time.Since(start).Seconds())
		e.writeShadowLog(ctx, req, result, err, time.Since(start))
	}()

	threshold := e.thresholds.Resolve(req.Marketplace, req.Category)

	var exchangeRate decimal.Decimal
	if req.ExchangeRate != nil {
		exchangeRate = *req.ExchangeRate
	} else {
		exchangeRate = e.rates.Latest(ctx)
	}

	calc := Calculate(CalcInput{
		SalePrice:    req.SalePrice,
		CostPrice:    req.CostPrice,
		ShippingCost: req.ShippingCost,
		Marketplace:  req.Marketplace,
		ExchangeRate: exchangeRate,
	})

	rateBelow := calc.RateDefined && calc.ProfitRate.LessThan(threshold.MinProfitRate)
	amountBelow := calc.Profit.LessThan(threshold.MinProfitAmount)
	dangerous := rateBelow || amountBelow

	verdict := models.VerdictApprove
	if dangerous {
		if threshold.IsDryRun {
			verdict = models.VerdictHold
		} else {
			verdict = models.VerdictReject
		}
	}

	result = &CheckResult{
		Allowed:     threshold.IsDryRun || !dangerous,
		Verdict:     verdict,
		Dangerous:   dangerous,
		Reason:      buildReason(req, calc, threshold, rateBelow, amountBelow),
		Calculation: calc,
		Threshold:   threshold,
	}

	util.ProfitChecksTotal.WithLabelValues(verdict).Inc()

	if dangerous {
		e.logger.Warn("Dangerous sale detected",
			zap.String("marketplace", req.Marketplace),
			zap.String("verdict", verdict),
			zap.String("profit", calc.Profit.String()),
			zap.String("reason", result.Reason))
	}

	return result, nil
}

// buildReason describes why a sale was flagged; empty when safe
func buildReason(req CheckRequest, calc Calculation, threshold ResolvedThreshold, rateBelow, amountBelow bool) string {
	var parts []string
	if rateBelow {
		parts = append(parts, fmt.Sprintf("profit rate %s%% below minimum %s%%",
			calc.ProfitRate.String(), threshold.MinProfitRate.String()))
	}
	if amountBelow {
		parts = append(parts, fmt.Sprintf("profit %s below minimum %s",
			calc.Profit.String(), threshold.MinProfitAmount.String()))
	}
	if req.CostUnknown && len(parts) > 0 {
		parts = append(parts, "cost price unknown, checked with cost 0")
	}
	return strings.Join(parts, "; ")
}

// writeShadowLog persists the audit entry. Failures are logged and
// counted but never surfaced: a lost audit write must not mask the
// original outcome.
func (e *DecisionEngine) writeShadowLog(ctx context.Context, req CheckRequest, result *CheckResult, checkErr error, elapsed time.Duration) {
	input, _ := json.Marshal(req)

	entry := &models.ShadowLogEntry{
		Service:    "profit-guard",
		Operation:  "check_profit",
		Input:      input,
		DurationMS: elapsed.Milliseconds(),
	}

	switch {
	case checkErr != nil:
		reason := checkErr.Error()
		entry.Decision = models.VerdictHold
		entry.Reason = &reason
		entry.Output, _ = json.Marshal(map[string]string{"error": checkErr.Error()})
	default:
		entry.Decision = result.Verdict
		entry.IsDryRun = result.Threshold.IsDryRun
		if result.Reason != "" {
			reason := result.Reason
			entry.Reason = &reason
		}
		entry.Output, _ = json.Marshal(result)
	}

	if err := e.shadow.AppendShadowLog(ctx, entry); err != nil {
		util.ShadowLogFailuresTotal.Inc()
		e.logger.Error("Failed to write shadow log entry",
			zap.String("operation", entry.Operation),
			zap.String("decision", entry.Decision),
			zap.Error(err))
	}
}
