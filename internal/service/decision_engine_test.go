package service

import (
	"context"
	"encoding/json"
	"testing"

	"profit-guard/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeThresholds struct {
	threshold ResolvedThreshold
}

func (f *fakeThresholds) Resolve(marketplace string, category *string) ResolvedThreshold {
	return f.threshold
}

type fakeRates struct {
	rate decimal.Decimal
}

func (f *fakeRates) Latest(ctx context.Context) decimal.Decimal {
	return f.rate
}

type fakeShadow struct {
	entries []*models.ShadowLogEntry
	err     error
}

func (f *fakeShadow) AppendShadowLog(ctx context.Context, entry *models.ShadowLogEntry) error {
	f.entries = append(f.entries, entry)
	return f.err
}

func enforcedThreshold() ResolvedThreshold {
	th := DefaultThreshold()
	th.IsDryRun = false
	th.Source = ThresholdSourceMarketplace
	return th
}

func newTestEngine(th ResolvedThreshold, shadow *fakeShadow) *DecisionEngine {
	return NewDecisionEngine(
		&fakeThresholds{threshold: th},
		&fakeRates{rate: decimal.NewFromInt(150)},
		shadow,
	)
}

func TestCheckApprovesProfitableSale(t *testing.T) {
	shadow := &fakeShadow{}
	engine := newTestEngine(enforcedThreshold(), shadow)

	res, err := engine.Check(context.Background(), CheckRequest{
		SalePrice:   decimal.NewFromInt(100),
		CostPrice:   decimal.NewFromInt(5000),
		Marketplace: models.MarketplaceJoom,
	})
	require.NoError(t, err)

	assert.True(t, res.Allowed)
	assert.False(t, res.Dangerous)
	assert.Equal(t, models.VerdictApprove, res.Verdict)
	assert.Empty(t, res.Reason)
	assert.Equal(t, "5800", res.Calculation.Profit.String())
}

func TestCheckRejectsWhenEnforced(t *testing.T) {
	shadow := &fakeShadow{}
	engine := newTestEngine(enforcedThreshold(), shadow)

	res, err := engine.Check(context.Background(), CheckRequest{
		SalePrice:   decimal.NewFromInt(100),
		CostPrice:   decimal.NewFromInt(14000),
		Marketplace: models.MarketplaceJoom,
	})
	require.NoError(t, err)

	assert.False(t, res.Allowed)
	assert.True(t, res.Dangerous)
	assert.Equal(t, models.VerdictReject, res.Verdict)
	assert.NotEmpty(t, res.Reason)
}

func TestCheckDryRunHoldsButAllows(t *testing.T) {
	th := enforcedThreshold()
	th.IsDryRun = true
	shadow := &fakeShadow{}
	engine := newTestEngine(th, shadow)

	res, err := engine.Check(context.Background(), CheckRequest{
		SalePrice:   decimal.NewFromInt(100),
		CostPrice:   decimal.NewFromInt(14000),
		Marketplace: models.MarketplaceJoom,
	})
	require.NoError(t, err)

	assert.True(t, res.Allowed, "dry-run must never block")
	assert.True(t, res.Dangerous)
	assert.Equal(t, models.VerdictHold, res.Verdict)
}

func TestCheckWritesExactlyOneShadowEntry(t *testing.T) {
	shadow := &fakeShadow{}
	engine := newTestEngine(enforcedThreshold(), shadow)

	_, err := engine.Check(context.Background(), CheckRequest{
		SalePrice:   decimal.NewFromInt(100),
		CostPrice:   decimal.NewFromInt(5000),
		Marketplace: models.MarketplaceJoom,
	})
	require.NoError(t, err)
	require.Len(t, shadow.entries, 1)

	entry := shadow.entries[0]
	assert.Equal(t, "check_profit", entry.Operation)
	assert.Equal(t, models.VerdictApprove, entry.Decision)
	assert.Nil(t, entry.Reason)

	var input CheckRequest
	require.NoError(t, json.Unmarshal(entry.Input, &input))
	assert.True(t, input.SalePrice.Equal(decimal.NewFromInt(100)))

	var output CheckResult
	require.NoError(t, json.Unmarshal(entry.Output, &output))
	assert.True(t, output.Allowed)
}

func TestCheckShadowEntryRecordsDangerousReason(t *testing.T) {
	shadow := &fakeShadow{}
	engine := newTestEngine(enforcedThreshold(), shadow)

	_, err := engine.Check(context.Background(), CheckRequest{
		SalePrice:   decimal.NewFromInt(100),
		CostPrice:   decimal.NewFromInt(14000),
		Marketplace: models.MarketplaceJoom,
	})
	require.NoError(t, err)
	require.Len(t, shadow.entries, 1)

	entry := shadow.entries[0]
	assert.Equal(t, models.VerdictReject, entry.Decision)
	require.NotNil(t, entry.Reason)
	assert.Contains(t, *entry.Reason, "below minimum")
}

func TestCheckShadowWriteFailureDoesNotFailCheck(t *testing.T) {
	shadow := &fakeShadow{err: assert.AnError}
	engine := newTestEngine(enforcedThreshold(), shadow)

	res, err := engine.Check(context.Background(), CheckRequest{
		SalePrice:   decimal.NewFromInt(100),
		CostPrice:   decimal.NewFromInt(5000),
		Marketplace: models.MarketplaceJoom,
	})

	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Len(t, shadow.entries, 1, "the write must still be attempted")
}

func TestCheckUnknownCostNeverDangerousByRate(t *testing.T) {
	shadow := &fakeShadow{}
	engine := newTestEngine(enforcedThreshold(), shadow)

	res, err := engine.Check(context.Background(), CheckRequest{
		SalePrice:   decimal.NewFromInt(100),
		CostPrice:   decimal.Zero,
		CostUnknown: true,
		Marketplace: models.MarketplaceJoom,
	})
	require.NoError(t, err)

	// Cost 0 leaves the rate undefined; the amount floor still applies.
	assert.False(t, res.Calculation.RateDefined)
	assert.False(t, res.Dangerous)
	assert.True(t, res.Allowed)

	// The output snapshot must stay JSON-clean (no Inf/NaN)
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Inf")
}

func TestCheckUsesExplicitExchangeRate(t *testing.T) {
	shadow := &fakeShadow{}
	engine := newTestEngine(enforcedThreshold(), shadow)

	rate := decimal.NewFromInt(100)
	res, err := engine.Check(context.Background(), CheckRequest{
		SalePrice:    decimal.NewFromInt(100),
		CostPrice:    decimal.NewFromInt(5000),
		Marketplace:  models.MarketplaceJoom,
		ExchangeRate: &rate,
	})
	require.NoError(t, err)

	assert.Equal(t, "10000", res.Calculation.SalePriceJPY.String())
}

func TestCheckIdempotentForIdenticalInputs(t *testing.T) {
	shadow := &fakeShadow{}
	engine := newTestEngine(enforcedThreshold(), shadow)

	req := CheckRequest{
		SalePrice:   decimal.RequireFromString("123.45"),
		CostPrice:   decimal.NewFromInt(8000),
		Marketplace: models.MarketplaceEbay,
	}

	first, err := engine.Check(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Check(context.Background(), req)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first.Calculation)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Calculation)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}
