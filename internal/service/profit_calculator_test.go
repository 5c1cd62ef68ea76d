package service

import (
	"testing"

	"profit-guard/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateJoomSale(t *testing.T) {
	calc := Calculate(CalcInput{
		SalePrice:    decimal.NewFromInt(100),
		CostPrice:    decimal.NewFromInt(5000),
		Marketplace:  models.MarketplaceJoom,
		ExchangeRate: decimal.NewFromInt(150),
	})

	// $100 at 150 JPY/USD lands at 15000 JPY; 15% platform fee and 3%
	// payment fee come off the landed amount, shipping defaults to 1500.
	assert.Equal(t, "15000", calc.SalePriceJPY.String())
	assert.Equal(t, "2250", calc.PlatformFee.String())
	assert.Equal(t, "450", calc.PaymentFee.String())
	assert.Equal(t, "1500", calc.ShippingCost.String())
	assert.Equal(t, "5800", calc.Profit.String())
	assert.True(t, calc.RateDefined)
	assert.Equal(t, "116", calc.ProfitRate.String())
}

func TestCalculateNegativeProfit(t *testing.T) {
	calc := Calculate(CalcInput{
		SalePrice:    decimal.NewFromInt(100),
		CostPrice:    decimal.NewFromInt(14000),
		Marketplace:  models.MarketplaceJoom,
		ExchangeRate: decimal.NewFromInt(150),
	})

	assert.Equal(t, "-3200", calc.Profit.String())
	assert.True(t, calc.RateDefined)
	assert.Equal(t, "-22.9", calc.ProfitRate.String())
}

func TestCalculateZeroCostPrice(t *testing.T) {
	calc := Calculate(CalcInput{
		SalePrice:    decimal.NewFromInt(100),
		CostPrice:    decimal.Zero,
		Marketplace:  models.MarketplaceEbay,
		ExchangeRate: decimal.NewFromInt(150),
	})

	// Division by zero cost must surface as an undefined rate, not Inf
	assert.False(t, calc.RateDefined)
	assert.True(t, calc.ProfitRate.IsZero())
	assert.Equal(t, "10800", calc.Profit.String())
}

func TestCalculateExplicitShipping(t *testing.T) {
	shipping := decimal.NewFromInt(800)
	calc := Calculate(CalcInput{
		SalePrice:    decimal.NewFromInt(100),
		CostPrice:    decimal.NewFromInt(5000),
		ShippingCost: &shipping,
		Marketplace:  models.MarketplaceJoom,
		ExchangeRate: decimal.NewFromInt(150),
	})

	assert.Equal(t, "800", calc.ShippingCost.String())
	assert.Equal(t, "6500", calc.Profit.String())
}

func TestCalculateShopifyFeeRate(t *testing.T) {
	calc := Calculate(CalcInput{
		SalePrice:    decimal.NewFromInt(100),
		CostPrice:    decimal.NewFromInt(5000),
		Marketplace:  models.MarketplaceShopify,
		ExchangeRate: decimal.NewFromInt(150),
	})

	// 15000 * 0.129 = 1935
	assert.Equal(t, "1935", calc.PlatformFee.String())
}

func TestCalculateUnknownMarketplaceUsesDefaultFee(t *testing.T) {
	assert.Equal(t, "0.15", FeeRateFor("MERCARI").String())
}

func TestCalculateDeterministic(t *testing.T) {
	in := CalcInput{
		SalePrice:    decimal.RequireFromString("99.99"),
		CostPrice:    decimal.NewFromInt(7321),
		Marketplace:  models.MarketplaceEbay,
		ExchangeRate: decimal.RequireFromString("149.37"),
	}

	first := Calculate(in)
	second := Calculate(in)

	assert.Equal(t, first, second)
	assert.True(t, first.Profit.Equal(second.Profit))
	assert.True(t, first.ProfitRate.Equal(second.ProfitRate))
}
