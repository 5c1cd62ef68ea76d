package service

import (
	"profit-guard/internal/models"

	"github.com/shopspring/decimal"
)

var (
	paymentFeeRate  = decimal.NewFromFloat(0.03)
	defaultShipping = decimal.NewFromInt(1500)
	defaultFeeRate  = decimal.NewFromFloat(0.15)

	marketplaceFeeRates = map[string]decimal.Decimal{
		models.MarketplaceEbay:    decimal.NewFromFloat(0.15),
		models.MarketplaceJoom:    decimal.NewFromFloat(0.15),
		models.MarketplaceShopify: decimal.NewFromFloat(0.129),
	}
)

// FeeRateFor returns the fixed platform fee rate for a marketplace
func FeeRateFor(marketplace string) decimal.Decimal {
	if rate, ok := marketplaceFeeRates[marketplace]; ok {
		return rate
	}
	return defaultFeeRate
}

// CalcInput are the resolved inputs of one profit computation.
// SalePrice is in the destination currency (USD); CostPrice and
// ShippingCost are in the source currency (JPY). ExchangeRate is
// source units per destination unit.
type CalcInput struct {
	SalePrice    decimal.Decimal
	CostPrice    decimal.Decimal
	ShippingCost *decimal.Decimal
	Marketplace  string
	ExchangeRate decimal.Decimal
}

// Calculation is the landed-profit breakdown, all amounts in the
// source currency and rounded to whole units. RateDefined is false
// when the cost price is zero: the profit rate would be unbounded,
// so it is reported as zero with the flag cleared instead of Inf.
type Calculation struct {
	SalePriceJPY decimal.Decimal `json:"sale_price_jpy"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	PaymentFee   decimal.Decimal `json:"payment_fee"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitRate   decimal.Decimal `json:"profit_rate"`
	RateDefined  bool            `json:"rate_defined"`
}

// Calculate converts a sale into a landed profit amount and rate.
// Pure and deterministic for identical inputs.
func Calculate(in CalcInput) Calculation {
	shipping := defaultShipping
	if in.ShippingCost != nil {
		shipping = *in.ShippingCost
	}

	saleJPY := in.SalePrice.Mul(in.ExchangeRate).Round(0)
	platformFee := saleJPY.Mul(FeeRateFor(in.Marketplace)).Round(0)
	paymentFee := saleJPY.Mul(paymentFeeRate).Round(0)
	profit := saleJPY.Sub(in.CostPrice).Sub(shipping).Sub(platformFee).Sub(paymentFee)

	calc := Calculation{
		SalePriceJPY: saleJPY,
		CostPrice:    in.CostPrice,
		ShippingCost: shipping,
		PlatformFee:  platformFee,
		PaymentFee:   paymentFee,
		ExchangeRate: in.ExchangeRate,
		Profit:       profit,
	}

	if !in.CostPrice.IsZero() {
		calc.ProfitRate = profit.Div(in.CostPrice).Mul(decimal.NewFromInt(100)).Round(1)
		calc.RateDefined = true
	}

	return calc
}
