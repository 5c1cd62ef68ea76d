package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Order represents one purchase on a destination marketplace
type Order struct {
	ID             int64           `db:"id" json:"id"`
	Marketplace    string          `db:"marketplace" json:"marketplace"`
	ExternalID     string          `db:"external_id" json:"external_id"`
	BuyerName      string          `db:"buyer_name" json:"buyer_name"`
	ShippingAddr   string          `db:"shipping_addr" json:"shipping_addr,omitempty"`
	Currency       string          `db:"currency" json:"currency"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status         string          `db:"status" json:"status"`
	WebhookEventID string          `db:"webhook_event_id" json:"webhook_event_id,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// SaleLine represents one item within an order. CostPrice is in the
// source currency (JPY) and may be unknown at order time.
type SaleLine struct {
	ID           int64            `db:"id" json:"id"`
	OrderID      int64            `db:"order_id" json:"order_id"`
	SKU          string           `db:"sku" json:"sku"`
	Title        string           `db:"title" json:"title"`
	Quantity     int              `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal  `db:"unit_price" json:"unit_price"`
	CostPrice    *decimal.Decimal `db:"cost_price" json:"cost_price,omitempty"`
	Category     *string          `db:"category" json:"category,omitempty"`
	SourceURL    *string          `db:"source_url" json:"source_url,omitempty"`
	ProfitAmount *decimal.Decimal `db:"profit_amount" json:"profit_amount,omitempty"`
	ProfitRate   *decimal.Decimal `db:"profit_rate" json:"profit_rate,omitempty"`
}

// ProfitThreshold is a policy row keyed by (marketplace, category).
// A NULL category applies to every category of the marketplace;
// marketplace ALL is the global default.
type ProfitThreshold struct {
	ID              int64           `db:"id" json:"id"`
	Marketplace     string          `db:"marketplace" json:"marketplace"`
	Category        *string         `db:"category" json:"category,omitempty"`
	MinProfitRate   decimal.Decimal `db:"min_profit_rate" json:"min_profit_rate"`
	MinProfitAmount decimal.Decimal `db:"min_profit_amount" json:"min_profit_amount"`
	AlertProfitRate decimal.Decimal `db:"alert_profit_rate" json:"alert_profit_rate"`
	IsDryRun        bool            `db:"is_dry_run" json:"is_dry_run"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// ShadowLogEntry is an append-only audit record of a profit decision.
// One entry is written per decision engine invocation, always.
type ShadowLogEntry struct {
	ID         int64     `db:"id" json:"id"`
	Service    string    `db:"service" json:"service"`
	Operation  string    `db:"operation" json:"operation"`
	Input      []byte    `db:"input" json:"input"`
	Output     []byte    `db:"output" json:"output"`
	Decision   string    `db:"decision" json:"decision"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	IsDryRun   bool      `db:"is_dry_run" json:"is_dry_run"`
	DurationMS int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// NotificationChannel is one configured delivery endpoint with its
// filtering rules and mutable health fields.
type NotificationChannel struct {
	ID           int64          `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Kind         string         `db:"kind" json:"kind"`
	WebhookURL   string         `db:"webhook_url" json:"webhook_url,omitempty"`
	Token        string         `db:"token" json:"-"`
	EmailTo      string         `db:"email_to" json:"email_to,omitempty"`
	EnabledTypes pq.StringArray `db:"enabled_types" json:"enabled_types"`
	MinSeverity  string         `db:"min_severity" json:"min_severity"`
	Marketplaces pq.StringArray `db:"marketplaces" json:"marketplaces"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	LastUsedAt   *time.Time     `db:"last_used_at" json:"last_used_at,omitempty"`
	LastError    *string        `db:"last_error" json:"last_error,omitempty"`
	ErrorCount   int            `db:"error_count" json:"error_count"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ExchangeRate is one fetched source->destination rate sample
type ExchangeRate struct {
	ID        int64           `db:"id" json:"id"`
	Pair      string          `db:"pair" json:"pair"`
	Rate      decimal.Decimal `db:"rate" json:"rate"`
	FetchedAt time.Time       `db:"fetched_at" json:"fetched_at"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusCancelled = "CANCELLED"
)

// Marketplaces
const (
	MarketplaceAll     = "ALL"
	MarketplaceEbay    = "EBAY"
	MarketplaceJoom    = "JOOM"
	MarketplaceShopify = "SHOPIFY"
)

// Decision verdicts
const (
	VerdictApprove = "approve"
	VerdictHold    = "hold"
	VerdictReject  = "reject"
)

// Notification channel kinds
const (
	ChannelKindSlack   = "SLACK"
	ChannelKindDiscord = "DISCORD"
	ChannelKindLine    = "LINE"
	ChannelKindEmail   = "EMAIL"
)

// PairUSDJPY is the exchange-rate pair used to land USD sale prices in JPY
const PairUSDJPY = "USDJPY"
