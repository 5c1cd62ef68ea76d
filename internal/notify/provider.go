package notify

import (
	"context"

	"profit-guard/config"
	"profit-guard/internal/models"
)

// ChannelProvider returns the channels eligible for dispatch
type ChannelProvider interface {
	ActiveChannels(ctx context.Context) ([]models.NotificationChannel, error)
}

// ChannelLister is the store-side read the primary provider wraps
type ChannelLister interface {
	ListActiveChannels(ctx context.Context) ([]models.NotificationChannel, error)
}

// StoreProvider serves operator-configured channels from the store
type StoreProvider struct {
	store ChannelLister
}

func NewStoreProvider(store ChannelLister) *StoreProvider {
	return &StoreProvider{store: store}
}

func (p *StoreProvider) ActiveChannels(ctx context.Context) ([]models.NotificationChannel, error) {
	return p.store.ListActiveChannels(ctx)
}

// ConfigProvider serves the fixed process-wide fallback channels from
// deployment configuration. Selected only when the store holds zero
// channels. Fallback channels carry ID 0 and skip health recording.
type ConfigProvider struct {
	channels []models.NotificationChannel
}

func NewConfigProvider(cfg config.NotifyConfig) *ConfigProvider {
	allTypes := []string{EventOrderChecked, EventProfitAlert, EventSystemError, EventTest}

	var channels []models.NotificationChannel
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, models.NotificationChannel{
			Name:         "fallback-slack",
			Kind:         models.ChannelKindSlack,
			WebhookURL:   cfg.SlackWebhookURL,
			EnabledTypes: allTypes,
			MinSeverity:  SeverityInfo,
			IsActive:     true,
		})
	}
	if cfg.DiscordWebhookURL != "" {
		channels = append(channels, models.NotificationChannel{
			Name:         "fallback-discord",
			Kind:         models.ChannelKindDiscord,
			WebhookURL:   cfg.DiscordWebhookURL,
			EnabledTypes: allTypes,
			MinSeverity:  SeverityInfo,
			IsActive:     true,
		})
	}
	if cfg.LineToken != "" {
		channels = append(channels, models.NotificationChannel{
			Name:         "fallback-line",
			Kind:         models.ChannelKindLine,
			Token:        cfg.LineToken,
			EnabledTypes: allTypes,
			MinSeverity:  SeverityInfo,
			IsActive:     true,
		})
	}
	if cfg.SMTPHost != "" && cfg.EmailTo != "" {
		channels = append(channels, models.NotificationChannel{
			Name:         "fallback-email",
			Kind:         models.ChannelKindEmail,
			EmailTo:      cfg.EmailTo,
			EnabledTypes: allTypes,
			MinSeverity:  SeverityWarning,
			IsActive:     true,
		})
	}

	return &ConfigProvider{channels: channels}
}

func (p *ConfigProvider) ActiveChannels(ctx context.Context) ([]models.NotificationChannel, error) {
	return p.channels, nil
}
