package notify

import (
	"context"
	"net/http"
	"time"

	"profit-guard/config"
	"profit-guard/internal/models"
	"profit-guard/internal/util"

	"go.uber.org/zap"
)

// HealthRecorder writes channel health back after each send attempt
type HealthRecorder interface {
	RecordChannelSuccess(ctx context.Context, channelID int64) error
	RecordChannelFailure(ctx context.Context, channelID int64, sendErr string) error
}

// Dispatcher fans one event out to every eligible channel. A failed
// channel is recorded and skipped; it never blocks other channels and
// never fails the caller.
type Dispatcher struct {
	primary  ChannelProvider
	fallback ChannelProvider
	health   HealthRecorder
	senders  map[string]Sender
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDispatcher wires the channel providers and per-kind senders.
// fallback and health may be nil.
func NewDispatcher(primary, fallback ChannelProvider, health HealthRecorder, cfg config.NotifyConfig) *Dispatcher {
	client := &http.Client{Timeout: cfg.SendTimeout}

	return &Dispatcher{
		primary:  primary,
		fallback: fallback,
		health:   health,
		timeout:  cfg.SendTimeout,
		logger:   util.GetLogger(),
		senders: map[string]Sender{
			models.ChannelKindSlack:   NewSlackSender(client),
			models.ChannelKindDiscord: NewDiscordSender(client),
			models.ChannelKindLine:    NewLineSender(client),
			models.ChannelKindEmail:   NewEmailSender(cfg),
		},
	}
}

// Send delivers the event to all matching channels sequentially and
// returns one result per attempted channel.
func (d *Dispatcher) Send(ctx context.Context, ev Event) []SendResult {
	ctx, span := util.StartSpan(ctx, "Dispatcher.Send")
	defer span.End()

	channels, err := d.primary.ActiveChannels(ctx)
	if err != nil {
		d.logger.Error("Failed to load notification channels", zap.Error(err))
		return nil
	}

	// The fallback provider kicks in only when the store holds zero
	// channels at all, not when zero channels match the event.
	if len(channels) == 0 && d.fallback != nil {
		channels, err = d.fallback.ActiveChannels(ctx)
		if err != nil {
			d.logger.Error("Failed to load fallback channels", zap.Error(err))
			return nil
		}
	}

	var results []SendResult
	for _, ch := range channels {
		if !d.eligible(ch, ev) {
			continue
		}
		results = append(results, d.sendOne(ctx, ch, ev))
	}

	return results
}

// eligible applies enabled-type, severity-floor and marketplace filters
func (d *Dispatcher) eligible(ch models.NotificationChannel, ev Event) bool {
	if !contains(ch.EnabledTypes, ev.Type) {
		return false
	}
	if !meetsSeverityFloor(ev.Severity, ch.MinSeverity) {
		return false
	}
	// Untagged events pass marketplace-scoped channels.
	if len(ch.Marketplaces) > 0 && ev.Marketplace != "" && !contains(ch.Marketplaces, ev.Marketplace) {
		return false
	}
	return true
}

func (d *Dispatcher) sendOne(ctx context.Context, ch models.NotificationChannel, ev Event) SendResult {
	result := SendResult{ChannelID: ch.ID, Kind: ch.Kind}

	sender, ok := d.senders[ch.Kind]
	if !ok {
		result.Error = "unsupported channel kind: " + ch.Kind
		d.recordFailure(ctx, ch, result.Error)
		return result
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := sender.Send(sendCtx, ch, ev)
	util.NotificationSendLatency.WithLabelValues(ch.Kind).Observe(time.Since(start).Seconds())

	if err != nil {
		util.NotificationSendsTotal.WithLabelValues(ch.Kind, "failure").Inc()
		d.logger.Warn("Channel delivery failed",
			zap.String("channel", ch.Name),
			zap.String("kind", ch.Kind),
			zap.Error(err))
		result.Error = err.Error()
		d.recordFailure(ctx, ch, result.Error)
		return result
	}

	util.NotificationSendsTotal.WithLabelValues(ch.Kind, "success").Inc()
	result.Success = true
	d.recordSuccess(ctx, ch)
	return result
}

// Health is only tracked for store-backed channels; fallback channels
// from deployment config carry ID 0.
func (d *Dispatcher) recordSuccess(ctx context.Context, ch models.NotificationChannel) {
	if d.health == nil || ch.ID == 0 {
		return
	}
	if err := d.health.RecordChannelSuccess(ctx, ch.ID); err != nil {
		d.logger.Warn("Failed to record channel success", zap.Int64("channel_id", ch.ID), zap.Error(err))
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, ch models.NotificationChannel, sendErr string) {
	if d.health == nil || ch.ID == 0 {
		return
	}
	if err := d.health.RecordChannelFailure(ctx, ch.ID, sendErr); err != nil {
		d.logger.Warn("Failed to record channel failure", zap.Int64("channel_id", ch.ID), zap.Error(err))
	}
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
