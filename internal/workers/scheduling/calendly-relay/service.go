package calendlyrelay

import (
	"context"
	"strings"
	"time"

	"collision-site/internal/common/config"
	"collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/common/metrics"
	"collision-site/internal/common/observability"
	"collision-site/internal/models"
)

const (
	notifyPath       = "/api/notify"
	defaultEventType = "Collision Estimate"
)

// Forwarder posts the appointment notification.
type Forwarder interface {
	PostJSON(ctx context.Context, url string, payload interface{}) error
}

type Config struct {
	PublicOrigin       string
	SigningKey         string
	SignatureTolerance time.Duration
	ForwardTimeout     time.Duration
}

func ConfigFromApp(cfg *config.Config) *Config {
	return &Config{
		PublicOrigin:       strings.TrimRight(cfg.Server.PublicOrigin, "/"),
		SigningKey:         cfg.Webhook.SigningKey,
		SignatureTolerance: DefaultSignatureTolerance,
		ForwardTimeout:     config.GetDuration(cfg.Webhook.ForwardTimeout),
	}
}

// Service turns booking events into appointment notifications.
type Service struct {
	config    *Config
	forwarder Forwarder
	deduper   *Deduper
	obs       *observability.Observability
	logger    logger.Logger
}

type ServiceOption func(*Service)

// WithDeduper suppresses relays of a booking that was already relayed.
func WithDeduper(d *Deduper) ServiceOption {
	return func(s *Service) { s.deduper = d }
}

func WithObservability(o *observability.Observability) ServiceOption {
	return func(s *Service) { s.obs = o }
}

func NewService(cfg *Config, forwarder Forwarder, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{config: cfg, forwarder: forwarder, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildNotification maps a booking to the appointment notification body.
func BuildNotification(event models.SchedulingEvent) models.NotificationRequest {
	p := event.Payload
	eventType := p.EventType.Name
	if eventType == "" {
		eventType = defaultEventType
	}
	return models.NotificationRequest{
		Kind: models.KindAppointment,
		Payload: map[string]interface{}{
			"invitee_full_name": p.Invitee.Name,
			"invitee_email":     p.Invitee.Email,
			"event_type_name":   eventType,
			"event_start_time":  FormatStartTime(p.ScheduledEvent.StartTime),
		},
	}
}

// Relay forwards an invitee.created event to origin's notify endpoint and
// returns the metrics outcome. Other events are acknowledged and dropped.
func (s *Service) Relay(ctx context.Context, origin string, event models.SchedulingEvent, body []byte) (string, error) {
	if event.Event != models.EventInviteeCreated {
		s.logger.Debug("Ignoring scheduling event", map[string]interface{}{"event": event.Event})
		return metrics.StatusIgnored, nil
	}

	key := IdempotencyKey(event, body)
	claimed := false
	if s.deduper != nil {
		first, err := s.deduper.Claim(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("Dedup unavailable, relaying without it", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		case !first:
			s.logger.Info("Duplicate booking delivery skipped", map[string]interface{}{"key": key})
			return metrics.StatusDuplicate, nil
		default:
			claimed = true
		}
	}

	fwdCtx := ctx
	if s.config.ForwardTimeout > 0 {
		var cancel context.CancelFunc
		fwdCtx, cancel = context.WithTimeout(ctx, s.config.ForwardTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.forwarder.PostJSON(fwdCtx, origin+notifyPath, BuildNotification(event))
	if err != nil {
		s.obs.RecordRelay(ctx, metrics.StatusFailed, time.Since(start))
		if claimed {
			if relErr := s.deduper.Release(context.WithoutCancel(ctx), key); relErr != nil {
				s.logger.Warn("Failed to release dedup key", map[string]interface{}{
					"key":   key,
					"error": relErr.Error(),
				})
			}
		}
		s.logger.Error("Calendly webhook error", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return metrics.StatusFailed, errors.NewWebhookProcessingFailedError(err)
	}

	s.obs.RecordRelay(ctx, metrics.StatusRelayed, time.Since(start))
	s.logger.Info("Booking relayed", map[string]interface{}{
		"key":     key,
		"invitee": event.Payload.Invitee.Email,
	})
	return metrics.StatusRelayed, nil
}
