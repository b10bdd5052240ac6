package notifydispatch

import (
	"context"
	"fmt"
	"time"

	"collision-site/internal/common/config"
	"collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/common/metrics"
	"collision-site/internal/models"
)

// Mailer is the outbound mail transport.
type Mailer interface {
	Send(ctx context.Context, msg models.EmailMessage) error
}

// SMSSender pages the operator. Optional.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type Config struct {
	Recipient   string
	FromName    string
	FromAddress string
	SendTimeout time.Duration

	SMSPhone string
	SMSKinds map[models.NotificationKind]bool
}

func ConfigFromApp(cfg *config.Config) *Config {
	c := &Config{
		Recipient:   cfg.Notifications.Recipient,
		FromName:    cfg.Notifications.FromName,
		FromAddress: cfg.Notifications.FromAddress,
		SendTimeout: config.GetDuration(cfg.Notifications.Timeout),
		SMSKinds:    map[models.NotificationKind]bool{},
	}
	if cfg.Notifications.SMS.Enabled {
		c.SMSPhone = cfg.Notifications.SMS.OperatorPhone
	}
	for _, k := range []models.NotificationKind{models.KindContact, models.KindApplication, models.KindAppointment} {
		if cfg.Notifications.SMSEnabledFor(string(k)) {
			c.SMSKinds[k] = true
		}
	}
	return c
}

// Service renders and sends operator notifications. Every accepted request
// results in exactly one send attempt; repeated requests are sent again.
type Service struct {
	config *Config
	mailer Mailer
	sms    SMSSender
	logger logger.Logger
}

type ServiceOption func(*Service)

// WithSMS enables the operator text for the kinds listed in Config.SMSKinds.
func WithSMS(sender SMSSender) ServiceOption {
	return func(s *Service) { s.sms = sender }
}

func NewService(cfg *Config, mailer Mailer, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{config: cfg, mailer: mailer, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate checks req without rendering or sending it.
func Validate(req models.NotificationRequest) error {
	if req.Kind == "" || req.Payload == nil {
		return errors.NewInvalidRequestError("type and data are required")
	}
	if !req.Kind.Valid() {
		return errors.NewUnknownKindError(string(req.Kind))
	}
	return nil
}

// Dispatch validates, renders and sends req. It returns a *errors.StandardError
// with code INVALID_REQUEST, UNKNOWN_KIND or DELIVERY_FAILED on failure.
func (s *Service) Dispatch(ctx context.Context, req models.NotificationRequest) error {
	if err := Validate(req); err != nil {
		metrics.NotificationsTotal.WithLabelValues(kindLabel(req.Kind), metrics.StatusRejected).Inc()
		return err
	}

	subject, html, text, err := Render(req)
	if err != nil {
		return errors.NewInternalError(err)
	}

	msg := models.EmailMessage{
		FromName:    s.config.FromName,
		FromAddress: s.config.FromAddress,
		To:          s.config.Recipient,
		Subject:     subject,
		HTMLBody:    html,
		TextBody:    text,
	}

	sendCtx := ctx
	if s.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.config.SendTimeout)
		defer cancel()
	}

	start := time.Now()
	err = s.mailer.Send(sendCtx, msg)
	metrics.NotificationDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(string(req.Kind), metrics.StatusFailed).Inc()
		s.logger.Error("Email send error", map[string]interface{}{
			"type":  string(req.Kind),
			"error": err.Error(),
		})
		return errors.NewDeliveryFailedError(string(req.Kind), err)
	}

	metrics.NotificationsTotal.WithLabelValues(string(req.Kind), metrics.StatusSent).Inc()
	s.logger.Info("Notification sent", map[string]interface{}{
		"type":    string(req.Kind),
		"subject": subject,
	})

	s.notifyOperator(ctx, req.Kind, subject)
	return nil
}

// notifyOperator sends the optional SMS ping. Its outcome never affects the
// dispatch result.
func (s *Service) notifyOperator(ctx context.Context, kind models.NotificationKind, subject string) {
	if s.sms == nil || s.config.SMSPhone == "" || !s.config.SMSKinds[kind] {
		return
	}

	if err := s.sms.SendSMS(ctx, s.config.SMSPhone, fmt.Sprintf("Taylor's Collision: %s", subject)); err != nil {
		metrics.SMSTotal.WithLabelValues(metrics.StatusFailed).Inc()
		s.logger.Warn("Operator SMS failed", map[string]interface{}{
			"type":  string(kind),
			"error": err.Error(),
		})
		return
	}
	metrics.SMSTotal.WithLabelValues(metrics.StatusSent).Inc()
}

// kindLabel bounds metric cardinality for rejected requests.
func kindLabel(kind models.NotificationKind) string {
	if kind.Valid() {
		return string(kind)
	}
	if kind == "" {
		return "missing"
	}
	return "unknown"
}
