package calendlyrelay

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/common/metrics"
	"collision-site/internal/models"
)

const maxWebhookBytes = 1 << 20

// Handler serves POST /api/webhooks/calendly.
type Handler struct {
	service *Service
	logger  logger.Logger
	now     func() time.Time
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log, now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		h.fail(w, "unreadable", fmt.Errorf("read body: %w", err))
		return
	}

	if key := h.service.config.SigningKey; key != "" {
		err := VerifySignature(r.Header.Get(SignatureHeader), body, key, h.now(), h.service.config.SignatureTolerance)
		if err != nil {
			metrics.WebhookEventsTotal.WithLabelValues("unverified", metrics.StatusRejected).Inc()
			h.logger.Warn("Rejected unsigned scheduling webhook", map[string]interface{}{"error": err.Error()})
			errors.WriteError(w, errors.NewInvalidSignatureError(err.Error()))
			return
		}
	}

	event, err := DecodeEvent(body)
	if err != nil {
		h.fail(w, "unparseable", fmt.Errorf("decode event: %w", err))
		return
	}

	outcome, err := h.service.Relay(r.Context(), h.origin(r), event, body)
	metrics.WebhookEventsTotal.WithLabelValues(eventLabel(event.Event), outcome).Inc()
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) fail(w http.ResponseWriter, label string, err error) {
	metrics.WebhookEventsTotal.WithLabelValues(label, metrics.StatusFailed).Inc()
	h.logger.Error("Calendly webhook error", map[string]interface{}{"error": err.Error()})
	errors.WriteError(w, errors.NewWebhookProcessingFailedError(err))
}

// origin is the configured public origin, else the one the request came in on.
func (h *Handler) origin(r *http.Request) string {
	if o := h.service.config.PublicOrigin; o != "" {
		return o
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func eventLabel(event string) string {
	if event == models.EventInviteeCreated {
		return event
	}
	return "other"
}
