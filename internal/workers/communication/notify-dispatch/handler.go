package notifydispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/models"
)

const maxRequestBytes = 1 << 20

// Dispatcher is what the HTTP handler and the job worker call.
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.NotificationRequest) error
}

// Handler serves POST /api/notify.
type Handler struct {
	dispatcher Dispatcher
	logger     logger.Logger
}

func NewHandler(dispatcher Dispatcher, log logger.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logger: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		h.logger.Debug("Rejected notification request", map[string]interface{}{"error": err.Error()})
		errors.WriteError(w, err)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), req); err != nil {
		errors.WriteError(w, err)
		return
	}

	errors.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type wireRequest struct {
	Type interface{}     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeRequest parses a notification body. A body that is not JSON, an
// absent or empty type and data that is absent, null or not an object are
// all reported as INVALID_REQUEST.
func DecodeRequest(body io.Reader) (models.NotificationRequest, error) {
	var wire wireRequest
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return models.NotificationRequest{}, errors.NewInvalidRequestError("malformed JSON body: " + err.Error())
	}

	kind := typeString(wire.Type)
	if kind == "" {
		return models.NotificationRequest{}, errors.NewInvalidRequestError("type is required")
	}

	raw := bytes.TrimSpace(wire.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.NotificationRequest{}, errors.NewInvalidRequestError("data is required")
	}

	var payload map[string]interface{}
	dataDec := json.NewDecoder(bytes.NewReader(raw))
	dataDec.UseNumber()
	if err := dataDec.Decode(&payload); err != nil || payload == nil {
		return models.NotificationRequest{}, errors.NewInvalidRequestError("data must be an object")
	}

	return models.NotificationRequest{Kind: models.NotificationKind(kind), Payload: payload}, nil
}

// typeString returns "" for absent or falsy values. Anything else is kept as
// text so that it is reported as an unknown type.
func typeString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
	}
	return fmt.Sprint(v)
}
