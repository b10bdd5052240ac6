package calendlyrelay

import (
	"encoding/json"
	"errors"
	"strconv"

	"collision-site/internal/models"
)

var ErrMalformedEvent = errors.New("webhook body is not valid JSON")

// DecodeEvent reads a scheduling webhook body. Only invalid JSON is an error.
// The event name is read first and any shape other than the string
// "invitee.created" yields an event that Relay ignores. Sections of the
// payload that are not objects decode as empty, and scalar fields that are
// not strings are kept in their text form.
func DecodeEvent(body []byte) (models.SchedulingEvent, error) {
	var event models.SchedulingEvent
	if !json.Valid(body) {
		return event, ErrMalformedEvent
	}

	var envelope struct {
		Event   json.RawMessage `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return event, nil
	}
	var name string
	if err := json.Unmarshal(envelope.Event, &name); err != nil || name != models.EventInviteeCreated {
		event.Event = name
		return event, nil
	}
	event.Event = name

	var payload struct {
		Invitee        json.RawMessage `json:"invitee"`
		EventType      json.RawMessage `json:"event_type"`
		ScheduledEvent json.RawMessage `json:"scheduled_event"`
	}
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return event, nil
	}

	invitee := object(payload.Invitee)
	event.Payload.Invitee = models.Invitee{
		Name:  text(invitee["name"]),
		Email: text(invitee["email"]),
		UUID:  text(invitee["uuid"]),
		URI:   text(invitee["uri"]),
	}
	event.Payload.EventType.Name = text(object(payload.EventType)["name"])
	scheduled := object(payload.ScheduledEvent)
	event.Payload.ScheduledEvent = models.ScheduledEvent{
		StartTime: text(scheduled["start_time"]),
		URI:       text(scheduled["uri"]),
	}
	return event, nil
}

func object(raw json.RawMessage) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func text(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
