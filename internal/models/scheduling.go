// internal/models/scheduling.go
package models

const EventInviteeCreated = "invitee.created"

// SchedulingEvent is the scheduling provider's webhook body. Every field is
// optional.
type SchedulingEvent struct {
	Event   string                 `json:"event"`
	Payload SchedulingEventPayload `json:"payload"`
}

type SchedulingEventPayload struct {
	Invitee        Invitee        `json:"invitee"`
	EventType      EventType      `json:"event_type"`
	ScheduledEvent ScheduledEvent `json:"scheduled_event"`
}

type Invitee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	UUID  string `json:"uuid"`
	URI   string `json:"uri"`
}

type EventType struct {
	Name string `json:"name"`
}

type ScheduledEvent struct {
	StartTime string `json:"start_time"`
	URI       string `json:"uri"`
}
