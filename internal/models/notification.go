// internal/models/notification.go
package models

import "net/mail"

// NotificationKind selects the email template the dispatcher renders.
type NotificationKind string

const (
	KindContact     NotificationKind = "contact"
	KindApplication NotificationKind = "application"
	KindAppointment NotificationKind = "appointment"
)

// Valid reports whether k is one of the known kinds.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindContact, KindApplication, KindAppointment:
		return true
	}
	return false
}

// NotificationRequest is the body of POST /api/notify. It is consumed once
// and never stored.
type NotificationRequest struct {
	Kind    NotificationKind       `json:"type"`
	Payload map[string]interface{} `json:"data"`
}

// EmailMessage is a rendered operator email ready for a mail transport.
type EmailMessage struct {
	FromName    string `json:"fromName"`
	FromAddress string `json:"fromAddress"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	HTMLBody    string `json:"htmlBody"`
	TextBody    string `json:"textBody,omitempty"`
}

// Sender renders the From header value, encoding non-ASCII display names.
func (m EmailMessage) Sender() string {
	if m.FromName == "" {
		return m.FromAddress
	}
	return (&mail.Address{Name: m.FromName, Address: m.FromAddress}).String()
}
