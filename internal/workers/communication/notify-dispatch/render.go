package notifydispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"collision-site/internal/models"
)

const (
	defaultAppointmentName = "Customer"
	defaultEventType       = "Collision Estimate"
)

type linkKind string

const (
	linkMailto linkKind = "mailto"
	linkTel    linkKind = "tel"
	linkURL    linkKind = "url"
)

type row struct {
	Label   string
	Value   string
	Link    linkKind
	Href    string
	Text    string // anchor text, defaults to Value
	PreWrap bool
}

type emailView struct {
	Heading    string
	LabelWidth string
	Rows       []row
}

var emailTemplate = template.Must(template.New("email").Funcs(template.FuncMap{
	"odd": func(i int) bool { return i%2 == 1 },
	"anchor": func(r row) string {
		if r.Text != "" {
			return r.Text
		}
		return r.Value
	},
}).Parse(`
<h2 style="color:#1e3a5f">{{.Heading}}</h2>
<table style="border-collapse:collapse;width:100%;font-family:sans-serif">
{{- range $i, $r := .Rows}}
  <tr{{if odd $i}} style="background:#f5f7fa"{{end}}><td style="padding:8px;font-weight:bold{{if eq $i 0}};width:{{$.LabelWidth}}{{end}}{{if $r.PreWrap}};vertical-align:top{{end}}">{{$r.Label}}</td><td style="padding:8px{{if $r.PreWrap}};white-space:pre-wrap{{end}}">
  {{- if eq $r.Link "mailto"}}<a href="mailto:{{$r.Href}}">{{anchor $r}}</a>
  {{- else if eq $r.Link "tel"}}<a href="tel:{{$r.Href}}">{{anchor $r}}</a>
  {{- else if eq $r.Link "url"}}<a href="{{$r.Href}}">{{anchor $r}}</a>
  {{- else}}{{$r.Value}}{{end}}</td></tr>
{{- end}}
</table>
`))

// field returns payload[key] as display text. Missing and null values render
// as the empty string.
func field(payload map[string]interface{}, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func fieldOr(payload map[string]interface{}, key, fallback string) string {
	if v := field(payload, key); v != "" {
		return v
	}
	return fallback
}

// Render builds the subject and bodies for req without sending anything.
// The kind must already be known to be valid.
func Render(req models.NotificationRequest) (subject, html, text string, err error) {
	var view emailView
	p := req.Payload

	switch req.Kind {
	case models.KindContact:
		subject = "New Contact Message from " + field(p, "name")
		view = emailView{
			Heading:    "New Contact Message — Taylor's Collision",
			LabelWidth: "140px",
			Rows: []row{
				{Label: "Name", Value: field(p, "name")},
				{Label: "Email", Value: field(p, "email"), Link: linkMailto, Href: field(p, "email")},
				{Label: "Phone", Value: field(p, "phone"), Link: linkTel, Href: field(p, "phone")},
				{Label: "Service", Value: field(p, "service")},
				{Label: "Message", Value: field(p, "message"), PreWrap: true},
			},
		}

	case models.KindApplication:
		name := field(p, "firstName") + " " + field(p, "lastName")
		subject = "New Job Application — " + field(p, "position") + " — " + name
		view = emailView{
			Heading:    "New Job Application — Taylor's Collision",
			LabelWidth: "160px",
			Rows: []row{
				{Label: "Name", Value: name},
				{Label: "Position", Value: field(p, "position")},
				{Label: "Email", Value: field(p, "email"), Link: linkMailto, Href: field(p, "email")},
				{Label: "Phone", Value: field(p, "phone"), Link: linkTel, Href: field(p, "phone")},
				{Label: "Experience", Value: field(p, "experience") + " years"},
				{Label: "Address", Value: fmt.Sprintf("%s, %s, %s %s",
					field(p, "address"), field(p, "city"), field(p, "state"), field(p, "zip"))},
			},
		}
		if resume := field(p, "resumeUrl"); resume != "" {
			view.Rows = append(view.Rows, row{Label: "Resume", Value: resume, Link: linkURL, Href: resume, Text: "View Resume"})
		}

	case models.KindAppointment:
		subject = "New Appointment Booked — " + fieldOr(p, "invitee_full_name", defaultAppointmentName)
		view = emailView{
			Heading:    "New Appointment — Taylor's Collision",
			LabelWidth: "160px",
			Rows: []row{
				{Label: "Name", Value: field(p, "invitee_full_name")},
				{Label: "Email", Value: field(p, "invitee_email"), Link: linkMailto, Href: field(p, "invitee_email")},
				{Label: "Time", Value: field(p, "event_start_time")},
				{Label: "Event Type", Value: fieldOr(p, "event_type_name", defaultEventType)},
			},
		}

	default:
		return "", "", "", fmt.Errorf("unknown kind %q", req.Kind)
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", "", "", fmt.Errorf("render %s email: %w", req.Kind, err)
	}

	return sanitizeHeader(subject), buf.String(), renderText(view), nil
}

func renderText(view emailView) string {
	var b strings.Builder
	b.WriteString(view.Heading + "\n\n")
	for _, r := range view.Rows {
		b.WriteString(r.Label + ": " + r.Value + "\n")
	}
	return b.String()
}

// sanitizeHeader keeps user-supplied text from adding header lines.
func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(s)
}
