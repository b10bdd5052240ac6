package calendlyrelay

import (
	"time"
	_ "time/tzdata" // America/New_York on hosts without a zoneinfo database
)

const (
	startTimeLayout = "Monday, January 2, 2006, 3:04 PM"
	businessZone    = "America/New_York"
)

var businessLocation = mustLoadLocation(businessZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// FormatStartTime renders an ISO-8601 instant as shop-local wall time, e.g.
// "2024-03-15T18:30:00Z" becomes "Friday, March 15, 2024, 2:30 PM".
// Empty or unparseable input yields "".
func FormatStartTime(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(businessLocation).Format(startTimeLayout)
		}
	}
	return ""
}
