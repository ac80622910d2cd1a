package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/sofiahealth/appointments-api/internal/appointments"
)

const icsTimeFormat = "20060102T150405Z"

// ICS renders an appointment as a downloadable iCalendar file. The UID is
// derived from the appointment id, so re-importing the file updates the
// same event instead of duplicating it.
func ICS(a *appointments.Appointment, now time.Time) []byte {
	start := a.AppointmentTime.UTC()
	summary := fmt.Sprintf("%s with %s - Sofia Health", a.AppointmentType.Display(), a.ProviderName)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Sofia Health//Appointments//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		fmt.Sprintf("UID:appointment-%s@sofiahealth.com", a.ID),
		fmt.Sprintf("DTSTAMP:%s", now.UTC().Format(icsTimeFormat)),
		fmt.Sprintf("DTSTART:%s", start.Format(icsTimeFormat)),
		fmt.Sprintf("DTEND:%s", start.Add(eventDuration).Format(icsTimeFormat)),
		fmt.Sprintf("SUMMARY:%s", escapeICS(summary)),
	}
	if a.Notes != "" {
		lines = append(lines, fmt.Sprintf("DESCRIPTION:%s", escapeICS(a.Notes)))
	}
	lines = append(lines,
		"STATUS:CONFIRMED",
		"END:VEVENT",
		"END:VCALENDAR",
	)
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

// escapeICS escapes text per RFC 5545 section 3.3.11.
func escapeICS(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\r\n", `\n`,
		"\n", `\n`,
	)
	return r.Replace(s)
}
