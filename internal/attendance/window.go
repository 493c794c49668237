package attendance

import "time"

// ClassifySession maps wall-clock time to the open session window.
// Morning covers 06:00-11:59 and evening 12:00-18:59; the hour-18 minute
// range is deliberately included. Everything else is closed.
func ClassifySession(t time.Time) Session {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return SessionMorning
	case h >= 12 && h <= 18:
		return SessionEvening
	default:
		return SessionClosed
	}
}

// DateOf formats t as the calendar-date key used in record identity.
func DateOf(t time.Time) string {
	return t.Format("2006-01-02")
}
