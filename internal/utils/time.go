package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	layoutDate = "2006-01-02"
)

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.UTC)
}

// FormatDate formats time to YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(layoutDate)
}

// ParseClock parses a time of day into minutes after midnight. Accepted:
// "11:00", "11:00:00", "11.00", "9", "11am", "2:30 pm", "14h30".
func ParseClock(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}

	meridiem := ""
	for _, suffix := range []string{"am", "pm", "a.m.", "p.m."} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix[:1]
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	s = strings.NewReplacer(".", ":", "h", ":").Replace(s)
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	minute := 0
	if len(parts) > 1 && parts[1] != "" {
		if minute, err = strconv.Atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("invalid time %q", raw)
		}
	}

	switch meridiem {
	case "a":
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour < 12 {
			hour += 12
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range %q", raw)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock rewrites any accepted time of day as HH:MM.
func NormalizeClock(raw string) (string, error) {
	m, err := ParseClock(raw)
	if err != nil {
		return "", err
	}
	return FormatClock(m), nil
}
