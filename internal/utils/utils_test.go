package utils

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseClock(t *testing.T) {
	cases := map[string]string{
		"11:00":    "11:00",
		" 9 ":      "09:00",
		"11.00":    "11:00",
		"11:00:00": "11:00",
		"14h30":    "14:30",
		"11am":     "11:00",
		"12am":     "00:00",
		"12 pm":    "12:00",
		"2:30 pm":  "14:30",
		"9 p.m.":   "21:00",
	}
	for in, want := range cases {
		got, err := NormalizeClock(in)
		if err != nil {
			t.Fatalf("NormalizeClock(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("NormalizeClock(%q) = %s, want %s", in, got, want)
		}
	}

	for _, in := range []string{"", "pagi", "25:00", "10:75", "1:2:3:4"} {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) expected error", in)
		}
	}
}

func TestParseID(t *testing.T) {
	cases := []struct {
		in     any
		id     int64
		ok     bool
		hasErr bool
	}{
		{nil, 0, false, false},
		{"", 0, false, false},
		{" #12 ", 12, true, false},
		{float64(36), 36, true, false},
		{json.Number("40"), 40, true, false},
		{int64(7), 7, true, false},
		{0, 0, false, false},
		{"V-02", 0, true, true},
		{1.5, 0, true, true},
		{[]int{1}, 0, true, true},
	}
	for _, c := range cases {
		id, ok, err := ParseID(c.in)
		if (err != nil) != c.hasErr || id != c.id || ok != c.ok {
			t.Fatalf("ParseID(%v) = (%d, %v, %v), want (%d, %v, err=%v)", c.in, id, ok, err, c.id, c.ok, c.hasErr)
		}
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []any{true, "ya", "YES", 1.0, json.Number("1")} {
		if v, ok := ParseBool(in); !v || !ok {
			t.Fatalf("ParseBool(%v) = %v %v, want true", in, v, ok)
		}
	}
	for _, in := range []any{false, "tidak", "0", 0} {
		if v, ok := ParseBool(in); v || !ok {
			t.Fatalf("ParseBool(%v) = %v %v, want false", in, v, ok)
		}
	}
	if _, ok := ParseBool("maybe"); ok {
		t.Fatalf("ParseBool(maybe) should not be recognized")
	}
}

func TestFoldKey(t *testing.T) {
	if got := FoldKey("  Padang  -\tSOLOK "); got != "padang - solok" {
		t.Fatalf("FoldKey = %q", got)
	}
}

func TestLogEventFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	LogEvent(" req-1 ", "actions", "confirm", "session resolved", zap.String("session_id", "s-1"))
	LogError("req-2", "confirmation", "create", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["module"] != "ACTIONS" || fields["request_id"] != "req-1" || fields["session_id"] != "s-1" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("LogError level = %v", entries[1].Level)
	}
}
