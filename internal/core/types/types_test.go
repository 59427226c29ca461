package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2026-08-31")
	if err != nil {
		t.Fatalf("ParseDay failed: %v", err)
	}
	if got := day.String(); got != "2026-08-31" {
		t.Errorf("String mismatch\nwant: 2026-08-31\ngot:  %s", got)
	}

	if _, err := ParseDay("31/08/2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if _, err := ParseDay(""); err == nil {
		t.Error("expected error for empty date")
	}
}

func TestDayOf_TruncatesToMidnightUTC(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2026, 8, 31, 23, 45, 0, 0, loc) // 18:15 UTC same day

	day := DayOf(ts)
	if got := day.String(); got != "2026-08-31" {
		t.Errorf("day mismatch\nwant: 2026-08-31\ngot:  %s", got)
	}
	if !day.Time().Equal(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected midnight UTC, got %v", day.Time())
	}
}

func TestDayNextPrev(t *testing.T) {
	day := MustDay("2026-08-31")

	if got := day.Next().String(); got != "2026-09-01" {
		t.Errorf("Next mismatch\nwant: 2026-09-01\ngot:  %s", got)
	}
	if got := day.Prev().String(); got != "2026-08-30" {
		t.Errorf("Prev mismatch\nwant: 2026-08-30\ngot:  %s", got)
	}
	if !day.Prev().Before(day) {
		t.Error("Prev day should be before the day")
	}
}

func TestDayJSON(t *testing.T) {
	day := MustDay("2026-02-28")

	data, err := json.Marshal(day)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"2026-02-28"` {
		t.Errorf("JSON mismatch\nwant: %q\ngot:  %s", `"2026-02-28"`, data)
	}

	var decoded Day
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !decoded.Equal(day) {
		t.Errorf("round trip mismatch: %s != %s", decoded, day)
	}

	// Full timestamps truncate to the calendar date.
	var fromTS Day
	if err := json.Unmarshal([]byte(`"2026-02-28T15:04:05Z"`), &fromTS); err != nil {
		t.Fatalf("Unmarshal timestamp failed: %v", err)
	}
	if !fromTS.Equal(day) {
		t.Errorf("timestamp truncation mismatch: %s != %s", fromTS, day)
	}
}

func TestDayScan(t *testing.T) {
	var day Day
	if err := day.Scan(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan time.Time failed: %v", err)
	}
	if day.String() != "2026-08-31" {
		t.Errorf("scanned day mismatch: %s", day)
	}

	if err := day.Scan(nil); err != nil {
		t.Fatalf("Scan nil failed: %v", err)
	}
	if !day.IsZero() {
		t.Error("nil scan should produce zero day")
	}

	if err := day.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestMoney(t *testing.T) {
	m, err := NewMoneyFromString("149.50")
	if err != nil {
		t.Fatalf("NewMoneyFromString failed: %v", err)
	}

	total := m.Mul(MoneyFromInt(3))
	if total.String() != "448.5" {
		t.Errorf("total mismatch\nwant: 448.5\ngot:  %s", total)
	}

	if _, err := NewMoneyFromString("not-a-number"); err == nil {
		t.Error("expected error for invalid money string")
	}
}
