package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateOf_IgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	morning := time.Date(2025, 1, 15, 0, 30, 0, 0, loc)
	evening := time.Date(2025, 1, 15, 23, 59, 0, 0, loc)

	if DateOf(morning) != DateOf(evening) {
		t.Errorf("same calendar day should be equal: %s vs %s", DateOf(morning), DateOf(evening))
	}
	if got := DateOf(morning).String(); got != "2025-01-15" {
		t.Errorf("String() = %s, expected 2025-01-15", got)
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := MustParseDate("2024-12-30")

	tests := []struct {
		name     string
		days     int
		expected string
	}{
		{"同一天", 0, "2024-12-30"},
		{"跨年", 3, "2025-01-02"},
		{"往前", -30, "2024-11-30"},
		{"跨2月", 61, "2025-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.AddDays(tt.days).String(); got != tt.expected {
				t.Errorf("AddDays(%d) = %s, expected %s", tt.days, got, tt.expected)
			}
			if got := d.DaysUntil(d.AddDays(tt.days)); got != tt.days {
				t.Errorf("DaysUntil = %d, expected %d", got, tt.days)
			}
		})
	}
}

func TestDate_Compare(t *testing.T) {
	a := MustParseDate("2025-01-15")
	b := MustParseDate("2025-02-01")

	if !a.Before(b) || a.After(b) {
		t.Error("2025-01-15 should be before 2025-02-01")
	}
	if !b.After(a) {
		t.Error("2025-02-01 should be after 2025-01-15")
	}
	if a.Compare(a) != 0 || !a.Equal(MustParseDate("2025-01-15")) {
		t.Error("date should equal itself")
	}
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Date Date `json:"date"`
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"date":"2025-01-15"}`), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.Date != MustParseDate("2025-01-15") {
		t.Errorf("unexpected date %s", p.Date)
	}

	if err := json.Unmarshal([]byte(`{"date":"2025-01-15T10:00:00Z"}`), &p); err == nil {
		t.Error("date-time input should be rejected")
	}
}

func TestDate_Scan(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Scan(time.Time) failed: %v", err)
	}
	if d.String() != "2025-01-15" {
		t.Errorf("Scan(time.Time) = %s", d)
	}

	if err := d.Scan([]byte("2025-03-02T00:00:00Z")); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}
	if d.String() != "2025-03-02" {
		t.Errorf("Scan([]byte) = %s", d)
	}
}

func TestDateRange_Days(t *testing.T) {
	r := NewDateRange(MustParseDate("2025-01-30"), 3)

	days := r.Days()
	if len(days) != 4 {
		t.Fatalf("expected 4 days, got %d", len(days))
	}
	if days[3].String() != "2025-02-02" {
		t.Errorf("last day = %s, expected 2025-02-02", days[3])
	}
	if !r.Contains(MustParseDate("2025-02-01")) || r.Contains(MustParseDate("2025-02-03")) {
		t.Error("Contains mismatch")
	}
}
