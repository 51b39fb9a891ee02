package scanner

import (
	"testing"
	"time"
)

func TestTradingHoursOpen(t *testing.T) {
	hours, err := ParseTradingHours("09:30", "15:00", "Asia/Kolkata")
	if err != nil {
		t.Fatalf("ParseTradingHours: %v", err)
	}
	ist := hours.Location

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2026, 1, 20, 9, 29, 59, 0, ist), false},
		{"at open", time.Date(2026, 1, 20, 9, 30, 0, 0, ist), true},
		{"midday", time.Date(2026, 1, 20, 12, 0, 0, 0, ist), true},
		{"at close", time.Date(2026, 1, 20, 15, 0, 0, 0, ist), true},
		{"after close", time.Date(2026, 1, 20, 15, 0, 1, 0, ist), false},
		{"saturday", time.Date(2026, 1, 24, 11, 0, 0, 0, ist), false},
		{"sunday", time.Date(2026, 1, 25, 11, 0, 0, 0, ist), false},
		{"utc input", time.Date(2026, 1, 20, 4, 0, 0, 0, time.UTC), true},
		{"utc input before open", time.Date(2026, 1, 20, 3, 59, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := hours.Open(tt.at); got != tt.want {
			t.Fatalf("%s: Open(%s) = %v, want %v", tt.name, tt.at, got, tt.want)
		}
	}
}

func TestParseTradingHoursErrors(t *testing.T) {
	if _, err := ParseTradingHours("9.30", "15:00", "Asia/Kolkata"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseTradingHours("15:00", "09:30", "Asia/Kolkata"); err == nil {
		t.Fatalf("expected ordering error")
	}
	if _, err := ParseTradingHours("09:30", "15:00", "Nowhere/City"); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestTradingHoursString(t *testing.T) {
	hours, err := ParseTradingHours("09:30", "15:00", "UTC")
	if err != nil {
		t.Fatalf("ParseTradingHours: %v", err)
	}
	if got := hours.String(); got != "09:30 - 15:00" {
		t.Fatalf("String() = %q", got)
	}
}
