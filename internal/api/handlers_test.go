package api

import (
	"math"
	"testing"
	"time"
)

var fleetNow = time.Date(2025, 10, 23, 0, 0, 0, 0, time.UTC)

func TestEquipmentAgeYears(t *testing.T) {
	age := equipmentAgeYears("2020-10-23", fleetNow)
	if math.Abs(age-5.0) > 0.01 {
		t.Errorf("expected roughly 5 years, got %v", age)
	}
	if got := equipmentAgeYears("not-a-date", fleetNow); got != 0 {
		t.Errorf("expected 0 for unparseable date, got %v", got)
	}
}

func TestRemainingLifeYears(t *testing.T) {
	if got := remainingLifeYears(3, 8); got != 5 {
		t.Errorf("expected 5, got %v", got)
	}
	// Past expected life clamps to zero, never goes negative.
	if got := remainingLifeYears(9.5, 8); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestLifecycleStatus(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "Critical"},
		{90, "Critical"},
		{89.9, "Warning"},
		{75, "Warning"},
		{74.9, "Good"},
		{10, "Good"},
	}
	for _, tt := range tests {
		if got := lifecycleStatus(tt.pct); got != tt.want {
			t.Errorf("lifecycleStatus(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestContractStatus(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{-1, "Expired"},
		{0, "Expiring Soon"},
		{29, "Expiring Soon"},
		{30, "Warning"},
		{89, "Warning"},
		{90, "Active"},
		{365, "Active"},
	}
	for _, tt := range tests {
		if got := contractStatus(tt.days); got != tt.want {
			t.Errorf("contractStatus(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestDaysUntil(t *testing.T) {
	if got := daysUntil("2025-11-22", fleetNow); got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
	if got := daysUntil("2025-08-15", fleetNow); got >= 0 {
		t.Errorf("expected negative for past expiry, got %d", got)
	}
}
