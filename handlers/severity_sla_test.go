package handlers

import (
	"testing"
	"time"

	"p9e.in/safecheck/models"
)

func TestDueDateForSeverity(t *testing.T) {
	sla := &models.SeveritySLA{LowDays: 30, MediumDays: 7, HighDays: 1}
	createdAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		severity string
		expected time.Time
	}{
		{"high is next day", models.SeverityHigh, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"medium is one week", models.SeverityMedium, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"low is thirty days", models.SeverityLow, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"unknown falls back to medium", "catastrophic", time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"empty falls back to medium", "", time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dueDateForSeverity(sla, createdAt, tt.severity)
			if !got.Equal(tt.expected) {
				t.Errorf("dueDateForSeverity(%q) = %v, expected %v", tt.severity, got, tt.expected)
			}
		})
	}
}

func TestDueDateForSeverityPreservesClock(t *testing.T) {
	sla := &models.SeveritySLA{LowDays: 30, MediumDays: 7, HighDays: 1}
	createdAt := time.Date(2025, 6, 15, 14, 30, 45, 0, time.UTC)

	got := dueDateForSeverity(sla, createdAt, models.SeverityHigh)
	expected := time.Date(2025, 6, 16, 14, 30, 45, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("expected time-of-day preserved, got %v", got)
	}
}
