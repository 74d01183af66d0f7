package schedule

import (
	"testing"
	"time"
)

func TestGenerateSlotsCutsTemplates(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	templates := []ClockRange{{StartMin: 9 * 60, EndMin: 12 * 60}}

	slots := GenerateSlots(date, templates, 45*time.Minute, nil, nil, time.UTC)
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots in a 3h window, got %d", len(slots))
	}
	if !slots[0].Start.Equal(date.Add(9 * time.Hour)) {
		t.Fatalf("first slot should start at 09:00, got %v", slots[0].Start)
	}
	last := slots[len(slots)-1]
	if last.End.After(date.Add(12 * time.Hour)) {
		t.Fatalf("slot must not extend past template end, got %v", last.End)
	}
}

func TestGenerateSlotsSkipsTaken(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	templates := []ClockRange{{StartMin: 9 * 60, EndMin: 12 * 60}}
	taken := []TimeRange{rangeAt(9, 45, 10, 30)}

	slots := GenerateSlots(date, templates, 45*time.Minute, taken, nil, time.UTC)
	for _, s := range slots {
		if s.Overlaps(taken[0]) {
			t.Fatalf("slot %v collides with an existing booking", s)
		}
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 free slots, got %d", len(slots))
	}
}

func TestGenerateSlotsWholeDayBlocked(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	templates := []ClockRange{{StartMin: 9 * 60, EndMin: 12 * 60}}
	blocked := []TimeRange{{Start: date, End: date.AddDate(0, 0, 1)}}

	slots := GenerateSlots(date, templates, 45*time.Minute, nil, blocked, time.UTC)
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a blocked day, got %d", len(slots))
	}
}

func TestGenerateSlotsZeroDuration(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	templates := []ClockRange{{StartMin: 9 * 60, EndMin: 12 * 60}}
	if slots := GenerateSlots(date, templates, 0, nil, nil, time.UTC); slots != nil {
		t.Fatalf("expected nil for zero duration, got %v", slots)
	}
}
