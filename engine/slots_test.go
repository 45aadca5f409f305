package engine

import (
	"testing"

	"matsuri/models"
)

func TestGenerateSlotLabels(t *testing.T) {
	labels, err := GenerateSlotLabels("10:00", "12:00", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"10:00", "10:30", "11:00", "11:30"}
	if len(labels) != len(want) {
		t.Fatalf("expected %d labels, got %d (%v)", len(want), len(labels), labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("label %d: expected %s, got %s", i, want[i], labels[i])
		}
	}
}

func TestGenerateSlotLabelsExcludesCloseTime(t *testing.T) {
	labels, err := GenerateSlotLabels("10:00", "10:40", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, l := range labels {
		if l == "10:40" {
			t.Fatal("close time must not produce a slot")
		}
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %v", labels)
	}
}

func TestGenerateSlotLabelsRejectsBadInput(t *testing.T) {
	cases := []struct {
		open, close string
		duration    int
	}{
		{"10:00", "09:00", 20},
		{"10:00", "10:00", 20},
		{"10:00", "12:00", 0},
		{"banana", "12:00", 20},
		{"10:00", "banana", 20},
	}
	for _, c := range cases {
		if _, err := GenerateSlotLabels(c.open, c.close, c.duration); err == nil {
			t.Fatalf("expected error for %s-%s/%d", c.open, c.close, c.duration)
		}
	}
}

func TestNewSlotMapZeroesCounts(t *testing.T) {
	slots := NewSlotMap([]string{"10:00", "10:20"})
	if len(slots) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(slots))
	}
	for label, count := range slots {
		if count != 0 {
			t.Fatalf("slot %s should start at 0, got %d", label, count)
		}
	}
}

func TestSameTiming(t *testing.T) {
	a := &models.Attraction{OpenTime: "10:00", CloseTime: "15:00", Duration: 20}
	if !SameTiming(a, "10:00", "15:00", 20) {
		t.Fatal("identical timing should match")
	}
	if SameTiming(a, "10:00", "15:00", 30) {
		t.Fatal("changed duration must not match")
	}
	if SameTiming(a, "11:00", "15:00", 20) {
		t.Fatal("changed open time must not match")
	}
}
