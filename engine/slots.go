package engine

import (
	"fmt"
	"sort"
	"time"

	"matsuri/models"
)

const slotLayout = "15:04"

// GenerateSlotLabels returns the time labels from openTime (inclusive) to
// closeTime (exclusive) in duration-minute steps.
func GenerateSlotLabels(openTime, closeTime string, duration int) ([]string, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", duration)
	}
	start, err := time.Parse(slotLayout, openTime)
	if err != nil {
		return nil, fmt.Errorf("invalid open time %q: %w", openTime, err)
	}
	end, err := time.Parse(slotLayout, closeTime)
	if err != nil {
		return nil, fmt.Errorf("invalid close time %q: %w", closeTime, err)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("open time %s is not before close time %s", openTime, closeTime)
	}

	var labels []string
	for cur := start; cur.Before(end); cur = cur.Add(time.Duration(duration) * time.Minute) {
		labels = append(labels, cur.Format(slotLayout))
	}
	return labels, nil
}

// NewSlotMap builds a zeroed committed-count map for the given labels.
func NewSlotMap(labels []string) map[string]int {
	slots := make(map[string]int, len(labels))
	for _, l := range labels {
		slots[l] = 0
	}
	return slots
}

// SameTiming reports whether the timing fields are unchanged, in which case
// existing slot counts survive an edit. Any timing change regenerates the
// slot set and wipes the counts, so callers must demand explicit
// confirmation first.
func SameTiming(a *models.Attraction, openTime, closeTime string, duration int) bool {
	return a.OpenTime == openTime && a.CloseTime == closeTime && a.Duration == duration
}

// SortedSlotLabels returns the slot labels of an attraction in time order.
func SortedSlotLabels(a *models.Attraction) []string {
	labels := make([]string, 0, len(a.Slots))
	for l := range a.Slots {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
