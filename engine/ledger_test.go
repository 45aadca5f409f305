package engine

import (
	"reflect"
	"testing"

	"matsuri/models"

	"go.mongodb.org/mongo-driver/bson"
)

func slotShop() *models.Attraction {
	a := &models.Attraction{
		ID:           "X1",
		Name:         "Planetarium",
		Mode:         models.ModeTimeSlot,
		SlotCapacity: 2,
		MaxGroupSize: 4,
		OpenTime:     "10:00",
		CloseTime:    "11:00",
		Duration:     30,
		Slots:        map[string]int{"10:00": 0, "10:30": 0},
	}
	a.Normalize()
	return a
}

// Scenario: groupLimit 2 at 10:00 — two bookings fill it, the third is
// turned away with SlotFull.
func TestCanCommitSlotFull(t *testing.T) {
	a := slotShop()

	if err := CanCommit(a, "U1", "10:00"); err != nil {
		t.Fatalf("first booking should pass: %v", err)
	}
	a.Slots["10:00"] = 1
	a.Reservations = append(a.Reservations, models.Reservation{
		ResID: "r1", UserID: "U1", Time: "10:00", Status: models.StatusReserved, Count: 2,
	})

	if err := CanCommit(a, "U2", "10:00"); err != nil {
		t.Fatalf("second booking should pass: %v", err)
	}
	a.Slots["10:00"] = 2
	a.Reservations = append(a.Reservations, models.Reservation{
		ResID: "r2", UserID: "U2", Time: "10:00", Status: models.StatusReserved, Count: 1,
	})

	err := CanCommit(a, "U3", "10:00")
	if KindOf(err) != KindSlotFull {
		t.Fatalf("third booking should hit SlotFull, got %v", err)
	}

	// the other slot is unaffected
	if err := CanCommit(a, "U3", "10:30"); err != nil {
		t.Fatalf("10:30 should still be open: %v", err)
	}
}

func TestCanCommitRejectsPaused(t *testing.T) {
	a := slotShop()
	a.IsPaused = true
	if KindOf(CanCommit(a, "U1", "10:00")) != KindAttractionPaused {
		t.Fatal("expected AttractionPaused")
	}
}

func TestCanCommitRejectsUnknownSlot(t *testing.T) {
	a := slotShop()
	if KindOf(CanCommit(a, "U1", "23:45")) != KindNotFound {
		t.Fatal("expected NotFound for a label outside the generated set")
	}
}

func TestCanCommitRejectsDoubleBooking(t *testing.T) {
	a := slotShop()
	a.Slots["10:00"] = 1
	a.Reservations = []models.Reservation{
		{ResID: "r1", UserID: "U1", Time: "10:00", Status: models.StatusReserved, Count: 1},
	}
	if KindOf(CanCommit(a, "U1", "10:00")) != KindDuplicateBooking {
		t.Fatal("expected DuplicateBooking for same attraction+slot")
	}
	// a used reservation no longer blocks rebooking the slot
	a.Reservations[0].Status = models.StatusUsed
	if err := CanCommit(a, "U1", "10:00"); err != nil {
		t.Fatalf("used reservation should not block: %v", err)
	}
}

func TestGroupSizeDoesNotMultiplySlotConsumption(t *testing.T) {
	a := slotShop()
	a.Slots["10:00"] = 1
	a.Reservations = []models.Reservation{
		{ResID: "r1", UserID: "U1", Time: "10:00", Status: models.StatusReserved, Count: 4},
	}
	// a full group of 4 still counts as one committed group
	if err := CanCommit(a, "U2", "10:00"); err != nil {
		t.Fatalf("accounting is per group, not per person: %v", err)
	}
}

func TestRecountSlot(t *testing.T) {
	a := slotShop()
	a.Reservations = []models.Reservation{
		{ResID: "r1", UserID: "U1", Time: "10:00", Status: models.StatusReserved},
		{ResID: "r2", UserID: "U2", Time: "10:00", Status: models.StatusUsed},
		{ResID: "r3", UserID: "U3", Time: "10:30", Status: models.StatusReserved},
	}
	if got := RecountSlot(a, "10:00"); got != 2 {
		t.Fatalf("expected 2 at 10:00, got %d", got)
	}
	if got := RecountSlot(a, "10:30"); got != 1 {
		t.Fatalf("expected 1 at 10:30, got %d", got)
	}
	if got := RecountSlot(a, "11:00"); got != 0 {
		t.Fatalf("expected 0 at 11:00, got %d", got)
	}
}

// Scenario: cancel the same reservation twice. The pull is keyed on the
// entry still being present, so the second attempt matches no document and
// Release reports NotFound instead of pulling again.
func TestReleaseFilterRejectsRepeatCancel(t *testing.T) {
	filter := releaseFilter("X1", "r1")

	want := bson.M{
		"_id":          "X1",
		"reservations": bson.M{"$elemMatch": bson.M{"resId": "r1"}},
	}
	if !reflect.DeepEqual(filter, want) {
		t.Fatalf("release must be keyed on the live entry, got %v", filter)
	}
}

// Scenario: the counter never goes below zero, no matter how many times
// the decrement fires.
func TestClampedSlotDecrementNeverNegative(t *testing.T) {
	filter, update := clampedSlotDecrement("X1", "10:00")

	wantFilter := bson.M{"_id": "X1", "slots.10:00": bson.M{"$gt": 0}}
	if !reflect.DeepEqual(filter, wantFilter) {
		t.Fatalf("decrement must be guarded by $gt 0, got %v", filter)
	}
	wantUpdate := bson.M{"$inc": bson.M{"slots.10:00": -1}}
	if !reflect.DeepEqual(update, wantUpdate) {
		t.Fatalf("decrement must step by exactly -1, got %v", update)
	}
}

func TestFindReservation(t *testing.T) {
	a := slotShop()
	a.Reservations = []models.Reservation{{ResID: "r1", UserID: "U1", Time: "10:00"}}
	if _, ok := FindReservation(a, "r1"); !ok {
		t.Fatal("expected to find r1")
	}
	if _, ok := FindReservation(a, "r9"); ok {
		t.Fatal("r9 must not be found")
	}
}
