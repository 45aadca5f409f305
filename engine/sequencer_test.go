package engine

import (
	"testing"
	"time"

	"matsuri/models"
)

func queueShop(tickets ...models.Ticket) *models.Attraction {
	a := &models.Attraction{
		ID:           "Y1",
		Name:         "Haunted House",
		Mode:         models.ModeQueue,
		MaxGroupSize: 4,
		Queue:        tickets,
	}
	a.Normalize()
	return a
}

func wt(id, user, status string) models.Ticket {
	return models.Ticket{TicketID: id, UserID: user, Count: 1, Status: status, CreatedAt: time.Now()}
}

func TestFormatTicketNumber(t *testing.T) {
	if got := FormatTicketNumber(1); got != "000001" {
		t.Fatalf(`expected "000001", got %q`, got)
	}
	if got := FormatTicketNumber(42); got != "000042" {
		t.Fatalf(`expected "000042", got %q`, got)
	}
	if got := FormatTicketNumber(1234567); got != "1234567" {
		t.Fatalf("numbers beyond the pad width must not be truncated, got %q", got)
	}
}

func TestParseTicketNumber(t *testing.T) {
	if n := ParseTicketNumber("000042"); n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
	if n := ParseTicketNumber(""); n != 0 {
		t.Fatalf("blank ID should parse to 0, got %d", n)
	}
	if n := ParseTicketNumber("ABC123"); n != 0 {
		t.Fatalf("garbage ID should parse to 0, got %d", n)
	}
}

func TestMaxLiveTicketNumber(t *testing.T) {
	a := queueShop(wt("000003", "U1", models.StatusWaiting), wt("000007", "U2", models.StatusReady))
	if got := MaxLiveTicketNumber(a); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := MaxLiveTicketNumber(queueShop()); got != 0 {
		t.Fatalf("empty queue should report 0, got %d", got)
	}
}

func TestCanIssueRejectsPaused(t *testing.T) {
	a := queueShop()
	a.IsPaused = true
	err := CanIssue(a, "U1")
	if KindOf(err) != KindAttractionPaused {
		t.Fatalf("expected AttractionPaused, got %v", err)
	}
}

func TestCanIssueRejectsSecondLiveTicket(t *testing.T) {
	a := queueShop(wt("000001", "U1", models.StatusWaiting))
	err := CanIssue(a, "U1")
	if KindOf(err) != KindDuplicateBooking {
		t.Fatalf("expected DuplicateBooking, got %v", err)
	}
	if err := CanIssue(a, "U2"); err != nil {
		t.Fatalf("other users must still be able to join: %v", err)
	}
}

// Scenario: A holds 000001, B holds 000002. A is ahead of nobody, B is
// behind one group. After A is called, B's position excludes the ready
// ticket and drops to zero.
func TestPositionOf(t *testing.T) {
	a := queueShop(
		wt("000001", "A", models.StatusWaiting),
		wt("000002", "B", models.StatusWaiting),
	)

	pos, called, ok := PositionOf(a, "A")
	if !ok || called || pos != 0 {
		t.Fatalf("A: expected waiting at position 0, got pos=%d called=%v ok=%v", pos, called, ok)
	}
	pos, called, ok = PositionOf(a, "B")
	if !ok || called || pos != 1 {
		t.Fatalf("B: expected waiting at position 1, got pos=%d called=%v ok=%v", pos, called, ok)
	}

	// staff calls A
	a.Queue[0].Status = models.StatusReady

	pos, called, ok = PositionOf(a, "A")
	if !ok || !called || pos != 0 {
		t.Fatalf("called A: expected position 0 with called flag, got pos=%d called=%v", pos, called)
	}
	pos, called, ok = PositionOf(a, "B")
	if !ok || called || pos != 0 {
		t.Fatalf("B after call: ready tickets must not count as ahead, got pos=%d", pos)
	}
}

func TestPositionOfUnknownUser(t *testing.T) {
	a := queueShop(wt("000001", "A", models.StatusWaiting))
	if _, _, ok := PositionOf(a, "NOBODY"); ok {
		t.Fatal("user without a ticket must not report a position")
	}
}

func TestPositionOfLegacyTicketSortsToBack(t *testing.T) {
	a := queueShop(
		wt("", "OLD", models.StatusWaiting),
		wt("000005", "NEW", models.StatusWaiting),
	)
	pos, _, ok := PositionOf(a, "NEW")
	if !ok || pos != 0 {
		t.Fatalf("legacy unnumbered ticket must not count as ahead, got pos=%d", pos)
	}
	pos, _, ok = PositionOf(a, "OLD")
	if !ok || pos != 1 {
		t.Fatalf("legacy ticket should queue behind numbered ones, got pos=%d", pos)
	}
}

func TestWaitingGroupsExcludesReady(t *testing.T) {
	a := queueShop(
		wt("000001", "A", models.StatusReady),
		wt("000002", "B", models.StatusWaiting),
		wt("000003", "C", models.StatusWaiting),
	)
	if got := WaitingGroups(a); got != 2 {
		t.Fatalf("expected 2 waiting groups, got %d", got)
	}
}

func TestSortForStaffReadyFirstThenNumber(t *testing.T) {
	queue := []models.Ticket{
		wt("000004", "D", models.StatusWaiting),
		wt("000002", "B", models.StatusReady),
		wt("000001", "A", models.StatusWaiting),
		wt("000003", "C", models.StatusReady),
	}
	sorted := SortForStaff(queue)
	wantOrder := []string{"000002", "000003", "000001", "000004"}
	for i, id := range wantOrder {
		if sorted[i].TicketID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, sorted[i].TicketID)
		}
	}
	// input untouched
	if queue[0].TicketID != "000004" {
		t.Fatal("SortForStaff must not mutate its input")
	}
}
