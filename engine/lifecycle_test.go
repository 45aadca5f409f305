package engine

import (
	"reflect"
	"testing"
	"time"

	"matsuri/models"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCheckGuestAccessBan(t *testing.T) {
	a := slotShop()
	banned := &models.User{UserID: "U1", IsBanned: true}
	if KindOf(CheckGuestAccess(a, banned)) != KindAccessDenied {
		t.Fatal("globally banned user must be denied")
	}
	if err := CheckGuestAccess(a, &models.User{UserID: "U1"}); err != nil {
		t.Fatalf("clean user should pass: %v", err)
	}
}

func TestCheckGuestAccessBlacklist(t *testing.T) {
	a := slotShop()
	a.BannedUsers = []string{"U1"}
	err := CheckGuestAccess(a, &models.User{UserID: "U1"})
	if KindOf(err) != KindRestrictionDenied {
		t.Fatalf("expected RestrictionDenied, got %v", err)
	}
	if rej := err.(*Rejection); rej.Detail != ReasonBlacklisted {
		t.Fatalf("expected blacklisted reason, got %s", rej.Detail)
	}
}

// Scenario: allow-list mode is active and the user is absent from it, so
// booking is denied even though capacity is available.
func TestCheckGuestAccessWhitelist(t *testing.T) {
	a := slotShop()
	a.IsRestricted = true
	a.AllowedUsers = []string{"VIP001"}

	err := CheckGuestAccess(a, &models.User{UserID: "U1"})
	if KindOf(err) != KindRestrictionDenied {
		t.Fatalf("expected RestrictionDenied, got %v", err)
	}
	if rej := err.(*Rejection); rej.Detail != ReasonNotWhitelisted {
		t.Fatalf("expected not_whitelisted reason, got %s", rej.Detail)
	}

	if err := CheckGuestAccess(a, &models.User{UserID: "VIP001"}); err != nil {
		t.Fatalf("listed user should pass: %v", err)
	}
}

func TestCheckStaffAccessIndependentGates(t *testing.T) {
	a := slotShop()
	a.IsAdminRestricted = true
	a.AdminAllowedUsers = []string{"STAFF1"}

	err := CheckStaffAccess(a, &models.User{UserID: "U1"})
	if KindOf(err) != KindRestrictionDenied {
		t.Fatalf("expected RestrictionDenied, got %v", err)
	}
	if rej := err.(*Rejection); rej.Detail != ReasonStaffOnly {
		t.Fatalf("expected staff_only reason, got %s", rej.Detail)
	}

	if err := CheckStaffAccess(a, &models.User{UserID: "STAFF1"}); err != nil {
		t.Fatalf("named staff should pass: %v", err)
	}

	// guest gates still apply to staff
	a.BannedUsers = []string{"STAFF1"}
	if KindOf(CheckStaffAccess(a, &models.User{UserID: "STAFF1"})) != KindRestrictionDenied {
		t.Fatal("guest blacklist must also block staff access")
	}
}

func TestCheckGroupSize(t *testing.T) {
	a := slotShop() // MaxGroupSize 4
	for _, n := range []int{1, 2, 4} {
		if err := CheckGroupSize(a, n); err != nil {
			t.Fatalf("size %d should pass: %v", n, err)
		}
	}
	for _, n := range []int{0, -1, 5} {
		if KindOf(CheckGroupSize(a, n)) != KindInvalidGroupSize {
			t.Fatalf("size %d should be rejected", n)
		}
	}
}

// Scenario: three active tickets across any attractions exhaust the quota;
// a fourth booking anywhere is rejected.
func TestQuotaAcrossAttractions(t *testing.T) {
	now := time.Now()
	all := []models.Attraction{
		{
			ID: "A", Reservations: []models.Reservation{
				{ResID: "r1", UserID: "U1", Time: "10:00", Status: models.StatusReserved},
			},
		},
		{
			ID: "B", Reservations: []models.Reservation{
				{ResID: "r2", UserID: "U1", Time: "11:00", Status: models.StatusReserved},
				{ResID: "r3", UserID: "U1", Time: "12:00", Status: models.StatusUsed},
			},
		},
		{
			ID: "C", Queue: []models.Ticket{
				{TicketID: "000001", UserID: "U1", Status: models.StatusReady, CreatedAt: now},
				{TicketID: "000002", UserID: "U2", Status: models.StatusWaiting, CreatedAt: now},
			},
		},
	}

	active := ActiveTicketCount(all, "U1")
	if active != 3 {
		t.Fatalf("used entries must not count; expected 3 active, got %d", active)
	}
	if KindOf(CheckQuota(active)) != KindQuotaExceeded {
		t.Fatal("expected QuotaExceeded at the cap")
	}
	if err := CheckQuota(ActiveTicketCount(all, "U2")); err != nil {
		t.Fatalf("U2 holds one ticket and should pass: %v", err)
	}
}

// Scenario: redeem the same reservation twice. The status flip only
// matches while the entry still holds the expected current status, so the
// second redemption matches no document and comes back NotFound instead of
// flipping again.
func TestReservationStatusFlipMatchesOnlyCurrentStatus(t *testing.T) {
	filter := reservationStatusFilter("X1", "r1", models.StatusReserved)

	want := bson.M{
		"_id": "X1",
		"reservations": bson.M{"$elemMatch": bson.M{
			"resId":  "r1",
			"status": models.StatusReserved,
		}},
	}
	if !reflect.DeepEqual(filter, want) {
		t.Fatalf("flip must require the current status in the match, got %v", filter)
	}

	// the undo direction carries the inverse precondition
	undo := reservationStatusFilter("X1", "r1", models.StatusUsed)
	if undo["reservations"].(bson.M)["$elemMatch"].(bson.M)["status"] != models.StatusUsed {
		t.Fatal("undo must match only an already-used entry")
	}
}

func TestRejectionKindMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindAccessDenied, 403},
		{KindRestrictionDenied, 403},
		{KindAuthenticationFailed, 401},
		{KindNotFound, 404},
		{KindQuotaExceeded, 409},
		{KindSlotFull, 409},
		{KindDuplicateBooking, 409},
		{KindAttractionPaused, 400},
		{KindInvalidGroupSize, 400},
		{KindNotCalledYet, 400},
		{KindStoreUnavailable, 500},
	}
	for _, c := range cases {
		if got := HTTPStatus(Reject(c.kind, "")); got != c.status {
			t.Fatalf("%s: expected %d, got %d", c.kind, c.status, got)
		}
	}
	if KindOf(nil) != KindStoreUnavailable {
		t.Fatal("unknown errors map to StoreUnavailable")
	}
}
