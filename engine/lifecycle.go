package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"matsuri/db"
	"matsuri/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MaxActiveTickets is the global per-user cap on simultaneously active
// reservations and queue tickets across all attractions.
const MaxActiveTickets = 3

// --- gate chain (pure) ---

// CheckGuestAccess runs the gates every visitor mutation passes first:
// global ban, then the attraction's deny list, then its allow list.
func CheckGuestAccess(a *models.Attraction, user *models.User) error {
	if user != nil && user.IsBanned {
		return Reject(KindAccessDenied, user.UserID)
	}
	userID := ""
	if user != nil {
		userID = user.UserID
	}
	if slices.Contains(a.BannedUsers, userID) {
		return Reject(KindRestrictionDenied, ReasonBlacklisted)
	}
	if a.IsRestricted && !slices.Contains(a.AllowedUsers, userID) {
		return Reject(KindRestrictionDenied, ReasonNotWhitelisted)
	}
	return nil
}

// CheckStaffAccess adds the operating-staff gates on top of the guest
// ones. Staff consoles check all three.
func CheckStaffAccess(a *models.Attraction, user *models.User) error {
	if err := CheckGuestAccess(a, user); err != nil {
		return err
	}
	userID := ""
	if user != nil {
		userID = user.UserID
	}
	if slices.Contains(a.AdminBannedUsers, userID) {
		return Reject(KindRestrictionDenied, ReasonBlacklisted)
	}
	if a.IsAdminRestricted && !slices.Contains(a.AdminAllowedUsers, userID) {
		return Reject(KindRestrictionDenied, ReasonStaffOnly)
	}
	return nil
}

// CheckGroupSize validates the party size against the attraction's
// per-group maximum.
func CheckGroupSize(a *models.Attraction, count int) error {
	if count < 1 || count > a.MaxGroupSize {
		return Reject(KindInvalidGroupSize, fmt.Sprintf("%d not in 1..%d", count, a.MaxGroupSize))
	}
	return nil
}

// ActiveTicketCount totals a user's live reservations (status reserved)
// and queue tickets (waiting or ready) across every attraction.
func ActiveTicketCount(all []models.Attraction, userID string) int {
	n := 0
	for i := range all {
		for _, r := range all[i].Reservations {
			if r.UserID == userID && r.Status == models.StatusReserved {
				n++
			}
		}
		for _, t := range all[i].Queue {
			if t.UserID == userID && (t.Status == models.StatusWaiting || t.Status == models.StatusReady) {
				n++
			}
		}
	}
	return n
}

// CheckQuota enforces the global active-ticket cap.
func CheckQuota(active int) error {
	if active >= MaxActiveTickets {
		return Reject(KindQuotaExceeded, fmt.Sprintf("%d active tickets", active))
	}
	return nil
}

// --- snapshot loading ---

// LoadAttraction fetches and normalizes one attraction document.
func LoadAttraction(ctx context.Context, id string) (*models.Attraction, error) {
	var a models.Attraction
	err := db.AttractionsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, Reject(KindNotFound, id)
	}
	if err != nil {
		return nil, Reject(KindStoreUnavailable, err.Error())
	}
	a.Normalize()
	return &a, nil
}

// LoadAllAttractions fetches the full attraction set, the same snapshot
// every client screen derives its view from.
func LoadAllAttractions(ctx context.Context) ([]models.Attraction, error) {
	cursor, err := db.AttractionsCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, Reject(KindStoreUnavailable, err.Error())
	}
	defer cursor.Close(ctx)

	var all []models.Attraction
	if err := cursor.All(ctx, &all); err != nil {
		return nil, Reject(KindStoreUnavailable, err.Error())
	}
	for i := range all {
		all[i].Normalize()
	}
	return all, nil
}

// LoadUser fetches a user document; absence yields a zero-value user so
// first-time visitors pass the ban gate.
func LoadUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := db.UserCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return &models.User{UserID: userID}, nil
	}
	if err != nil {
		return nil, Reject(KindStoreUnavailable, err.Error())
	}
	return &u, nil
}

// --- orchestration ---

// BookSlot runs the full gate chain and commits a time-slot reservation.
func BookSlot(ctx context.Context, userID, attractionID, timeLabel string, count int) (*models.Reservation, error) {
	user, err := LoadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := LoadAllAttractions(ctx)
	if err != nil {
		return nil, err
	}
	a := findAttraction(all, attractionID)
	if a == nil {
		return nil, Reject(KindNotFound, attractionID)
	}
	if a.Mode != models.ModeTimeSlot {
		return nil, Reject(KindNotFound, "not a time-slot attraction")
	}

	if err := CheckGuestAccess(a, user); err != nil {
		return nil, err
	}
	if err := CheckQuota(ActiveTicketCount(all, userID)); err != nil {
		return nil, err
	}
	if err := CheckGroupSize(a, count); err != nil {
		return nil, err
	}
	if err := CanCommit(a, userID, timeLabel); err != nil {
		return nil, err
	}

	res := models.Reservation{
		ResID:     uuid.NewString(),
		UserID:    userID,
		Time:      timeLabel,
		Timestamp: time.Now().UnixMilli(),
		Status:    models.StatusReserved,
		Count:     count,
	}
	if err := Commit(ctx, a, res); err != nil {
		return nil, err
	}
	return &res, nil
}

// JoinQueue runs the gate chain and issues a numbered waiting ticket.
func JoinQueue(ctx context.Context, userID, attractionID string, count int) (*models.Ticket, error) {
	user, err := LoadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := LoadAllAttractions(ctx)
	if err != nil {
		return nil, err
	}
	a := findAttraction(all, attractionID)
	if a == nil {
		return nil, Reject(KindNotFound, attractionID)
	}
	if a.Mode != models.ModeQueue {
		return nil, Reject(KindNotFound, "not a queue attraction")
	}

	if err := CheckGuestAccess(a, user); err != nil {
		return nil, err
	}
	if err := CheckQuota(ActiveTicketCount(all, userID)); err != nil {
		return nil, err
	}
	if err := CheckGroupSize(a, count); err != nil {
		return nil, err
	}
	if err := CanIssue(a, userID); err != nil {
		return nil, err
	}

	number, err := NextTicketNumber(ctx, a)
	if err != nil {
		return nil, err
	}
	ticket := models.Ticket{
		TicketID:  number,
		UserID:    userID,
		Count:     count,
		Status:    models.StatusWaiting,
		CreatedAt: time.Now(),
	}
	if err := AppendTicket(ctx, attractionID, ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// CancelReservation removes the caller's own reservation and reverses the
// ledger counter.
func CancelReservation(ctx context.Context, userID, attractionID, resID string) (*models.Reservation, error) {
	a, err := LoadAttraction(ctx, attractionID)
	if err != nil {
		return nil, err
	}
	res, ok := FindReservation(a, resID)
	if !ok {
		return nil, Reject(KindNotFound, "reservation "+resID)
	}
	if res.UserID != userID {
		return nil, Reject(KindAccessDenied, "not the reservation owner")
	}
	if err := Release(ctx, attractionID, res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelTicket removes the caller's own queue ticket. Queue mode has no
// counter to reverse, only the list entry.
func CancelTicket(ctx context.Context, userID, attractionID, ticketID string) (*models.Ticket, error) {
	a, err := LoadAttraction(ctx, attractionID)
	if err != nil {
		return nil, err
	}
	t, ok := FindTicket(a, ticketID)
	if !ok {
		return nil, Reject(KindNotFound, "ticket "+ticketID)
	}
	if t.UserID != userID {
		return nil, Reject(KindAccessDenied, "not the ticket owner")
	}
	if err := RemoveTicket(ctx, attractionID, ticketID); err != nil {
		return nil, err
	}
	return &t, nil
}

// RedeemReservation is password-gated entry for a time-slot reservation.
// The status flip is one conditional update keyed by the reservation ID,
// so racing redemptions resolve to exactly one winner.
func RedeemReservation(ctx context.Context, userID, attractionID, resID, password string) (*models.Reservation, error) {
	user, err := LoadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	a, err := LoadAttraction(ctx, attractionID)
	if err != nil {
		return nil, err
	}
	if err := CheckGuestAccess(a, user); err != nil {
		return nil, err
	}
	if password != a.Password {
		return nil, Reject(KindAuthenticationFailed, "staff password mismatch")
	}
	res, ok := FindReservation(a, resID)
	if !ok {
		return nil, Reject(KindNotFound, "reservation "+resID)
	}
	if res.UserID != userID {
		return nil, Reject(KindAccessDenied, "not the reservation owner")
	}
	if err := SetReservationStatus(ctx, attractionID, resID, models.StatusReserved, models.StatusUsed); err != nil {
		return nil, err
	}
	res.Status = models.StatusUsed
	return &res, nil
}

// RedeemTicket is password-gated entry for a queue ticket. Only a called
// (ready) ticket may enter; redemption removes it from the live queue.
func RedeemTicket(ctx context.Context, userID, attractionID, ticketID, password string) (*models.Ticket, error) {
	user, err := LoadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	a, err := LoadAttraction(ctx, attractionID)
	if err != nil {
		return nil, err
	}
	if err := CheckGuestAccess(a, user); err != nil {
		return nil, err
	}
	t, ok := FindTicket(a, ticketID)
	if !ok {
		return nil, Reject(KindNotFound, "ticket "+ticketID)
	}
	if t.UserID != userID {
		return nil, Reject(KindAccessDenied, "not the ticket owner")
	}
	if t.Status != models.StatusReady {
		return nil, Reject(KindNotCalledYet, ticketID)
	}
	if password != a.Password {
		return nil, Reject(KindAuthenticationFailed, "staff password mismatch")
	}
	if err := RemoveTicket(ctx, attractionID, ticketID); err != nil {
		return nil, err
	}
	return &t, nil
}

// reservationStatusFilter matches the reservation only while it still
// holds the expected current status; a flip that already happened matches
// nothing, which makes redemption idempotent-safe.
func reservationStatusFilter(attractionID, resID, from string) bson.M {
	return bson.M{
		"_id":          attractionID,
		"reservations": bson.M{"$elemMatch": bson.M{"resId": resID, "status": from}},
	}
}

// SetReservationStatus flips a reservation between reserved and used in
// one keyed conditional update. It replaces the old remove-then-reinsert
// sequence, which could lose or duplicate entries under concurrency.
func SetReservationStatus(ctx context.Context, attractionID, resID, from, to string) error {
	update := bson.M{"$set": bson.M{"reservations.$.status": to}}
	result, err := db.AttractionsCollection.UpdateOne(ctx, reservationStatusFilter(attractionID, resID, from), update)
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	if result.MatchedCount == 0 {
		return Reject(KindNotFound, fmt.Sprintf("no %s reservation %s", from, resID))
	}
	return nil
}

func findAttraction(all []models.Attraction, id string) *models.Attraction {
	for i := range all {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}
