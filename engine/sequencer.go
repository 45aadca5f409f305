package engine

import (
	"context"
	"fmt"
	"strconv"

	"matsuri/db"
	"matsuri/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Queue sequencer: monotonic ticket numbering and the waiting/ready
// lifecycle. Redeemed and canceled tickets are removed outright; absence is
// the terminal state and callers must treat it as such.

// TicketNumberWidth is the zero-padded width of printed ticket numbers.
const TicketNumberWidth = 6

// FormatTicketNumber renders a ticket number in the fixed wire format.
func FormatTicketNumber(n int) string {
	return fmt.Sprintf("%0*d", TicketNumberWidth, n)
}

// ParseTicketNumber returns the numeric value of a ticket ID, or 0 for a
// malformed one.
func ParseTicketNumber(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0
	}
	return n
}

// MaxLiveTicketNumber returns the highest numeric ticket ID currently in
// the queue. Used only to seed the counter for documents created before
// the counter existed.
func MaxLiveTicketNumber(a *models.Attraction) int {
	max := 0
	for _, t := range a.Queue {
		if n := ParseTicketNumber(t.TicketID); n > max {
			max = n
		}
	}
	return max
}

// CanIssue checks the queue-mode preconditions against a snapshot.
func CanIssue(a *models.Attraction, userID string) error {
	if a.IsPaused {
		return Reject(KindAttractionPaused, a.ID)
	}
	for _, t := range a.Queue {
		if t.UserID == userID {
			return Reject(KindDuplicateBooking, "already queued at "+a.ID)
		}
	}
	return nil
}

// NextTicketNumber advances the per-attraction counter and returns the new
// formatted number. The counter is serialized by the store, so two
// simultaneous issuers can never be handed the same number. Numbers are
// never reused after removal; gaps are permanent.
func NextTicketNumber(ctx context.Context, a *models.Attraction) (string, error) {
	// Seed once for documents that predate the counter: never let it fall
	// behind the highest live ticket.
	if seed := MaxLiveTicketNumber(a); seed > a.NextTicket {
		_, err := db.AttractionsCollection.UpdateOne(ctx,
			bson.M{"_id": a.ID},
			bson.M{"$max": bson.M{"nextTicket": seed}})
		if err != nil {
			return "", Reject(KindStoreUnavailable, err.Error())
		}
	}

	var updated models.Attraction
	err := db.AttractionsCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": a.ID},
		bson.M{"$inc": bson.M{"nextTicket": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After).
			SetProjection(bson.M{"nextTicket": 1}),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return "", Reject(KindNotFound, a.ID)
	}
	if err != nil {
		return "", Reject(KindStoreUnavailable, err.Error())
	}
	return FormatTicketNumber(updated.NextTicket), nil
}

// AppendTicket pushes a waiting ticket. The filter re-states the pause and
// no-duplicate guards so a racing second join from the same user cannot
// produce two live tickets.
func AppendTicket(ctx context.Context, attractionID string, t models.Ticket) error {
	filter := bson.M{
		"_id":      attractionID,
		"isPaused": false,
		"queue":    bson.M{"$not": bson.M{"$elemMatch": bson.M{"userId": t.UserID}}},
	}
	result, err := db.AttractionsCollection.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"queue": t}})
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	if result.MatchedCount == 0 {
		return classifyAppendMiss(ctx, attractionID, t.UserID)
	}
	return nil
}

func classifyAppendMiss(ctx context.Context, attractionID, userID string) error {
	var fresh models.Attraction
	err := db.AttractionsCollection.FindOne(ctx, bson.M{"_id": attractionID}).Decode(&fresh)
	if err == mongo.ErrNoDocuments {
		return Reject(KindNotFound, attractionID)
	}
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	if fresh.IsPaused {
		return Reject(KindAttractionPaused, attractionID)
	}
	return Reject(KindDuplicateBooking, "already queued at "+attractionID)
}

// Call flips a waiting ticket to ready in place, matched by ticket ID with
// a userId fallback for records issued before ticket IDs existed. Calling
// an already-ready ticket is a no-op, never a duplicate.
func Call(ctx context.Context, attractionID, ticketID, userID string) error {
	filter := bson.M{
		"_id":   attractionID,
		"queue": bson.M{"$elemMatch": bson.M{"ticketId": ticketID, "status": models.StatusWaiting}},
	}
	update := bson.M{"$set": bson.M{"queue.$.status": models.StatusReady}}
	result, err := db.AttractionsCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Legacy entries carry no ticketId; match by owner instead.
	legacy := bson.M{
		"_id": attractionID,
		"queue": bson.M{"$elemMatch": bson.M{
			"userId":   userID,
			"ticketId": bson.M{"$in": bson.A{"", nil}},
			"status":   models.StatusWaiting,
		}},
	}
	result, err = db.AttractionsCollection.UpdateOne(ctx, legacy, update)
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	if result.MatchedCount > 0 {
		return nil
	}

	var fresh models.Attraction
	if err := db.AttractionsCollection.FindOne(ctx, bson.M{"_id": attractionID}).Decode(&fresh); err != nil {
		return Reject(KindNotFound, attractionID)
	}
	for _, t := range fresh.Queue {
		if t.TicketID == ticketID && t.Status == models.StatusReady {
			return nil // already called
		}
	}
	return Reject(KindNotFound, "ticket "+ticketID)
}

// RemoveTicket pulls a ticket from the live queue. Both redemption and
// cancellation end here; a repeat on an already-removed ticket is rejected.
func RemoveTicket(ctx context.Context, attractionID, ticketID string) error {
	filter := bson.M{
		"_id":   attractionID,
		"queue": bson.M{"$elemMatch": bson.M{"ticketId": ticketID}},
	}
	result, err := db.AttractionsCollection.UpdateOne(ctx, filter,
		bson.M{"$pull": bson.M{"queue": bson.M{"ticketId": ticketID}}})
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	if result.MatchedCount == 0 {
		return Reject(KindNotFound, "ticket already removed")
	}
	return nil
}

// FindTicket locates a live ticket in a snapshot.
func FindTicket(a *models.Attraction, ticketID string) (models.Ticket, bool) {
	for _, t := range a.Queue {
		if t.TicketID == ticketID {
			return t, true
		}
	}
	return models.Ticket{}, false
}

// PositionOf reports how many waiting groups precede the user's waiting
// ticket. Ready tickets are out of line: they report position 0 and the
// called flag instead, and they never count toward anyone else's position.
func PositionOf(a *models.Attraction, userID string) (position int, called bool, ok bool) {
	var mine *models.Ticket
	for i := range a.Queue {
		if a.Queue[i].UserID == userID {
			mine = &a.Queue[i]
			break
		}
	}
	if mine == nil {
		return 0, false, false
	}
	if mine.Status == models.StatusReady {
		return 0, true, true
	}
	myNum := positionNumber(mine.TicketID)
	ahead := 0
	for _, t := range a.Queue {
		if t.UserID == mine.UserID {
			continue
		}
		if t.Status == models.StatusWaiting && positionNumber(t.TicketID) < myNum {
			ahead++
		}
	}
	return ahead, false, true
}

// positionNumber sorts legacy tickets without an ID to the back of the
// line rather than the front.
func positionNumber(id string) int {
	if n := ParseTicketNumber(id); n > 0 {
		return n
	}
	return 999999
}

// WaitingGroups counts the groups still waiting (ready tickets excluded),
// the number visitor screens show per shop.
func WaitingGroups(a *models.Attraction) int {
	n := 0
	for _, t := range a.Queue {
		if t.Status == models.StatusWaiting {
			n++
		}
	}
	return n
}

// SortForStaff orders a queue for the staff console: ready tickets first,
// then ascending ticket number.
func SortForStaff(queue []models.Ticket) []models.Ticket {
	out := make([]models.Ticket, len(queue))
	copy(out, queue)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && staffLess(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func staffLess(a, b models.Ticket) bool {
	aReady := a.Status == models.StatusReady
	bReady := b.Status == models.StatusReady
	if aReady != bReady {
		return aReady
	}
	return ParseTicketNumber(a.TicketID) < ParseTicketNumber(b.TicketID)
}
