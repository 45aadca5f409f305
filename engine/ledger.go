package engine

import (
	"context"
	"fmt"

	"matsuri/db"
	"matsuri/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Capacity ledger: per-attraction, per-slot committed-group counters.
// Accounting is group-based; group size never multiplies slot consumption.

// CanCommit checks whether one more group may commit to the slot, against a
// decoded snapshot. Quota and group-size checks live in the gate chain.
func CanCommit(a *models.Attraction, userID, timeLabel string) error {
	if a.IsPaused {
		return Reject(KindAttractionPaused, a.ID)
	}
	count, ok := a.Slots[timeLabel]
	if !ok {
		return Reject(KindNotFound, fmt.Sprintf("no slot %s at %s", timeLabel, a.ID))
	}
	if count >= a.SlotCapacity {
		return Reject(KindSlotFull, fmt.Sprintf("%s %s", a.ID, timeLabel))
	}
	for _, r := range a.Reservations {
		if r.UserID == userID && r.Time == timeLabel && r.Status == models.StatusReserved {
			return Reject(KindDuplicateBooking, fmt.Sprintf("already reserved %s %s", a.ID, timeLabel))
		}
	}
	return nil
}

// Commit increments the slot counter and appends the reservation in one
// document update. The filter re-states the pause and capacity guards so a
// concurrent booker cannot overfill the slot between our snapshot read and
// this write.
func Commit(ctx context.Context, a *models.Attraction, res models.Reservation) error {
	slotField := "slots." + res.Time
	filter := bson.M{
		"_id":      a.ID,
		"isPaused": false,
		slotField:  bson.M{"$lt": a.SlotCapacity},
	}
	update := bson.M{
		"$inc":  bson.M{slotField: 1},
		"$push": bson.M{"reservations": res},
	}
	result, err := db.AttractionsCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	if result.MatchedCount == 0 {
		return classifyCommitMiss(ctx, a.ID, res.Time)
	}
	return nil
}

// classifyCommitMiss re-reads the document to tell the caller which guard
// in the conditional update failed.
func classifyCommitMiss(ctx context.Context, attractionID, timeLabel string) error {
	var fresh models.Attraction
	err := db.AttractionsCollection.FindOne(ctx, bson.M{"_id": attractionID}).Decode(&fresh)
	if err == mongo.ErrNoDocuments {
		return Reject(KindNotFound, attractionID)
	}
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	fresh.Normalize()
	if fresh.IsPaused {
		return Reject(KindAttractionPaused, attractionID)
	}
	if _, ok := fresh.Slots[timeLabel]; !ok {
		return Reject(KindNotFound, fmt.Sprintf("no slot %s at %s", timeLabel, attractionID))
	}
	return Reject(KindSlotFull, fmt.Sprintf("%s %s", attractionID, timeLabel))
}

// releaseFilter matches only while the reservation is still present, so a
// repeated cancellation matches nothing instead of pulling twice.
func releaseFilter(attractionID, resID string) bson.M {
	return bson.M{
		"_id":          attractionID,
		"reservations": bson.M{"$elemMatch": bson.M{"resId": resID}},
	}
}

// clampedSlotDecrement is the filter/update pair that reverses one
// committed group; the $gt guard keeps the counter from going negative no
// matter how often it fires.
func clampedSlotDecrement(attractionID, timeLabel string) (filter, update bson.M) {
	slotField := "slots." + timeLabel
	return bson.M{"_id": attractionID, slotField: bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{slotField: -1}}
}

// Release removes the reservation by its stable ID and decrements the slot
// counter. The pull is keyed, so a duplicate or late cancellation matches
// nothing and is rejected instead of driving the counter negative.
func Release(ctx context.Context, attractionID string, res models.Reservation) error {
	update := bson.M{"$pull": bson.M{"reservations": bson.M{"resId": res.ResID}}}
	result, err := db.AttractionsCollection.UpdateOne(ctx, releaseFilter(attractionID, res.ResID), update)
	if err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	if result.MatchedCount == 0 {
		return Reject(KindNotFound, "reservation already removed")
	}

	// Clamped decrement, issued only after the pull landed. The counter is
	// a cache of the live reservation count and stays recomputable.
	decFilter, decUpdate := clampedSlotDecrement(attractionID, res.Time)
	if _, err := db.AttractionsCollection.UpdateOne(ctx, decFilter, decUpdate); err != nil {
		return Reject(KindStoreUnavailable, err.Error())
	}
	return nil
}

// RecountSlot derives the committed count for a slot from the live
// reservation list. Admin paths prefer this over the cached counter.
func RecountSlot(a *models.Attraction, timeLabel string) int {
	n := 0
	for _, r := range a.Reservations {
		if r.Time == timeLabel {
			n++
		}
	}
	return n
}

// FindReservation locates a reservation in a snapshot by its ID.
func FindReservation(a *models.Attraction, resID string) (models.Reservation, bool) {
	for _, r := range a.Reservations {
		if r.ResID == resID {
			return r, true
		}
	}
	return models.Reservation{}, false
}
