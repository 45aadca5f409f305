package attractions

import (
	"net/http"
	"time"

	"matsuri/db"
	"matsuri/engine"
	"matsuri/models"
	"matsuri/mq"
	"matsuri/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// requireStaff loads the attraction, runs the staff gate chain for the
// caller and verifies the attraction password from X-Staff-Password. Every
// staff console mutation funnels through here.
func requireStaff(r *http.Request, attractionID string) (*models.Attraction, error) {
	userID, ok := requestUserID(r)
	if !ok {
		return nil, engine.Reject(engine.KindAuthenticationFailed, "no session")
	}
	user, err := engine.LoadUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	a, err := engine.LoadAttraction(r.Context(), attractionID)
	if err != nil {
		return nil, err
	}
	if err := engine.CheckStaffAccess(a, user); err != nil {
		return nil, err
	}
	if r.Header.Get("X-Staff-Password") != a.Password {
		return nil, engine.Reject(engine.KindAuthenticationFailed, "staff password mismatch")
	}
	return a, nil
}

// StaffQueue returns the live queue ordered for the console: called
// tickets first, then ascending number.
func StaffQueue(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, engine.SortForStaff(a.Queue))
}

// CallTicket flips a waiting ticket to ready. Repeating the call on an
// already-ready ticket is a no-op.
func CallTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	ticketID := ps.ByName("ticketId")
	t, _ := engine.FindTicket(a, ticketID)
	if err := engine.Call(r.Context(), a.ID, ticketID, t.UserID); err != nil {
		respondRejection(w, err)
		return
	}

	actor, _ := requestUserID(r)
	mq.EmitAudit(models.AuditEvent{
		Event:        "ticket.called",
		AttractionID: a.ID,
		UserID:       t.UserID,
		TicketID:     ticketID,
		Actor:        actor,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"called": true, "ticketId": ticketID})
}

// ForceEnterTicket admits a group from the console, skipping the visitor's
// own redemption flow. The ticket does not need to be ready.
func ForceEnterTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	ticketID := ps.ByName("ticketId")
	t, ok := engine.FindTicket(a, ticketID)
	if !ok {
		respondRejection(w, engine.Reject(engine.KindNotFound, "ticket "+ticketID))
		return
	}
	if err := engine.RemoveTicket(r.Context(), a.ID, ticketID); err != nil {
		respondRejection(w, err)
		return
	}

	actor, _ := requestUserID(r)
	mq.EmitAudit(models.AuditEvent{
		Event:        "ticket.used",
		AttractionID: a.ID,
		UserID:       t.UserID,
		TicketID:     ticketID,
		Count:        t.Count,
		Actor:        actor,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, t)
}

// ForceCancelTicket drops a group from the queue on their behalf.
func ForceCancelTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	ticketID := ps.ByName("ticketId")
	t, ok := engine.FindTicket(a, ticketID)
	if !ok {
		respondRejection(w, engine.Reject(engine.KindNotFound, "ticket "+ticketID))
		return
	}
	if err := engine.RemoveTicket(r.Context(), a.ID, ticketID); err != nil {
		respondRejection(w, err)
		return
	}

	actor, _ := requestUserID(r)
	mq.EmitAudit(models.AuditEvent{
		Event:        "ticket.cancelled",
		AttractionID: a.ID,
		UserID:       t.UserID,
		TicketID:     ticketID,
		Count:        t.Count,
		Actor:        actor,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cancelled": true, "ticketId": ticketID})
}

// SetReservationStatus toggles a reservation between reserved and used
// from the console, e.g. to undo a mistaken redemption.
func SetReservationStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	var to, from string
	switch r.URL.Query().Get("status") {
	case models.StatusUsed:
		from, to = models.StatusReserved, models.StatusUsed
	case models.StatusReserved:
		from, to = models.StatusUsed, models.StatusReserved
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "status must be reserved or used")
		return
	}

	resID := ps.ByName("resId")
	res, ok := engine.FindReservation(a, resID)
	if !ok {
		respondRejection(w, engine.Reject(engine.KindNotFound, "reservation "+resID))
		return
	}
	if err := engine.SetReservationStatus(r.Context(), a.ID, resID, from, to); err != nil {
		respondRejection(w, err)
		return
	}

	actor, _ := requestUserID(r)
	mq.EmitAudit(models.AuditEvent{
		Event:        "reservation." + to,
		AttractionID: a.ID,
		UserID:       res.UserID,
		ResID:        resID,
		Time:         res.Time,
		Count:        res.Count,
		Actor:        actor,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"resId": resID, "status": to})
}

// StaffCancelReservation removes any reservation, owner or not, and
// reverses the slot counter.
func StaffCancelReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	resID := ps.ByName("resId")
	res, ok := engine.FindReservation(a, resID)
	if !ok {
		respondRejection(w, engine.Reject(engine.KindNotFound, "reservation "+resID))
		return
	}
	if err := engine.Release(r.Context(), a.ID, res); err != nil {
		respondRejection(w, err)
		return
	}

	actor, _ := requestUserID(r)
	mq.EmitAudit(models.AuditEvent{
		Event:        "reservation.cancelled",
		AttractionID: a.ID,
		UserID:       res.UserID,
		ResID:        resID,
		Time:         res.Time,
		Count:        res.Count,
		Actor:        actor,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cancelled": true, "resId": resID})
}

// RecountSlots rebuilds every slot counter from the live reservation list.
// The counters are caches; this is the recovery path when one drifts.
func RecountSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	slots := make(map[string]int, len(a.Slots))
	for label := range a.Slots {
		slots[label] = engine.RecountSlot(a, label)
	}

	_, err = db.AttractionsCollection.UpdateOne(r.Context(),
		bson.M{"_id": a.ID}, bson.M{"$set": bson.M{"slots": slots}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update attraction")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"id": a.ID, "slots": slots})
}
