package booking

import (
	"encoding/json"
	"net/http"
	"time"

	"matsuri/engine"
	"matsuri/globals"
	"matsuri/models"
	"matsuri/mq"
	"matsuri/utils"

	"github.com/julienschmidt/httprouter"
)

func requestUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	return userID, ok && userID != ""
}

func respondRejection(w http.ResponseWriter, err error) {
	utils.RespondWithError(w, engine.HTTPStatus(err), err.Error())
}

// BookSlot commits a time-slot reservation for the caller.
func BookSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	var input struct {
		Time  string `json:"time"`
		Count int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Time == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "time is required")
		return
	}
	if input.Count == 0 {
		input.Count = 1
	}

	res, err := engine.BookSlot(r.Context(), userID, ps.ByName("id"), input.Time, input.Count)
	if err != nil {
		respondRejection(w, err)
		return
	}

	mq.EmitAudit(models.AuditEvent{
		Event:        "reservation.booked",
		AttractionID: ps.ByName("id"),
		UserID:       userID,
		ResID:        res.ResID,
		Time:         res.Time,
		Count:        res.Count,
		Actor:        userID,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusCreated, res)
}

// JoinQueue issues a numbered waiting ticket for the caller.
func JoinQueue(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	var input struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Count == 0 {
		input.Count = 1
	}

	ticket, err := engine.JoinQueue(r.Context(), userID, ps.ByName("id"), input.Count)
	if err != nil {
		respondRejection(w, err)
		return
	}

	mq.EmitAudit(models.AuditEvent{
		Event:        "ticket.issued",
		AttractionID: ps.ByName("id"),
		UserID:       userID,
		TicketID:     ticket.TicketID,
		Count:        ticket.Count,
		Actor:        userID,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusCreated, ticket)
}

// CancelReservation removes the caller's own reservation.
func CancelReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	res, err := engine.CancelReservation(r.Context(), userID, ps.ByName("id"), ps.ByName("resId"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	mq.EmitAudit(models.AuditEvent{
		Event:        "reservation.cancelled",
		AttractionID: ps.ByName("id"),
		UserID:       userID,
		ResID:        res.ResID,
		Time:         res.Time,
		Count:        res.Count,
		Actor:        userID,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cancelled": true, "resId": res.ResID})
}

// CancelTicket removes the caller's own queue ticket.
func CancelTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	t, err := engine.CancelTicket(r.Context(), userID, ps.ByName("id"), ps.ByName("ticketId"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	mq.EmitAudit(models.AuditEvent{
		Event:        "ticket.cancelled",
		AttractionID: ps.ByName("id"),
		UserID:       userID,
		TicketID:     t.TicketID,
		Count:        t.Count,
		Actor:        userID,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cancelled": true, "ticketId": t.TicketID})
}

// EnterWithReservation redeems a reservation at the door. Staff type the
// attraction password on the visitor's screen.
func EnterWithReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	var input struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := engine.RedeemReservation(r.Context(), userID, ps.ByName("id"), ps.ByName("resId"), input.Password)
	if err != nil {
		respondRejection(w, err)
		return
	}

	mq.EmitAudit(models.AuditEvent{
		Event:        "reservation.used",
		AttractionID: ps.ByName("id"),
		UserID:       userID,
		ResID:        res.ResID,
		Time:         res.Time,
		Count:        res.Count,
		Actor:        userID,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// EnterWithTicket redeems a called queue ticket at the door.
func EnterWithTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	var input struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := engine.RedeemTicket(r.Context(), userID, ps.ByName("id"), ps.ByName("ticketId"), input.Password)
	if err != nil {
		respondRejection(w, err)
		return
	}

	mq.EmitAudit(models.AuditEvent{
		Event:        "ticket.used",
		AttractionID: ps.ByName("id"),
		UserID:       userID,
		TicketID:     t.TicketID,
		Count:        t.Count,
		Actor:        userID,
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, t)
}

// MyTickets returns the caller's ticket list across every attraction,
// ready tickets first. ?active=true filters out used entries.
func MyTickets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := requestUserID(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	all, err := engine.LoadAllAttractions(r.Context())
	if err != nil {
		respondRejection(w, err)
		return
	}

	var views []engine.TicketView
	if r.URL.Query().Get("active") == "true" {
		views = engine.ActiveUserTickets(all, userID)
	} else {
		views = engine.ProjectUserTickets(all, userID)
	}
	if views == nil {
		views = []engine.TicketView{}
	}
	utils.RespondWithJSON(w, http.StatusOK, views)
}
