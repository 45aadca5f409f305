package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"matsuri/db"
	"matsuri/engine"
	"matsuri/models"
	"matsuri/mq"
	"matsuri/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Bulk venue operations and restriction-list management for the council
// console. All of these sit behind the admin key; the staff password gates
// do not apply here.

// PauseAll sets the intake flag on every attraction at once, the
// festival-wide emergency stop.
func PauseAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		IsPaused bool `json:"isPaused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := db.AttractionsCollection.UpdateMany(r.Context(),
		bson.M{}, bson.M{"$set": bson.M{"isPaused": input.IsPaused}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update attractions")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"isPaused": input.IsPaused, "updated": result.ModifiedCount})
}

// ClearAllReservations wipes every reservation and queue on every
// attraction and zeroes the slot counters. Day-boundary reset.
func ClearAllReservations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	all, err := engine.LoadAllAttractions(r.Context())
	if err != nil {
		respondRejection(w, err)
		return
	}

	for i := range all {
		a := &all[i]
		update := bson.M{"$set": bson.M{
			"reservations": []models.Reservation{},
			"queue":        []models.Ticket{},
			"slots":        engine.NewSlotMap(engine.SortedSlotLabels(a)),
			"nextTicket":   0,
		}}
		if _, err := db.AttractionsCollection.UpdateOne(r.Context(), bson.M{"_id": a.ID}, update); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "failed to clear "+a.ID)
			return
		}
	}

	mq.EmitAudit(models.AuditEvent{
		Event: "venues.cleared",
		Actor: "council",
		At:    time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cleared": len(all)})
}

// DeleteAllVenues drops every attraction document.
func DeleteAllVenues(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := db.AttractionsCollection.DeleteMany(r.Context(), bson.M{})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to delete attractions")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"deleted": result.DeletedCount})
}

// listFields resolves the audience parameter to the flag and list fields
// on the attraction document. The guest and staff audiences carry
// independent allow/deny lists.
func listFields(audience string) (flag, allowed, banned string, ok bool) {
	switch audience {
	case "guest":
		return "isRestricted", "allowedUsers", "bannedUsers", true
	case "staff":
		return "isAdminRestricted", "adminAllowedUsers", "adminBannedUsers", true
	}
	return "", "", "", false
}

// SetListMode toggles allowlist enforcement for one audience of one
// attraction.
func SetListMode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		Restricted bool `json:"restricted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flag, _, _, ok := listFields(ps.ByName("audience"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "audience must be guest or staff")
		return
	}

	result, err := db.AttractionsCollection.UpdateOne(r.Context(),
		bson.M{"_id": ps.ByName("id")}, bson.M{"$set": bson.M{flag: input.Restricted}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update attraction")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "attraction not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"audience": ps.ByName("audience"), "restricted": input.Restricted})
}

// UpdateAccessList adds or removes one user on the allow or deny list of
// one audience. $addToSet keeps repeats harmless.
func UpdateAccessList(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		UserID string `json:"userId"`
		List   string `json:"list"`   // allowed | banned
		Action string `json:"action"` // add | remove
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.UserID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "userId is required")
		return
	}

	_, allowed, banned, ok := listFields(ps.ByName("audience"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "audience must be guest or staff")
		return
	}

	field := ""
	switch input.List {
	case "allowed":
		field = allowed
	case "banned":
		field = banned
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "list must be allowed or banned")
		return
	}

	var update bson.M
	switch input.Action {
	case "add":
		update = bson.M{"$addToSet": bson.M{field: input.UserID}}
	case "remove":
		update = bson.M{"$pull": bson.M{field: input.UserID}}
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "action must be add or remove")
		return
	}

	result, err := db.AttractionsCollection.UpdateOne(r.Context(), bson.M{"_id": ps.ByName("id")}, update)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update attraction")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "attraction not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"field": field, "action": input.Action, "userId": input.UserID})
}

// AllowAllUsers adds every known user to the audience's allowlist, the
// bootstrap for switching a venue to allowlist mode mid-festival.
func AllowAllUsers(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	_, allowed, _, ok := listFields(ps.ByName("audience"))
	if !ok {
		utils.RespondWithError(w, http.StatusBadRequest, "audience must be guest or staff")
		return
	}

	ids, err := allUserIDs(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load users")
		return
	}

	result, err := db.AttractionsCollection.UpdateOne(r.Context(),
		bson.M{"_id": ps.ByName("id")},
		bson.M{"$addToSet": bson.M{allowed: bson.M{"$each": ids}}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update attraction")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "attraction not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"added": len(ids)})
}

// ForceAddReservation books a slot on a user's behalf, bypassing the gate
// chain but not the capacity and pause guards.
func ForceAddReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		UserID string `json:"userId"`
		Time   string `json:"time"`
		Count  int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.UserID == "" || input.Time == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "userId and time are required")
		return
	}
	if input.Count == 0 {
		input.Count = 1
	}

	a, err := engine.LoadAttraction(r.Context(), ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	res := models.Reservation{
		ResID:     uuid.NewString(),
		UserID:    input.UserID,
		Time:      input.Time,
		Timestamp: time.Now().UnixMilli(),
		Status:    models.StatusReserved,
		Count:     input.Count,
	}
	if err := engine.Commit(r.Context(), a, res); err != nil {
		respondRejection(w, err)
		return
	}

	mq.EmitAudit(models.AuditEvent{
		Event:        "reservation.booked",
		AttractionID: a.ID,
		UserID:       input.UserID,
		ResID:        res.ResID,
		Time:         res.Time,
		Count:        res.Count,
		Actor:        "council",
		At:           time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusCreated, res)
}

const (
	auditDefaultLimit = 200
	auditMaxLimit     = 1000
)

// auditFindOptions sorts newest first and bounds the page size so the log
// stays serveable as it grows.
func auditFindOptions(limitParam string) *options.FindOptions {
	limit := int64(auditDefaultLimit)
	if n, err := strconv.ParseInt(limitParam, 10, 64); err == nil && n > 0 {
		limit = n
		if limit > auditMaxLimit {
			limit = auditMaxLimit
		}
	}
	return options.Find().SetSort(bson.M{"at": -1}).SetLimit(limit)
}

// AuditLog returns the most recent audit events, newest first. ?limit=
// caps the page.
func AuditLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cursor, err := db.AuditCollection.Find(r.Context(), bson.M{}, auditFindOptions(r.URL.Query().Get("limit")))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load audit log")
		return
	}
	defer cursor.Close(r.Context())

	var events []models.AuditEvent
	if err := cursor.All(r.Context(), &events); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load audit log")
		return
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	utils.RespondWithJSON(w, http.StatusOK, events)
}
