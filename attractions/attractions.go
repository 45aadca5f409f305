package attractions

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"matsuri/db"
	"matsuri/engine"
	"matsuri/filemgr"
	"matsuri/globals"
	"matsuri/models"
	"matsuri/rdx"
	"matsuri/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

func requestUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	return userID, ok && userID != ""
}

func respondRejection(w http.ResponseWriter, err error) {
	utils.RespondWithError(w, engine.HTTPStatus(err), err.Error())
}

// GetAttractions serves the public directory. The projection is cached in
// Redis; the change-stream watcher invalidates it on any write.
func GetAttractions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if cached, err := rdx.RdxGet(rdx.DirectoryCacheKey); err == nil && cached != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(cached))
		return
	}

	all, err := engine.LoadAllAttractions(r.Context())
	if err != nil {
		respondRejection(w, err)
		return
	}
	directory := engine.ProjectDirectory(all)

	if data, err := json.Marshal(directory); err == nil {
		if err := rdx.RdxSet(rdx.DirectoryCacheKey, string(data), rdx.DirectoryCacheTTL); err != nil {
			log.Printf("directory cache set: %v", err)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, directory)
}

// viewerStatus is the caller's own standing at the attraction, attached
// when the read carries a session.
type viewerStatus struct {
	TicketID    string `json:"ticketId,omitempty"`
	GroupsAhead int    `json:"groupsAhead"`
	Called      bool   `json:"called"`
}

// GetAttraction serves one attraction document. Restriction lists, the
// password and the counter are stripped by the JSON tags; slot counts and
// the queue travel as-is so clients derive their own views. With a session
// (the route uses OptionalAuth) the response also carries the caller's own
// queue standing.
func GetAttraction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := engine.LoadAttraction(r.Context(), ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	payload := utils.M{"attraction": a}
	if userID, ok := requestUserID(r); ok {
		if position, called, found := engine.PositionOf(a, userID); found {
			payload["viewer"] = viewerStatus{
				TicketID:    ticketIDOf(a, userID),
				GroupsAhead: position,
				Called:      called,
			}
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, payload)
}

func ticketIDOf(a *models.Attraction, userID string) string {
	for _, t := range a.Queue {
		if t.UserID == userID {
			return t.TicketID
		}
	}
	return ""
}

type attractionInput struct {
	Name         string `json:"name"`
	Department   string `json:"department"`
	ImageURL     string `json:"imageUrl"`
	Description  string `json:"description"`
	Password     string `json:"password"`
	Mode         string `json:"mode"`
	OpenTime     string `json:"openTime"`
	CloseTime    string `json:"closeTime"`
	Duration     int    `json:"duration"`
	SlotCapacity int    `json:"slotCapacity"`
	MaxGroupSize int    `json:"maxGroupSize"`
	ConfirmReset bool   `json:"confirmReset"`
}

func (in *attractionInput) validate() string {
	if in.Name == "" {
		return "name is required"
	}
	if len(in.Description) > 500 {
		return "description must be 500 characters or fewer"
	}
	if len(in.Password) != 5 {
		return "password must be exactly 5 characters"
	}
	if in.Mode != models.ModeTimeSlot && in.Mode != models.ModeQueue {
		return "mode must be timeslot or queue"
	}
	if in.SlotCapacity < 1 {
		return "slotCapacity must be at least 1"
	}
	if in.MaxGroupSize < 1 {
		return "maxGroupSize must be at least 1"
	}
	return ""
}

// CreateAttraction registers a new venue. Time-slot mode generates the
// slot map from the timing fields up front.
func CreateAttraction(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := requestUserID(r); !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	var input attractionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := input.validate(); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	a := models.Attraction{
		ID:           utils.GenerateID(12),
		Name:         input.Name,
		Department:   input.Department,
		ImageURL:     input.ImageURL,
		Description:  input.Description,
		Password:     input.Password,
		Mode:         input.Mode,
		OpenTime:     input.OpenTime,
		CloseTime:    input.CloseTime,
		Duration:     input.Duration,
		SlotCapacity: input.SlotCapacity,
		MaxGroupSize: input.MaxGroupSize,
		Slots:        map[string]int{},
	}
	if a.Mode == models.ModeTimeSlot {
		labels, err := engine.GenerateSlotLabels(a.OpenTime, a.CloseTime, a.Duration)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Slots = engine.NewSlotMap(labels)
	}

	if _, err := db.AttractionsCollection.InsertOne(r.Context(), a); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create attraction")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, a)
}

var (
	errModeChange   = errors.New("mode cannot be changed after creation")
	errNeedsConfirm = errors.New("changing the timing regenerates all slots and clears their counts; retry with confirmReset")
)

// buildEditSet turns a validated edit into the $set document. The mode is
// fixed at creation; a timing change on a time-slot venue regenerates the
// slot map and clears its reservations, so it demands the explicit
// confirmReset flag.
func buildEditSet(a *models.Attraction, input attractionInput) (bson.M, error) {
	if input.Mode != a.Mode {
		return nil, errModeChange
	}

	set := bson.M{
		"name":         input.Name,
		"department":   input.Department,
		"imageUrl":     input.ImageURL,
		"description":  input.Description,
		"password":     input.Password,
		"slotCapacity": input.SlotCapacity,
		"maxGroupSize": input.MaxGroupSize,
		"openTime":     input.OpenTime,
		"closeTime":    input.CloseTime,
		"duration":     input.Duration,
	}

	if a.Mode == models.ModeTimeSlot && !engine.SameTiming(a, input.OpenTime, input.CloseTime, input.Duration) {
		if !input.ConfirmReset {
			return nil, errNeedsConfirm
		}
		labels, err := engine.GenerateSlotLabels(input.OpenTime, input.CloseTime, input.Duration)
		if err != nil {
			return nil, err
		}
		set["slots"] = engine.NewSlotMap(labels)
		set["reservations"] = []models.Reservation{}
	}
	return set, nil
}

// EditAttraction updates venue settings. Changing any timing field wipes
// the slot map along with its committed counts, so that path demands an
// explicit confirmReset flag from the caller.
func EditAttraction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input attractionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := input.validate(); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	set, err := buildEditSet(a, input)
	switch {
	case errors.Is(err, errModeChange), errors.Is(err, errNeedsConfirm):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := db.AttractionsCollection.UpdateOne(r.Context(), bson.M{"_id": a.ID}, bson.M{"$set": set}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update attraction")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"updated": true, "id": a.ID})
}

// PauseAttraction toggles intake. Paused venues reject new bookings and
// queue joins but keep serving what is already committed.
func PauseAttraction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		IsPaused bool `json:"isPaused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	_, err = db.AttractionsCollection.UpdateOne(r.Context(),
		bson.M{"_id": a.ID}, bson.M{"$set": bson.M{"isPaused": input.IsPaused}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update attraction")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"id": a.ID, "isPaused": input.IsPaused})
}

// DeleteAttraction removes the venue document, reservations and queue
// included.
func DeleteAttraction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	if _, err := db.AttractionsCollection.DeleteOne(r.Context(), bson.M{"_id": a.ID}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to delete attraction")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"deleted": true, "id": a.ID})
}

// UploadBanner accepts a multipart banner image, stores it with a
// thumbnail and points the attraction at the new URL.
func UploadBanner(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a, err := requireStaff(r, ps.ByName("id"))
	if err != nil {
		respondRejection(w, err)
		return
	}

	url, err := filemgr.SaveBanner(w, r, a.ID)
	if err != nil {
		// SaveBanner has already written the response on validation errors
		return
	}

	_, err = db.AttractionsCollection.UpdateOne(r.Context(),
		bson.M{"_id": a.ID}, bson.M{"$set": bson.M{"imageUrl": url}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update attraction")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"imageUrl": url})
}
