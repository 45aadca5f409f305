package admin

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"matsuri/db"
	"matsuri/engine"
	"matsuri/models"
	"matsuri/mq"
	"matsuri/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

func respondRejection(w http.ResponseWriter, err error) {
	utils.RespondWithError(w, engine.HTTPStatus(err), err.Error())
}

// ListUsers returns the full user directory, pinned users first, then
// newest first.
func ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cursor, err := db.UserCollection.Find(r.Context(), bson.M{})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load users")
		return
	}
	defer cursor.Close(r.Context())

	var users []models.User
	if err := cursor.All(r.Context(), &users); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load users")
		return
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].IsPinned != users[j].IsPinned {
			return users[i].IsPinned
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	if users == nil {
		users = []models.User{}
	}
	utils.RespondWithJSON(w, http.StatusOK, users)
}

// UpdateUser patches the council-managed user fields: nickname, memo,
// pin and the global ban flag.
func UpdateUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var input struct {
		Nickname *string `json:"nickname"`
		Memo     *string `json:"memo"`
		IsPinned *bool   `json:"isPinned"`
		IsBanned *bool   `json:"isBanned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	set := bson.M{}
	if input.Nickname != nil {
		set["nickname"] = *input.Nickname
	}
	if input.Memo != nil {
		set["memo"] = *input.Memo
	}
	if input.IsPinned != nil {
		set["isPinned"] = *input.IsPinned
	}
	if input.IsBanned != nil {
		set["isBanned"] = *input.IsBanned
	}
	if len(set) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	userID := ps.ByName("userId")
	result, err := db.UserCollection.UpdateOne(r.Context(), bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "user not found")
		return
	}

	if input.IsBanned != nil && *input.IsBanned {
		mq.EmitAudit(models.AuditEvent{
			Event:  "user.banned",
			UserID: userID,
			Actor:  "council",
			At:     time.Now(),
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"updated": true, "userId": userID})
}

// WipeUserTickets removes every reservation and queue ticket the user
// holds, across all attractions, rebuilding each touched slot counter from
// the surviving reservations.
func WipeUserTickets(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("userId")

	all, err := engine.LoadAllAttractions(r.Context())
	if err != nil {
		respondRejection(w, err)
		return
	}

	removed := 0
	for i := range all {
		a := &all[i]
		touched := false
		slotDelta := map[string]int{}
		for _, res := range a.Reservations {
			if res.UserID == userID {
				touched = true
				removed++
				slotDelta[res.Time]++
			}
		}
		for _, t := range a.Queue {
			if t.UserID == userID {
				touched = true
				removed++
			}
		}
		if !touched {
			continue
		}

		update := bson.M{"$pull": bson.M{
			"reservations": bson.M{"userId": userID},
			"queue":        bson.M{"userId": userID},
		}}
		if _, err := db.AttractionsCollection.UpdateOne(r.Context(), bson.M{"_id": a.ID}, update); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "failed to update "+a.ID)
			return
		}
		for label := range slotDelta {
			n := engine.RecountSlot(a, label) - slotDelta[label]
			if n < 0 {
				n = 0
			}
			if _, err := db.AttractionsCollection.UpdateOne(r.Context(),
				bson.M{"_id": a.ID}, bson.M{"$set": bson.M{"slots." + label: n}}); err != nil {
				utils.RespondWithError(w, http.StatusInternalServerError, "failed to update "+a.ID)
				return
			}
		}
	}

	mq.EmitAudit(models.AuditEvent{
		Event:  "user.wiped",
		UserID: userID,
		Count:  removed,
		Actor:  "council",
		At:     time.Now(),
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"userId": userID, "removed": removed})
}

// DeleteUser removes the user document. Their live tickets, if any,
// survive until wiped separately.
func DeleteUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := ps.ByName("userId")
	result, err := db.UserCollection.DeleteOne(r.Context(), bson.M{"_id": userID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if result.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "user not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"deleted": true, "userId": userID})
}

func allUserIDs(r *http.Request) ([]string, error) {
	cursor, err := db.UserCollection.Find(r.Context(), bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(r.Context())

	var users []models.User
	if err := cursor.All(r.Context(), &users); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}
	return ids, nil
}
