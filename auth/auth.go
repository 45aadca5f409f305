package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"time"

	"matsuri/db"
	"matsuri/globals"
	"matsuri/middleware"
	"matsuri/models"
	"matsuri/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 24 * time.Hour

// UserTokenLength is the width of the visitor-facing identifier.
const UserTokenLength = 6

var userTokenPattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// StartSession issues an anonymous session for a visitor token. The token
// is client-held and nothing verifies ownership; the session only
// authorizes store access, it is not the identity. Clients that present no
// token get a fresh one.
func StartSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		UserID string `json:"userId"`
	}
	// an empty body is a first visit
	_ = json.NewDecoder(r.Body).Decode(&input)

	userID := input.UserID
	if userID == "" {
		userID = utils.GenerateUserToken(UserTokenLength)
	}
	if !userTokenPattern.MatchString(userID) {
		utils.RespondWithError(w, http.StatusBadRequest, "user token must be 6 upper-alphanumeric characters")
		return
	}

	if err := ensureUser(r.Context(), userID); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	claims := middleware.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(globals.JwtSecret)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to sign session token")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"userId": userID,
		"token":  signed,
	})
}

// ensureUser is createIfAbsent on the user document.
func ensureUser(ctx context.Context, userID string) error {
	_, err := db.UserCollection.InsertOne(ctx, models.User{
		UserID:    userID,
		CreatedAt: time.Now(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// Me returns the caller's own user record, primarily so clients can watch
// their ban state.
func Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "no session")
		return
	}

	var user models.User
	err := db.UserCollection.FindOne(r.Context(), bson.M{"_id": userID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		user = models.User{UserID: userID}
	} else if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// RequireAdminKey gates council endpoints on the X-Admin-Key header,
// checked against the bcrypt hash in ADMIN_KEY_HASH.
func RequireAdminKey(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hash := os.Getenv("ADMIN_KEY_HASH")
		if hash == "" {
			http.Error(w, "admin console disabled", http.StatusForbidden)
			return
		}
		key := r.Header.Get("X-Admin-Key")
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
			http.Error(w, "invalid admin key", http.StatusForbidden)
			return
		}
		next(w, r, ps)
	}
}
