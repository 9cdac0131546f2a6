package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"insidertracker/src/auth"
	"insidertracker/src/model"
	"insidertracker/src/repository"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// SessionTTL is how long an issued bearer token stays valid.
const SessionTTL = 7 * 24 * time.Hour

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	CreateSession(ctx context.Context, session *model.Session) error
	DeleteSession(ctx context.Context, token string) error
}

// RegisterHandler creates an account. Usernames are unique; the
// password is stored as a bcrypt hash only.
func RegisterHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.RegisterPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid register payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		username := strings.TrimSpace(payload.Username)
		if username == "" || len(payload.Password) < 8 {
			http.Error(w, "Username and a password of at least 8 characters are required", http.StatusBadRequest)
			return
		}

		existing, err := users.GetByUsername(r.Context(), username)
		if err != nil {
			logger.WithError(err).Error("failed to check username")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if existing != nil {
			http.Error(w, "Username already taken", http.StatusConflict)
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.WithError(err).Error("failed to hash password")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		user := &model.User{
			Username:       username,
			HashedPassword: string(hashed),
		}
		if err := users.Create(r.Context(), user); err != nil {
			logger.WithError(err).Error("failed to create user")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, user.ToResponse())
	}
}

// LoginHandler verifies credentials and issues a bearer token.
func LoginHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload model.LoginPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid login payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		user, err := users.GetByUsername(r.Context(), strings.TrimSpace(payload.Username))
		if err != nil {
			logger.WithError(err).Error("failed to look up user")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(payload.Password)); err != nil {
			logger.WithField("username", payload.Username).Warn("password mismatch")
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}

		session := &model.Session{
			UserID:    user.ID,
			Token:     uuid.NewString(),
			ExpiresAt: time.Now().Add(SessionTTL),
		}
		if err := users.CreateSession(r.Context(), session); err != nil {
			logger.WithError(err).Error("failed to create session")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, model.TokenResponse{
			AccessToken: session.Token,
			TokenType:   "bearer",
		})
	}
}

// LogoutHandler revokes the presented bearer token.
func LogoutHandler(users userStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err := users.DeleteSession(r.Context(), strings.TrimSpace(parts[1])); err != nil {
			logger.WithError(err).Error("failed to delete session")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}

// MeHandler returns the authenticated user.
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user.ToResponse())
	}
}

func DefaultRegisterHandler() http.HandlerFunc {
	return RegisterHandler(repository.NewUserRepository())
}

func DefaultLoginHandler() http.HandlerFunc {
	return LoginHandler(repository.NewUserRepository())
}

func DefaultLogoutHandler() http.HandlerFunc {
	return LogoutHandler(repository.NewUserRepository())
}
