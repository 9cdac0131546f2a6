package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"insidertracker/src/model"

	logger "github.com/sirupsen/logrus"
)

// SessionResolver resolves a bearer token to a session and the session
// to its user. Satisfied by repository.UserRepository.
type SessionResolver interface {
	FindSessionByToken(ctx context.Context, token string, now time.Time) (*model.Session, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

// RequireUser rejects requests without a valid bearer token and puts
// the resolved user into the request context.
func RequireUser(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			session, err := sessions.FindSessionByToken(r.Context(), token, time.Now())
			if err != nil {
				logger.WithError(err).Error("session lookup failed")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if session == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := sessions.GetByID(r.Context(), session.UserID)
			if err != nil {
				logger.WithError(err).WithField("user_id", session.UserID).
					Warn("session points at missing user")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
