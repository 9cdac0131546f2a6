package repository

import (
	"context"
	"errors"
	"time"

	"insidertracker/src/database"
	"insidertracker/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UserRepository handles accounts and the session tokens issued to them.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository() *UserRepository {
	logger.WithField("component", "UserRepository").
		Info("Creating new UserRepository with MainDB")

	return &UserRepository{db: database.MainDB}
}

func (r *UserRepository) WithDB(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByUsername returns the account for a username, nil when unknown.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID fetches one account.
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create registers a new account.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// CreateSession persists a newly issued bearer token.
func (r *UserRepository) CreateSession(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindSessionByToken resolves a bearer token to its session. Expired
// sessions are deleted on sight and reported as not found.
func (r *UserRepository) FindSessionByToken(ctx context.Context, token string, now time.Time) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(now) {
		if err := r.db.WithContext(ctx).Delete(&session).Error; err != nil {
			logger.WithError(err).Warn("[UserRepository] failed to delete expired session")
		}
		return nil, nil
	}
	return &session, nil
}

// DeleteSession revokes a token on logout.
func (r *UserRepository) DeleteSession(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&model.Session{}).Error
}
