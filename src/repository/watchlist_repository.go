package repository

import (
	"context"

	"insidertracker/src/database"
	"insidertracker/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WatchlistRepository handles named ticker watchlists and their items.
type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository() *WatchlistRepository {
	logger.WithField("component", "WatchlistRepository").
		Info("Creating new WatchlistRepository with MainDB")

	return &WatchlistRepository{db: database.MainDB}
}

func (r *WatchlistRepository) WithDB(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// List returns every watchlist with its items preloaded.
func (r *WatchlistRepository) List(ctx context.Context) ([]model.Watchlist, error) {
	var rows []model.Watchlist
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("name").
		Find(&rows).Error
	return rows, err
}

// FindByID fetches one watchlist with its items.
func (r *WatchlistRepository) FindByID(ctx context.Context, id uint) (*model.Watchlist, error) {
	var row model.Watchlist
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&row, id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a new empty watchlist.
func (r *WatchlistRepository) Create(ctx context.Context, wl *model.Watchlist) error {
	return r.db.WithContext(ctx).Create(wl).Error
}

// Delete removes a watchlist and its items.
func (r *WatchlistRepository) Delete(ctx context.Context, wl *model.Watchlist) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("watchlist_id = ?", wl.ID).Delete(&model.WatchlistItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(wl).Error
	})
}

// AddItem appends a ticker to a watchlist. A duplicate ticker trips the
// unique index and surfaces as gorm.ErrDuplicatedKey.
func (r *WatchlistRepository) AddItem(ctx context.Context, item *model.WatchlistItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// RemoveItem drops a ticker from a watchlist. Returns the number of
// rows removed so callers can distinguish a miss.
func (r *WatchlistRepository) RemoveItem(ctx context.Context, watchlistID uint, ticker string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("watchlist_id = ? AND ticker = ?", watchlistID, ticker).
		Delete(&model.WatchlistItem{})
	return result.RowsAffected, result.Error
}
