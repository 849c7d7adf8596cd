package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slotwise/reservation-engine/internal/models"
)

// StoreRepository persists Store tenant rows.
type StoreRepository struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) Create(ctx context.Context, store *models.Store) error {
	if err := r.db.WithContext(ctx).Create(store).Error; err != nil {
		return fmt.Errorf("error creating store: %w", err)
	}
	return nil
}

func (r *StoreRepository) GetByID(ctx context.Context, storeID string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching store %s: %w", storeID, err)
	}
	return &store, nil
}

// GetByIDForUpdate loads the store row with a row-level lock, used inside
// the admission transaction alongside the advisory lock.
func (r *StoreRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, storeID string) (*models.Store, error) {
	var store models.Store
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&store, "id = ?", storeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching store %s: %w", storeID, err)
	}
	return &store, nil
}

func (r *StoreRepository) Update(ctx context.Context, store *models.Store) error {
	if err := r.db.WithContext(ctx).Save(store).Error; err != nil {
		return fmt.Errorf("error updating store %s: %w", store.ID, err)
	}
	return nil
}

// Lock acquires a per-store advisory lock for the duration of tx, per
// spec.md §5's serializable-isolation fallback.
func Lock(ctx context.Context, tx *gorm.DB, storeID string) error {
	if err := tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", storeID).Error; err != nil {
		return fmt.Errorf("failed to acquire store lock for %s: %w", storeID, err)
	}
	return nil
}
