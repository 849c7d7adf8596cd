package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/models"
)

// CatalogRepository persists treatments and resources.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) CreateTreatment(ctx context.Context, t *models.Treatment) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("error creating treatment: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetTreatment(ctx context.Context, id string) (*models.Treatment, error) {
	var t models.Treatment
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching treatment %s: %w", id, err)
	}
	return &t, nil
}

// GetTreatmentForUpdate reads the treatment row inside tx, after the
// caller has taken the per-store lock. It takes no row lock of its own,
// and UpdateTreatment does not take the store lock.
func (r *CatalogRepository) GetTreatmentForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Treatment, error) {
	var t models.Treatment
	if err := tx.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching treatment %s: %w", id, err)
	}
	return &t, nil
}

func (r *CatalogRepository) UpdateTreatment(ctx context.Context, t *models.Treatment) error {
	if err := r.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("error updating treatment %s: %w", t.ID, err)
	}
	return nil
}

func (r *CatalogRepository) CreateResource(ctx context.Context, res *models.Resource) error {
	if err := r.db.WithContext(ctx).Create(res).Error; err != nil {
		return fmt.Errorf("error creating resource: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	var res models.Resource
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching resource %s: %w", id, err)
	}
	return &res, nil
}

// GetResourceForUpdate reads a resource row inside the admission
// transaction.
func (r *CatalogRepository) GetResourceForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Resource, error) {
	var res models.Resource
	if err := tx.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching resource %s: %w", id, err)
	}
	return &res, nil
}

// ListEligibleStaff returns the active users with role staff in storeID.
// It does not filter by skill level; callers apply
// catalog.CanBePerformedBy for a given treatment.
func (r *CatalogRepository) ListEligibleStaff(ctx context.Context, storeID string) ([]models.User, error) {
	var staff []models.User
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND role = ? AND is_active = ?", storeID, models.RoleStaff, true).
		Find(&staff).Error
	if err != nil {
		return nil, fmt.Errorf("error listing staff for store %s: %w", storeID, err)
	}
	return staff, nil
}
