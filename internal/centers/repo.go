package centers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/pkg/db/models"
)

// Repository provides persistence for donation centers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, center *models.Center) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Center, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Center, error)
	List(ctx context.Context, city *string) ([]models.Center, error)
	Count(ctx context.Context) (int64, error)
	AllLocations(ctx context.Context) (map[uuid.UUID]models.Center, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a centers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, center *models.Center) error {
	return r.db.WithContext(ctx).Create(center).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Center, error) {
	var center models.Center
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&center).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &center, nil
}

func (r *repositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Center, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var centers []models.Center
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&centers).Error
	return centers, err
}

func (r *repositoryImpl) List(ctx context.Context, city *string) ([]models.Center, error) {
	query := r.db.WithContext(ctx).Order("city ASC, name ASC")
	if city != nil {
		query = query.Where("LOWER(city) = LOWER(?)", *city)
	}
	var centers []models.Center
	err := query.Find(&centers).Error
	return centers, err
}

func (r *repositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Center{}).Count(&count).Error
	return count, err
}

func (r *repositoryImpl) AllLocations(ctx context.Context) (map[uuid.UUID]models.Center, error) {
	var centers []models.Center
	if err := r.db.WithContext(ctx).Find(&centers).Error; err != nil {
		return nil, err
	}
	entries := make(map[uuid.UUID]models.Center, len(centers))
	for _, center := range centers {
		entries[center.ID] = center
	}
	return entries, nil
}
