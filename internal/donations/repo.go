package donations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/pagination"
)

// Repository provides persistence for donation records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, donation *models.Donation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*DonationPage, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	LastDonation(ctx context.Context, userID uuid.UUID) (*models.Donation, error)
}

// DonationPage is one page of a donor's history, newest first.
type DonationPage struct {
	Donations  []models.Donation
	NextCursor string
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a donations repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, donation *models.Donation) error {
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &donation, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Donation{}).Error
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*DonationPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("donated_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"donated_at < ? OR (donated_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Donation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &DonationPage{Donations: rows}
	if len(rows) > limit {
		page.Donations = rows[:limit]
		last := page.Donations[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.DonatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (r *repositoryImpl) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) LastDonation(ctx context.Context, userID uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("donated_at DESC").
		First(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &donation, nil
}
