package requests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/pagination"
)

// urgencyOrder sorts critical first, then by recency. The CASE keeps
// the ordering portable between postgres and the sqlite test driver.
const urgencyOrder = `CASE urgency
WHEN 'critical' THEN 0
WHEN 'urgent' THEN 1
WHEN 'normal' THEN 2
ELSE 3
END, created_at DESC`

// Repository provides persistence for blood requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	AcceptOpen(ctx context.Context, requestID, donorID uuid.UUID, at time.Time) (bool, error)
	CancelOpen(ctx context.Context, requestID uuid.UUID, at time.Time) (bool, error)
	CompleteAccepted(ctx context.Context, requestID uuid.UUID, at time.Time) (bool, error)
	HasRecentEmergency(ctx context.Context, seekerID uuid.UUID, since time.Time) (bool, error)
	ListBySeeker(ctx context.Context, seekerID uuid.UUID, params pagination.Params) (*RequestPage, error)
	CountCompletedBy(ctx context.Context, donorID uuid.UUID) (int64, error)
	OpenCompatible(ctx context.Context, params openQuery) ([]models.Request, error)
}

// RequestPage is one page of requests, newest first.
type RequestPage struct {
	Requests   []models.Request
	NextCursor string
}

type openQuery struct {
	// BloodTypes limits results to requests these donor types can serve.
	BloodTypes []enums.BloodType
	City       *string
	// DonorCity keeps same-city and city-less requests, dropping only
	// requests that name a different city.
	DonorCity *string
	Urgency   *enums.RequestUrgency
	Exclude   uuid.UUID
	Limit     int
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a requests repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, request *models.Request) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// AcceptOpen flips an open request to accepted. The status predicate in
// the UPDATE makes concurrent accepts race on the row: only the first
// commit sees status=open, everyone else gets false back.
func (r *repositoryImpl) AcceptOpen(ctx context.Context, requestID, donorID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", requestID, enums.RequestStatusOpen).
		Updates(map[string]any{
			"status":      enums.RequestStatusAccepted,
			"accepted_by": donorID,
			"accepted_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repositoryImpl) CancelOpen(ctx context.Context, requestID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", requestID, enums.RequestStatusOpen).
		Updates(map[string]any{
			"status":       enums.RequestStatusCancelled,
			"cancelled_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repositoryImpl) CompleteAccepted(ctx context.Context, requestID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", requestID, enums.RequestStatusAccepted).
		Updates(map[string]any{
			"status":       enums.RequestStatusCompleted,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repositoryImpl) HasRecentEmergency(ctx context.Context, seekerID uuid.UUID, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("seeker_id = ?", seekerID).
		Where("urgency IN ?", []enums.RequestUrgency{enums.RequestUrgencyCritical, enums.RequestUrgencyUrgent}).
		Where("created_at > ?", since).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) ListBySeeker(ctx context.Context, seekerID uuid.UUID, params pagination.Params) (*RequestPage, error) {
	return r.listPage(ctx, params, func(query *gorm.DB) *gorm.DB {
		return query.Where("seeker_id = ?", seekerID)
	})
}

func (r *repositoryImpl) CountCompletedBy(ctx context.Context, donorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("accepted_by = ? AND status = ?", donorID, enums.RequestStatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) listPage(ctx context.Context, params pagination.Params, scope func(*gorm.DB) *gorm.DB) (*RequestPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := scope(r.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Request
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &RequestPage{Requests: rows}
	if len(rows) > limit {
		page.Requests = rows[:limit]
		last := page.Requests[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (r *repositoryImpl) OpenCompatible(ctx context.Context, params openQuery) ([]models.Request, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.RequestStatusOpen)
	if len(params.BloodTypes) > 0 {
		query = query.Where("blood_type IN ?", params.BloodTypes)
	}
	if params.City != nil {
		query = query.Where("LOWER(city) = LOWER(?)", *params.City)
	}
	if params.DonorCity != nil {
		query = query.Where("(city IS NULL OR LOWER(city) = LOWER(?))", *params.DonorCity)
	}
	if params.Urgency != nil {
		query = query.Where("urgency = ?", *params.Urgency)
	}
	if params.Exclude != uuid.Nil {
		query = query.Where("seeker_id <> ?", params.Exclude)
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var rows []models.Request
	err := query.Order(urgencyOrder).Find(&rows).Error
	return rows, err
}
