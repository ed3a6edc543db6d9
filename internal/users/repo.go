package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

// Repository exposes persistence helpers for users.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	SearchDonors(ctx context.Context, params searchDonorsParams) ([]models.User, error)
	FanOutCandidates(ctx context.Context, params FanOutParams) ([]models.User, error)
	AllLocations(ctx context.Context) (map[uuid.UUID]types.Point, error)
	ReminderCohort(ctx context.Context, window ReminderWindow) ([]ReminderCandidate, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a users repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type searchDonorsParams struct {
	BloodType *enums.BloodType
	City      *string
	Region    *string
	Limit     int
}

// FanOutParams selects notifiable donors for a request fan-out.
type FanOutParams struct {
	BloodTypes []enums.BloodType
	Exclude    uuid.UUID
	Limit      int
}

// ReminderWindow bounds the last-donation date for a reminder cohort.
type ReminderWindow struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// ReminderCandidate pairs a donor with their most recent donation.
type ReminderCandidate struct {
	User          models.User
	LastDonatedAt time.Time
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *repositoryImpl) SearchDonors(ctx context.Context, params searchDonorsParams) ([]models.User, error) {
	query := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("mode IN ?", []enums.UserMode{enums.UserModeDonor, enums.UserModeBoth}).
		Where("blood_type IS NOT NULL")
	if params.BloodType != nil {
		query = query.Where("blood_type = ?", *params.BloodType)
	}
	if params.City != nil {
		query = query.Where("LOWER(city) = LOWER(?)", *params.City)
	}
	if params.Region != nil {
		query = query.Where("LOWER(region) = LOWER(?)", *params.Region)
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var users []models.User
	err := query.Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *repositoryImpl) FanOutCandidates(ctx context.Context, params FanOutParams) ([]models.User, error) {
	if len(params.BloodTypes) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("mode IN ?", []enums.UserMode{enums.UserModeDonor, enums.UserModeBoth}).
		Where("blood_type IN ?", params.BloodTypes).
		Where("is_available IS NOT FALSE").
		Where("notify_matching_requests IS NOT FALSE").
		Where("push_token IS NOT NULL AND push_token <> ''")
	if params.Exclude != uuid.Nil {
		query = query.Where("id <> ?", params.Exclude)
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var users []models.User
	err := query.Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *repositoryImpl) AllLocations(ctx context.Context) (map[uuid.UUID]types.Point, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Select("id", "location").
		Where("location IS NOT NULL").
		Where("mode IN ?", []enums.UserMode{enums.UserModeDonor, enums.UserModeBoth}).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	entries := make(map[uuid.UUID]types.Point, len(users))
	for _, user := range users {
		if user.Location != nil {
			entries[user.ID] = *user.Location
		}
	}
	return entries, nil
}

func (r *repositoryImpl) ReminderCohort(ctx context.Context, window ReminderWindow) ([]ReminderCandidate, error) {
	rows := []struct {
		models.User
		LastDonatedAt time.Time `gorm:"column:last_donated_at"`
	}{}

	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.*, d.last_donated_at").
		Joins("JOIN (SELECT user_id, MAX(donated_at) AS last_donated_at FROM donations GROUP BY user_id) d ON d.user_id = users.id").
		Where("d.last_donated_at > ? AND d.last_donated_at <= ?", window.NotBefore, window.NotAfter).
		Where("users.mode IN ?", []enums.UserMode{enums.UserModeDonor, enums.UserModeBoth}).
		Where("users.notify_eligibility IS NOT FALSE").
		Where("users.push_token IS NOT NULL AND users.push_token <> ''").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	candidates := make([]ReminderCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, ReminderCandidate{
			User:          row.User,
			LastDonatedAt: row.LastDonatedAt,
		})
	}
	return candidates, nil
}

func (r *repositoryImpl) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_eligibility_reminder_at", at).Error
}
