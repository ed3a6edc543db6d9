package donations

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/internal/eligibility"
	"github.com/qanlink/qanlink-backend/pkg/db/models"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/pagination"
)

// AddParams describes a donation being recorded by its donor.
type AddParams struct {
	DonatedAt time.Time
	RequestID *uuid.UUID
	Location  *string
	Notes     *string
}

// Stats summarizes a donor's recorded history.
type Stats struct {
	TotalDonations int64              `json:"totalDonations"`
	LastDonatedAt  *time.Time         `json:"lastDonatedAt,omitempty"`
	NextEligibleAt *time.Time         `json:"nextEligibleAt,omitempty"`
	Eligibility    eligibility.Status `json:"eligibility"`
}

// Service manages donation history and eligibility.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, params AddParams) (*models.Donation, error)
	Delete(ctx context.Context, userID, donationID uuid.UUID) error
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*DonationPage, error)
	Stats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	Eligibility(ctx context.Context, userID uuid.UUID) (*eligibility.Status, error)
}

// ServiceParams wires donations dependencies.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires donations dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "donations repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, logg: params.Logger, now: now}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, params AddParams) (*models.Donation, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if params.DonatedAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation date required")
	}
	if params.DonatedAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation date cannot be in the future")
	}

	donation := models.Donation{
		UserID:    userID,
		RequestID: params.RequestID,
		DonatedAt: params.DonatedAt.UTC(),
		Location:  trimOptional(params.Location),
		Notes:     trimOptional(params.Notes),
	}
	if err := s.repo.Create(ctx, &donation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record donation")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "donation recorded")
	}
	return &donation, nil
}

func (s *service) Delete(ctx context.Context, userID, donationID uuid.UUID) error {
	donation, err := s.repo.GetByID(ctx, donationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
	}
	if donation == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
	}
	if donation.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "donation belongs to another donor")
	}
	if err := s.repo.Delete(ctx, donationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete donation")
	}
	return nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*DonationPage, error) {
	page, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list donations")
	}
	return page, nil
}

func (s *service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count donations")
	}
	status, err := s.Eligibility(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalDonations: total,
		LastDonatedAt:  status.LastDonatedAt,
		NextEligibleAt: status.NextEligibleAt,
		Eligibility:    *status,
	}, nil
}

func (s *service) Eligibility(ctx context.Context, userID uuid.UUID) (*eligibility.Status, error) {
	last, err := s.repo.LastDonation(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last donation")
	}
	var lastDonatedAt *time.Time
	if last != nil {
		lastDonatedAt = &last.DonatedAt
	}
	status := eligibility.Evaluate(lastDonatedAt, s.now())
	return &status, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
