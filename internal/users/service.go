package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/internal/geo"
	"github.com/qanlink/qanlink-backend/pkg/db"
	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/geocode"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

const (
	defaultNearbyRadiusKM = 50.0
	maxNearbyResults      = 50
)

// Identity carries the verified token claims used for lazy provisioning.
type Identity struct {
	ExternalID string
	Name       string
	Email      string
}

// UpdateProfileParams holds optional profile fields. Nil means leave as is.
type UpdateProfileParams struct {
	Name  *string
	Email *string
	Phone *string
}

// PreferencesUpdate holds optional notification toggles. Unset flags
// keep their stored value.
type PreferencesUpdate struct {
	MatchingRequests types.OptionalBool
	Eligibility      types.OptionalBool
	RequestAccepted  types.OptionalBool
}

// SearchDonorsParams filters the donor directory.
type SearchDonorsParams struct {
	BloodType *enums.BloodType
	City      *string
	Region    *string
	Limit     int
}

// NearbyParams bounds the proximity search around an origin.
type NearbyParams struct {
	Origin   types.Point
	RadiusKM float64
	Limit    int
}

// Service defines account and donor-directory operations.
type Service interface {
	GetOrCreate(ctx context.Context, identity Identity) (*Profile, error)
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*Profile, error)
	SetBloodType(ctx context.Context, userID uuid.UUID, bloodType enums.BloodType) (*Profile, error)
	SetMode(ctx context.Context, userID uuid.UUID, mode enums.UserMode) error
	UpdateLocation(ctx context.Context, userID uuid.UUID, point types.Point) (*Profile, error)
	SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error
	SetPushToken(ctx context.Context, userID uuid.UUID, token string) error
	UpdatePreferences(ctx context.Context, userID uuid.UUID, update PreferencesUpdate) error
	SearchDonors(ctx context.Context, params SearchDonorsParams) ([]DonorView, error)
	NearbyDonors(ctx context.Context, params NearbyParams) ([]DonorView, error)
}

// locationIndex is the slice of the geo layer the service writes to.
type locationIndex interface {
	Upsert(id uuid.UUID, point types.Point)
	Remove(id uuid.UUID)
}

// proximityFinder is the slice of the geo layer the service reads from.
type proximityFinder interface {
	Nearby(origin types.Point, radiusKM float64, limit int) []geo.Match
}

// reverseGeocoder resolves coordinates into place names, best effort.
type reverseGeocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (*geocode.Place, error)
}

// ServiceParams wires users dependencies.
type ServiceParams struct {
	Repo     Repository
	Index    locationIndex
	Finder   proximityFinder
	Geocoder reverseGeocoder
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	index    locationIndex
	finder   proximityFinder
	geocoder reverseGeocoder
	logg     *logger.Logger
}

// NewService wires users dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Index == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "location index required")
	}
	if params.Finder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "proximity finder required")
	}
	return &service{
		repo:     params.Repo,
		index:    params.Index,
		finder:   params.Finder,
		geocoder: params.Geocoder,
		logg:     params.Logger,
	}, nil
}

func (s *service) GetOrCreate(ctx context.Context, identity Identity) (*Profile, error) {
	externalID := strings.TrimSpace(identity.ExternalID)
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external id required")
	}

	existing, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if existing != nil {
		return toProfile(existing), nil
	}

	user := models.User{
		ExternalID: externalID,
		Name:       strings.TrimSpace(identity.Name),
		Mode:       enums.UserModeSeeker,
	}
	if user.Name == "" {
		user.Name = "Anonymous"
	}
	if email := strings.TrimSpace(identity.Email); email != "" {
		user.Email = &email
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		// A concurrent first request may have provisioned the account.
		if db.IsUniqueViolation(err, "ux_users_external_id") {
			existing, lookupErr := s.repo.GetByExternalID(ctx, externalID)
			if lookupErr == nil && existing != nil {
				return toProfile(existing), nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user provisioned")
	}
	return toProfile(&user), nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfile(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*Profile, error) {
	if _, err := s.mustGet(ctx, userID); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		fields["name"] = name
	}
	if params.Email != nil {
		email := strings.TrimSpace(*params.Email)
		if email == "" {
			fields["email"] = nil
		} else {
			fields["email"] = email
		}
	}
	if params.Phone != nil {
		phone := strings.TrimSpace(*params.Phone)
		if phone == "" {
			fields["phone"] = nil
		} else {
			fields["phone"] = phone
		}
	}

	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Get(ctx, userID)
}

func (s *service) SetBloodType(ctx context.Context, userID uuid.UUID, bloodType enums.BloodType) (*Profile, error) {
	if !bloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	}
	user, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"blood_type": bloodType}
	// Declaring a blood type opts a plain seeker into donating.
	if user.BloodType == nil && user.Mode == enums.UserModeSeeker {
		fields["mode"] = enums.UserModeBoth
	}

	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set blood type")
	}
	s.reindex(ctx, userID)
	return s.Get(ctx, userID)
}

func (s *service) SetMode(ctx context.Context, userID uuid.UUID, mode enums.UserMode) error {
	if !mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid user mode")
	}
	if _, err := s.mustGet(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"mode": mode}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set mode")
	}
	s.reindex(ctx, userID)
	return nil
}

func (s *service) UpdateLocation(ctx context.Context, userID uuid.UUID, point types.Point) (*Profile, error) {
	if err := point.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinates")
	}
	if _, err := s.mustGet(ctx, userID); err != nil {
		return nil, err
	}

	fields := map[string]any{"location": point}
	if s.geocoder != nil {
		// Best effort: an unreachable geocoder never blocks the update.
		if place, err := s.geocoder.Reverse(ctx, point.Lat, point.Lng); err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, "reverse geocode failed")
			}
		} else {
			if place.City != "" {
				fields["city"] = place.City
			}
			if place.Region != "" {
				fields["region"] = place.Region
			}
		}
	}

	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update location")
	}
	s.reindex(ctx, userID)
	return s.Get(ctx, userID)
}

func (s *service) SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error {
	if _, err := s.mustGet(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"is_available": available}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set availability")
	}
	return nil
}

func (s *service) SetPushToken(ctx context.Context, userID uuid.UUID, token string) error {
	if _, err := s.mustGet(ctx, userID); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(token)
	var value any
	if trimmed != "" {
		value = trimmed
	}
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{"push_token": value}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set push token")
	}
	return nil
}

func (s *service) UpdatePreferences(ctx context.Context, userID uuid.UUID, update PreferencesUpdate) error {
	if _, err := s.mustGet(ctx, userID); err != nil {
		return err
	}
	fields := map[string]any{}
	if update.MatchingRequests.Valid {
		fields["notify_matching_requests"] = update.MatchingRequests.Bool
	}
	if update.Eligibility.Valid {
		fields["notify_eligibility"] = update.Eligibility.Bool
	}
	if update.RequestAccepted.Valid {
		fields["notify_request_accepted"] = update.RequestAccepted.Bool
	}
	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update preferences")
	}
	return nil
}

func (s *service) SearchDonors(ctx context.Context, params SearchDonorsParams) ([]DonorView, error) {
	if params.BloodType != nil && !params.BloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	}
	limit := params.Limit
	if limit <= 0 || limit > maxNearbyResults {
		limit = maxNearbyResults
	}

	rows, err := s.repo.SearchDonors(ctx, searchDonorsParams{
		BloodType: params.BloodType,
		City:      params.City,
		Region:    params.Region,
		Limit:     limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search donors")
	}

	views := make([]DonorView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toDonorView(row, nil))
	}
	return views, nil
}

func (s *service) NearbyDonors(ctx context.Context, params NearbyParams) ([]DonorView, error) {
	if err := params.Origin.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinates")
	}
	radius := params.RadiusKM
	if radius <= 0 {
		radius = defaultNearbyRadiusKM
	}
	limit := params.Limit
	if limit <= 0 || limit > maxNearbyResults {
		limit = maxNearbyResults
	}

	matches := s.finder.Nearby(params.Origin, radius, 0)
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(matches))
	distances := make(map[uuid.UUID]float64, len(matches))
	for _, match := range matches {
		ids = append(ids, match.ID)
		distances[match.ID] = match.DistanceKM
	}

	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load nearby donors")
	}

	byID := make(map[uuid.UUID]models.User, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	views := make([]DonorView, 0, limit)
	for _, match := range matches {
		user, ok := byID[match.ID]
		if !ok {
			continue
		}
		if !user.Mode.CanDonate() || user.BloodType == nil {
			continue
		}
		if !user.IsAvailable.Effective(true) {
			continue
		}
		distance := distances[match.ID]
		views = append(views, toDonorView(user, &distance))
		if len(views) == limit {
			break
		}
	}
	return views, nil
}

func (s *service) mustGet(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

// reindex recomputes the proximity-index entry: present only for
// donor-capable users with coordinates.
func (s *service) reindex(ctx context.Context, userID uuid.UUID) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil || user == nil {
		if s.logg != nil && err != nil {
			s.logg.Warn(ctx, "reindex lookup failed")
		}
		return
	}
	if user.Location != nil && user.Mode.CanDonate() {
		s.index.Upsert(user.ID, *user.Location)
		return
	}
	s.index.Remove(user.ID)
}
