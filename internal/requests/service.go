package requests

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/pkg/config"
	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/outbox"
	"github.com/qanlink/qanlink-backend/pkg/outbox/payloads"
	"github.com/qanlink/qanlink-backend/pkg/pagination"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

const (
	minUnits     = 1
	maxUnits     = 10
	maxNotesLen  = 500
	maxOpenLimit = 50
)

// CreateParams describes a new blood request.
type CreateParams struct {
	BloodType    enums.BloodType
	Urgency      enums.RequestUrgency
	Units        int
	Hospital     string
	City         *string
	Location     *types.Point
	Notes        *string
	ContactPhone *string
}

// BroadcastParams describes an emergency broadcast. Units and urgency
// are fixed by the operation.
type BroadcastParams struct {
	BloodType    enums.BloodType
	Hospital     string
	City         *string
	Location     *types.Point
	Notes        *string
	ContactPhone *string
}

// SearchParams filters the open-request market.
type SearchParams struct {
	BloodType *enums.BloodType
	Urgency   *enums.RequestUrgency
	City      *string
	Limit     int
}

// Service owns the request lifecycle and its discovery queries.
type Service interface {
	Create(ctx context.Context, seekerID uuid.UUID, params CreateParams) (*View, error)
	BroadcastEmergency(ctx context.Context, seekerID uuid.UUID, params BroadcastParams) (*View, error)
	Accept(ctx context.Context, donorID, requestID uuid.UUID) (*View, error)
	Decline(ctx context.Context, donorID, requestID uuid.UUID) error
	Cancel(ctx context.Context, seekerID, requestID uuid.UUID) error
	Complete(ctx context.Context, seekerID, requestID uuid.UUID) error
	Detail(ctx context.Context, viewerID, requestID uuid.UUID) (*View, error)
	ForSeeker(ctx context.Context, seekerID uuid.UUID, params pagination.Params) (*Page, error)
	ForDonor(ctx context.Context, donorID uuid.UUID) ([]View, error)
	OpenSearch(ctx context.Context, viewerID uuid.UUID, params SearchParams) ([]View, error)
	HomeFeed(ctx context.Context, userID uuid.UUID) ([]View, error)
	HelpedCount(ctx context.Context, donorID uuid.UUID) (int64, error)
}

// userDirectory is the slice of the users layer this service reads.
type userDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

// txRunner runs a function inside one database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// eventEmitter queues a domain event in the same transaction as the
// state change it describes.
type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires requests dependencies.
type ServiceParams struct {
	Repo    Repository
	Users   userDirectory
	DB      txRunner
	Emitter eventEmitter
	Config  config.RequestsConfig
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	users   userDirectory
	db      txRunner
	emitter eventEmitter
	cfg     config.RequestsConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires requests dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event emitter required")
	}
	if params.Config.EmergencyBroadcastWindow <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "broadcast window must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		users:   params.Users,
		db:      params.DB,
		emitter: params.Emitter,
		cfg:     params.Config,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) Create(ctx context.Context, seekerID uuid.UUID, params CreateParams) (*View, error) {
	seeker, err := s.seekerFor(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	request, err := buildRequest(seekerID, params)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCreated,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: seekerID, Role: "seeker"},
			Data: payloads.RequestCreatedEvent{
				RequestID: request.ID,
				SeekerID:  seekerID,
				BloodType: request.BloodType,
				Urgency:   request.Urgency,
				Hospital:  request.Hospital,
				City:      derefOrEmpty(request.City),
				CreatedAt: s.now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "request_id", request.ID.String()), "request created")
	}
	view := toView(request, seeker, nil, seekerID)
	return &view, nil
}

func (s *service) BroadcastEmergency(ctx context.Context, seekerID uuid.UUID, params BroadcastParams) (*View, error) {
	seeker, err := s.seekerFor(ctx, seekerID)
	if err != nil {
		return nil, err
	}

	since := s.now().Add(-s.cfg.EmergencyBroadcastWindow)
	recent, err := s.repo.HasRecentEmergency(ctx, seekerID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check broadcast window")
	}
	if recent {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "an emergency request was already broadcast within the last hour")
	}

	request, err := buildRequest(seekerID, CreateParams{
		BloodType:    params.BloodType,
		Urgency:      enums.RequestUrgencyCritical,
		Units:        minUnits,
		Hospital:     params.Hospital,
		City:         params.City,
		Location:     params.Location,
		Notes:        params.Notes,
		ContactPhone: params.ContactPhone,
	})
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEmergencyBroadcast,
			AggregateType: enums.AggregateRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: seekerID, Role: "seeker"},
			Data: payloads.EmergencyBroadcastEvent{
				RequestID:     request.ID,
				SeekerID:      seekerID,
				BloodType:     request.BloodType,
				Urgency:       request.Urgency,
				Hospital:      request.Hospital,
				BroadcastedAt: s.now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "broadcast request")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "request_id", request.ID.String()), "emergency broadcast created")
	}
	view := toView(request, seeker, nil, seekerID)
	return &view, nil
}

func (s *service) Accept(ctx context.Context, donorID, requestID uuid.UUID) (*View, error) {
	donor, err := s.mustGetUser(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !donor.Mode.CanDonate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is not in donor mode")
	}
	if !donor.IsAvailable.Effective(true) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "availability is switched off")
	}
	if donor.BloodType == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "set a blood type before accepting requests")
	}

	request, err := s.mustGetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.SeekerID == donorID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot accept your own request")
	}
	if !donor.BloodType.CanDonateTo(request.BloodType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "blood types are not compatible")
	}

	acceptedAt := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).AcceptOpen(ctx, requestID, donorID, acceptedAt)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request is no longer open")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestAccepted,
			AggregateType: enums.AggregateRequest,
			AggregateID:   requestID,
			Actor:         &outbox.ActorRef{UserID: donorID, Role: "donor"},
			Data: payloads.RequestAcceptedEvent{
				RequestID:  requestID,
				SeekerID:   request.SeekerID,
				DonorID:    donorID,
				DonorName:  donor.Name,
				AcceptedAt: acceptedAt,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept request")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "request_id", requestID.String()), "request accepted")
	}
	return s.Detail(ctx, donorID, requestID)
}

// Decline acknowledges a donor passing on a request. State is left
// untouched; per-donor suppression may hang off this later.
func (s *service) Decline(ctx context.Context, donorID, requestID uuid.UUID) error {
	if _, err := s.mustGetRequest(ctx, requestID); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"request_id": requestID.String(),
			"donor_id":   donorID.String(),
		}), "request declined")
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, seekerID, requestID uuid.UUID) error {
	request, err := s.mustGetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.SeekerID != seekerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the request owner can cancel")
	}

	ok, err := s.repo.CancelOpen(ctx, requestID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel request")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only open requests can be cancelled")
	}
	return nil
}

func (s *service) Complete(ctx context.Context, seekerID, requestID uuid.UUID) error {
	request, err := s.mustGetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.SeekerID != seekerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the request owner can complete")
	}

	ok, err := s.repo.CompleteAccepted(ctx, requestID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete request")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only accepted requests can be completed")
	}
	return nil
}

func (s *service) Detail(ctx context.Context, viewerID, requestID uuid.UUID) (*View, error) {
	request, err := s.mustGetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	ids := []uuid.UUID{request.SeekerID}
	if request.AcceptedBy != nil {
		ids = append(ids, *request.AcceptedBy)
	}
	parties, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request parties")
	}

	var seeker, donor *models.User
	for i := range parties {
		party := parties[i]
		if party.ID == request.SeekerID {
			seeker = &party
		}
		if request.AcceptedBy != nil && party.ID == *request.AcceptedBy {
			donor = &party
		}
	}

	view := toView(request, seeker, donor, viewerID)
	return &view, nil
}

func (s *service) ForSeeker(ctx context.Context, seekerID uuid.UUID, params pagination.Params) (*Page, error) {
	page, err := s.repo.ListBySeeker(ctx, seekerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seeker requests")
	}

	donorIDs := make([]uuid.UUID, 0)
	for _, request := range page.Requests {
		if request.AcceptedBy != nil {
			donorIDs = append(donorIDs, *request.AcceptedBy)
		}
	}
	donors := map[uuid.UUID]models.User{}
	if len(donorIDs) > 0 {
		rows, err := s.users.FindByIDs(ctx, donorIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted donors")
		}
		for _, row := range rows {
			donors[row.ID] = row
		}
	}

	views := make([]View, 0, len(page.Requests))
	for i := range page.Requests {
		request := page.Requests[i]
		var donor *models.User
		if request.AcceptedBy != nil {
			if row, ok := donors[*request.AcceptedBy]; ok {
				donor = &row
			}
		}
		views = append(views, toView(&request, nil, donor, seekerID))
	}
	return &Page{Requests: views, NextCursor: page.NextCursor}, nil
}

func (s *service) ForDonor(ctx context.Context, donorID uuid.UUID) ([]View, error) {
	return s.compatibleOpen(ctx, donorID, maxOpenLimit)
}

func (s *service) HomeFeed(ctx context.Context, userID uuid.UUID) ([]View, error) {
	limit := s.cfg.HomeFeedLimit
	if limit <= 0 {
		limit = 10
	}
	return s.compatibleOpen(ctx, userID, limit)
}

func (s *service) compatibleOpen(ctx context.Context, donorID uuid.UUID, limit int) ([]View, error) {
	donor, err := s.mustGetUser(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if !donor.Mode.CanDonate() || donor.BloodType == nil {
		return []View{}, nil
	}

	rows, err := s.repo.OpenCompatible(ctx, openQuery{
		BloodTypes: donor.BloodType.CompatibleRecipients(),
		DonorCity:  donor.City,
		Exclude:    donorID,
		Limit:      limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list compatible requests")
	}
	return s.feedViews(ctx, rows)
}

func (s *service) OpenSearch(ctx context.Context, viewerID uuid.UUID, params SearchParams) ([]View, error) {
	if params.BloodType != nil && !params.BloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	}
	if params.Urgency != nil && !params.Urgency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid urgency")
	}
	limit := params.Limit
	if limit <= 0 || limit > maxOpenLimit {
		limit = maxOpenLimit
	}

	query := openQuery{
		City:    params.City,
		Urgency: params.Urgency,
		Exclude: viewerID,
		Limit:   limit,
	}
	if params.BloodType != nil {
		query.BloodTypes = []enums.BloodType{*params.BloodType}
	}

	rows, err := s.repo.OpenCompatible(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search open requests")
	}
	return s.feedViews(ctx, rows)
}

func (s *service) HelpedCount(ctx context.Context, donorID uuid.UUID) (int64, error) {
	count, err := s.repo.CountCompletedBy(ctx, donorID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completed requests")
	}
	return count, nil
}

func (s *service) seekerFor(ctx context.Context, seekerID uuid.UUID) (*models.User, error) {
	seeker, err := s.mustGetUser(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	if seeker.Mode == enums.UserModeDonor {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is not in seeker mode")
	}
	return seeker, nil
}

func (s *service) mustGetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

func (s *service) mustGetRequest(ctx context.Context, requestID uuid.UUID) (*models.Request, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	if request == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	return request, nil
}

func buildRequest(seekerID uuid.UUID, params CreateParams) (*models.Request, error) {
	if !params.BloodType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid blood type")
	}
	if !params.Urgency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid urgency")
	}
	units := params.Units
	if units == 0 {
		units = minUnits
	}
	if units < minUnits || units > maxUnits {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "units must be between 1 and 10")
	}
	if params.Notes != nil && len(*params.Notes) > maxNotesLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notes are too long")
	}
	if params.Location != nil {
		if err := params.Location.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinates")
		}
	}

	return &models.Request{
		ID:           uuid.New(),
		SeekerID:     seekerID,
		BloodType:    params.BloodType,
		Urgency:      params.Urgency,
		Status:       enums.RequestStatusOpen,
		Units:        units,
		Hospital:     strings.TrimSpace(params.Hospital),
		City:         trimOptional(params.City),
		Location:     params.Location,
		Notes:        trimOptional(params.Notes),
		ContactPhone: trimOptional(params.ContactPhone),
	}, nil
}

// feedViews annotates each open request with its seeker's id and city.
// Missing seeker rows degrade to an id-only annotation.
func (s *service) feedViews(ctx context.Context, rows []models.Request) ([]View, error) {
	seekerIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]struct{}{}
	for _, row := range rows {
		if _, ok := seen[row.SeekerID]; ok {
			continue
		}
		seen[row.SeekerID] = struct{}{}
		seekerIDs = append(seekerIDs, row.SeekerID)
	}

	seekers := map[uuid.UUID]models.User{}
	if len(seekerIDs) > 0 {
		users, err := s.users.FindByIDs(ctx, seekerIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request seekers")
		}
		for _, user := range users {
			seekers[user.ID] = user
		}
	}

	views := make([]View, 0, len(rows))
	for _, row := range rows {
		var seeker *models.User
		if user, ok := seekers[row.SeekerID]; ok {
			seeker = &user
		}
		views = append(views, toFeedView(row, seeker))
	}
	return views, nil
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

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
