package centers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/internal/geo"
	"github.com/qanlink/qanlink-backend/pkg/db/models"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

const maxNearbyCenters = 20

// View is a center enriched with the distance from a query origin.
type View struct {
	Center     models.Center `json:"center"`
	DistanceKM float64       `json:"distanceKm"`
}

// Service exposes donation center discovery.
type Service interface {
	List(ctx context.Context, city *string) ([]models.Center, error)
	Nearby(ctx context.Context, origin types.Point, maxDistanceKM float64) ([]View, error)
	EnsureSeeded(ctx context.Context) (int, error)
	Reindex(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires centers dependencies.
type ServiceParams struct {
	Repo   Repository
	DB     txRunner
	Index  *geo.Index
	Logger *logger.Logger
}

type service struct {
	repo  Repository
	db    txRunner
	index *geo.Index
	logg  *logger.Logger
}

// NewService wires centers dependencies. Centers keep their own
// proximity index, separate from the donor index.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "centers repository required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Index == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "center index required")
	}
	return &service{
		repo:  params.Repo,
		db:    params.DB,
		index: params.Index,
		logg:  params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, city *string) ([]models.Center, error) {
	centers, err := s.repo.List(ctx, city)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list centers")
	}
	return centers, nil
}

func (s *service) Nearby(ctx context.Context, origin types.Point, maxDistanceKM float64) ([]View, error) {
	if err := origin.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coordinates")
	}

	matches := s.index.Nearby(origin, maxDistanceKM, maxNearbyCenters)
	if len(matches) == 0 {
		return []View{}, nil
	}

	ids := make([]uuid.UUID, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, match.ID)
	}
	centers, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load centers")
	}
	byID := make(map[uuid.UUID]models.Center, len(centers))
	for _, center := range centers {
		byID[center.ID] = center
	}

	// Index entries with no backing row are stale; skip them.
	views := make([]View, 0, len(matches))
	for _, match := range matches {
		center, ok := byID[match.ID]
		if !ok {
			continue
		}
		views = append(views, View{Center: center, DistanceKM: match.DistanceKM})
	}
	return views, nil
}

// EnsureSeeded inserts the default centers on an empty table and
// indexes whatever is present. Safe to run on every startup.
func (s *service) EnsureSeeded(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count centers")
	}

	seeded := 0
	if count == 0 {
		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			for _, seed := range defaultCenters() {
				center := seed
				if err := repo.Create(ctx, &center); err != nil {
					return err
				}
				seeded++
			}
			return nil
		})
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed centers")
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "count", seeded), "donation centers seeded")
		}
	}

	if err := s.Reindex(ctx); err != nil {
		return seeded, err
	}
	return seeded, nil
}

// Reindex rebuilds the center index from the table.
func (s *service) Reindex(ctx context.Context) error {
	centers, err := s.repo.AllLocations(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load center locations")
	}
	entries := make(map[uuid.UUID]types.Point, len(centers))
	for id, center := range centers {
		entries[id] = center.Location
	}
	s.index.Replace(entries)
	return nil
}
