package geo

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

// Source loads the authoritative location set used for rebuilds.
type Source interface {
	AllLocations(ctx context.Context) (map[uuid.UUID]types.Point, error)
}

type updateKind int

const (
	updateUpsert updateKind = iota
	updateRemove
)

type update struct {
	kind  updateKind
	id    uuid.UUID
	point types.Point
}

// Syncer keeps an Index current by applying queued updates off the
// request path and rebuilding from the source on demand.
type Syncer struct {
	index  *Index
	source Source
	logg   *logger.Logger

	updates chan update
	wg      sync.WaitGroup
	once    sync.Once
	done    chan struct{}
}

func NewSyncer(index *Index, source Source, logg *logger.Logger) (*Syncer, error) {
	if index == nil {
		return nil, errors.New("index is required")
	}
	if source == nil {
		return nil, errors.New("source is required")
	}
	return &Syncer{
		index:   index,
		source:  source,
		logg:    logg,
		updates: make(chan update, 256),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the apply loop. Safe to call once.
func (s *Syncer) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case u := <-s.updates:
				s.apply(u)
			}
		}
	}()
}

// Stop drains the apply loop and blocks until it exits.
func (s *Syncer) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *Syncer) apply(u update) {
	switch u.kind {
	case updateUpsert:
		s.index.Upsert(u.id, u.point)
	case updateRemove:
		s.index.Remove(u.id)
	}
}

// Upsert queues a location update. Falls back to a synchronous apply
// when the queue is full so updates are never dropped.
func (s *Syncer) Upsert(id uuid.UUID, point types.Point) {
	u := update{kind: updateUpsert, id: id, point: point}
	select {
	case s.updates <- u:
	default:
		s.apply(u)
	}
}

// Remove queues a removal for the given entity.
func (s *Syncer) Remove(id uuid.UUID) {
	u := update{kind: updateRemove, id: id}
	select {
	case s.updates <- u:
	default:
		s.apply(u)
	}
}

// Resync rebuilds the index from the authoritative source.
func (s *Syncer) Resync(ctx context.Context) error {
	entries, err := s.source.AllLocations(ctx)
	if err != nil {
		return err
	}
	s.index.Replace(entries)
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "indexed", len(entries))
		s.logg.Info(logCtx, "geo index rebuilt")
	}
	return nil
}
