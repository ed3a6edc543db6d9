package geo

import (
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/types"
)

const earthRadiusKM = 6371.0

// Match is a single proximity hit returned by queries.
type Match struct {
	ID         uuid.UUID
	Point      types.Point
	DistanceKM float64
}

// Index is an in-memory proximity index over point entities. Lookups
// scan all entries; the donor and center populations stay small enough
// that a linear haversine pass beats maintaining a spatial tree.
type Index struct {
	mtx     sync.RWMutex
	entries map[uuid.UUID]types.Point
}

func NewIndex() *Index {
	return &Index{entries: make(map[uuid.UUID]types.Point)}
}

// Upsert sets or replaces the location for the given entity.
func (i *Index) Upsert(id uuid.UUID, point types.Point) {
	i.mtx.Lock()
	defer i.mtx.Unlock()
	i.entries[id] = point
}

// Remove drops the entity from the index. Removing an absent entity is
// a no-op.
func (i *Index) Remove(id uuid.UUID) {
	i.mtx.Lock()
	defer i.mtx.Unlock()
	delete(i.entries, id)
}

// Len returns the number of indexed entities.
func (i *Index) Len() int {
	i.mtx.RLock()
	defer i.mtx.RUnlock()
	return len(i.entries)
}

// Replace swaps the full contents of the index in one step.
func (i *Index) Replace(entries map[uuid.UUID]types.Point) {
	next := make(map[uuid.UUID]types.Point, len(entries))
	for id, point := range entries {
		next[id] = point
	}
	i.mtx.Lock()
	defer i.mtx.Unlock()
	i.entries = next
}

// Nearby returns entities within radiusKM of the origin, closest first,
// truncated to limit when limit is positive.
func (i *Index) Nearby(origin types.Point, radiusKM float64, limit int) []Match {
	i.mtx.RLock()
	matches := make([]Match, 0)
	for id, point := range i.entries {
		d := HaversineKM(origin, point)
		if radiusKM > 0 && d > radiusKM {
			continue
		}
		matches = append(matches, Match{ID: id, Point: point, DistanceKM: d})
	}
	i.mtx.RUnlock()

	sort.Slice(matches, func(a, b int) bool {
		return matches[a].DistanceKM < matches[b].DistanceKM
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// HaversineKM computes the great-circle distance between two points.
func HaversineKM(a, b types.Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
