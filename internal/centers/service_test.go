package centers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/internal/geo"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

func setupCentersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	centers := `
CREATE TABLE IF NOT EXISTS centers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  address TEXT NOT NULL,
  city TEXT NOT NULL,
  phone TEXT,
  hours TEXT,
  location TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(centers).Error)
	require.NoError(t, db.Exec(`DELETE FROM centers`).Error)
	return db
}

type directTx struct {
	db *gorm.DB
}

func (d directTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(d.db)
}

func newCentersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:  NewRepository(db),
		DB:    directTx{db: db},
		Index: geo.NewIndex(),
	})
	require.NoError(t, err)
	return svc
}

func TestEnsureSeededIsIdempotent(t *testing.T) {
	db := setupCentersTestDB(t)
	svc := newCentersService(t, db)
	ctx := context.Background()

	seeded, err := svc.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, seeded)

	again, err := svc.EnsureSeeded(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "second run must not duplicate centers")

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestListFiltersByCity(t *testing.T) {
	db := setupCentersTestDB(t)
	svc := newCentersService(t, db)
	ctx := context.Background()

	_, err := svc.EnsureSeeded(ctx)
	require.NoError(t, err)

	city := "baku"
	centers, err := svc.List(ctx, &city)
	require.NoError(t, err)
	require.Len(t, centers, 2)
	for _, center := range centers {
		assert.Equal(t, "Baku", center.City)
	}
}

func TestNearbyReturnsSeededCenterAtZeroDistance(t *testing.T) {
	db := setupCentersTestDB(t)
	svc := newCentersService(t, db)
	ctx := context.Background()

	_, err := svc.EnsureSeeded(ctx)
	require.NoError(t, err)

	// Query from the Ganja center's own coordinates.
	origin := types.Point{Lat: 40.6828, Lng: 46.3606}
	views, err := svc.Nearby(ctx, origin, 0)
	require.NoError(t, err)
	require.NotEmpty(t, views)
	assert.Equal(t, "Ganja Regional Blood Bank", views[0].Center.Name)
	assert.InDelta(t, 0, views[0].DistanceKM, 0.001)

	// Results come back closest first.
	for i := 1; i < len(views); i++ {
		assert.GreaterOrEqual(t, views[i].DistanceKM, views[i-1].DistanceKM)
	}
}

func TestNearbyHonorsRadius(t *testing.T) {
	db := setupCentersTestDB(t)
	svc := newCentersService(t, db)
	ctx := context.Background()

	_, err := svc.EnsureSeeded(ctx)
	require.NoError(t, err)

	// Central Baku: both Baku centers sit within 10 km, Lankaran does not.
	origin := types.Point{Lat: 40.4093, Lng: 49.8671}
	views, err := svc.Nearby(ctx, origin, 10)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestNearbyRejectsBadCoordinates(t *testing.T) {
	db := setupCentersTestDB(t)
	svc := newCentersService(t, db)

	_, err := svc.Nearby(context.Background(), types.Point{Lat: 120, Lng: 0}, 0)
	require.Error(t, err)
}
