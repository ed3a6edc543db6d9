package donations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/pagination"
)

func setupDonationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	donations := `
CREATE TABLE IF NOT EXISTS donations (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  request_id TEXT,
  donated_at DATETIME NOT NULL,
  location TEXT,
  notes TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(donations).Error)
	require.NoError(t, db.Exec(`DELETE FROM donations`).Error)
	return db
}

func createDonation(t *testing.T, db *gorm.DB, userID uuid.UUID, donatedAt time.Time) *models.Donation {
	t.Helper()

	donation := &models.Donation{
		ID:        uuid.New(),
		UserID:    userID,
		DonatedAt: donatedAt,
	}
	require.NoError(t, db.Create(donation).Error)
	return donation
}

func TestRepositoryListByUserPagination(t *testing.T) {
	db := setupDonationsTestDB(t)
	repo := NewRepository(db)

	user := uuid.New()
	now := time.Now().UTC()
	oldest := createDonation(t, db, user, now.Add(-3*time.Hour))
	middle := createDonation(t, db, user, now.Add(-2*time.Hour))
	newest := createDonation(t, db, user, now.Add(-time.Hour))
	createDonation(t, db, uuid.New(), now)

	first, err := repo.ListByUser(context.Background(), user, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Donations, 2)
	assert.Equal(t, newest.ID, first.Donations[0].ID)
	assert.Equal(t, middle.ID, first.Donations[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListByUser(context.Background(), user, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Donations, 1)
	assert.Equal(t, oldest.ID, second.Donations[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestRepositoryLastDonation(t *testing.T) {
	db := setupDonationsTestDB(t)
	repo := NewRepository(db)

	user := uuid.New()
	now := time.Now().UTC()
	createDonation(t, db, user, now.Add(-48*time.Hour))
	latest := createDonation(t, db, user, now.Add(-time.Hour))

	found, err := repo.LastDonation(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, latest.ID, found.ID)

	none, err := repo.LastDonation(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRepositoryCountByUser(t *testing.T) {
	db := setupDonationsTestDB(t)
	repo := NewRepository(db)

	user := uuid.New()
	now := time.Now().UTC()
	createDonation(t, db, user, now.Add(-2*time.Hour))
	createDonation(t, db, user, now.Add(-time.Hour))
	createDonation(t, db, uuid.New(), now)

	count, err := repo.CountByUser(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepositoryDelete(t *testing.T) {
	db := setupDonationsTestDB(t)
	repo := NewRepository(db)

	donation := createDonation(t, db, uuid.New(), time.Now().UTC())
	require.NoError(t, repo.Delete(context.Background(), donation.ID))

	found, err := repo.GetByID(context.Background(), donation.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
