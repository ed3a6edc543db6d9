package notifications

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
	"github.com/qanlink/qanlink-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	notifications := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  recipient_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  request_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(notifications).Error)
	require.NoError(t, db.Exec(`DELETE FROM notifications`).Error)
	return db
}

func createNotification(t *testing.T, db *gorm.DB, recipientID uuid.UUID, createdAt time.Time) *models.Notification {
	t.Helper()

	notification := &models.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        enums.NotificationTypeRequestMatch,
		Title:       "New Blood Request",
		Message:     "O+ blood is needed at Central Hospital.",
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(notification).Error)
	return notification
}

func TestNotificationsListPagination(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := uuid.New()
	now := time.Now().UTC()
	oldest := createNotification(t, db, recipient, now.Add(-3*time.Hour))
	middle := createNotification(t, db, recipient, now.Add(-2*time.Hour))
	newest := createNotification(t, db, recipient, now.Add(-time.Hour))
	createNotification(t, db, uuid.New(), now)

	first, err := repo.List(ctx, listParams{RecipientID: recipient, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Notifications, 2)
	assert.Equal(t, newest.ID, first.Notifications[0].ID)
	assert.Equal(t, middle.ID, first.Notifications[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(ctx, listParams{RecipientID: recipient, Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Notifications, 1)
	assert.Equal(t, oldest.ID, second.Notifications[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestNotificationsListUnreadOnly(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := uuid.New()
	now := time.Now().UTC()
	read := createNotification(t, db, recipient, now.Add(-2*time.Hour))
	unread := createNotification(t, db, recipient, now.Add(-time.Hour))
	require.NoError(t, db.Model(&models.Notification{}).Where("id = ?", read.ID).Update("read_at", now).Error)

	page, err := repo.List(ctx, listParams{RecipientID: recipient, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, unread.ID, page.Notifications[0].ID)
}

func TestNotificationsUnreadCount(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := uuid.New()
	now := time.Now().UTC()
	createNotification(t, db, recipient, now.Add(-2*time.Hour))
	createNotification(t, db, recipient, now.Add(-time.Hour))
	createNotification(t, db, uuid.New(), now)

	count, err := repo.UnreadCount(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestNotificationsMarkReadIsRecipientScoped(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := uuid.New()
	notification := createNotification(t, db, recipient, time.Now().UTC())
	now := time.Now().UTC()

	result, err := repo.MarkRead(ctx, uuid.New(), notification.ID, now)
	require.NoError(t, err)
	assert.False(t, result.Found, "another user's inbox must look empty")

	result, err = repo.MarkRead(ctx, recipient, notification.ID, now)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.True(t, result.Updated)

	// Second mark finds the row but changes nothing.
	result, err = repo.MarkRead(ctx, recipient, notification.ID, now)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.False(t, result.Updated)
}

func TestNotificationsMarkAllRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	recipient := uuid.New()
	now := time.Now().UTC()
	createNotification(t, db, recipient, now.Add(-2*time.Hour))
	createNotification(t, db, recipient, now.Add(-time.Hour))
	createNotification(t, db, uuid.New(), now)

	count, err := repo.MarkAllRead(ctx, recipient, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	unread, err := repo.UnreadCount(ctx, recipient)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
