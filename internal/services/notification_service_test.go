package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Maneldor/la-publica-new-sub022/internal/database/testutil"
	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
)

func newNotificationFixture(t *testing.T) (*NotificationService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewNotificationService(db, nil, nil)
	require.NoError(t, err)
	return svc, db
}

func TestNotificationServiceCreate(t *testing.T) {
	svc, _ := newNotificationFixture(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateNotificationInput{
		UserID:   "user-1",
		Type:     "lead.assigned",
		Title:    "Leads assigned",
		Message:  "A new lead is in your queue.",
		Metadata: map[string]any{"count": 1},
	})
	require.NoError(t, err)
	require.Equal(t, "info", dto.Severity)
	require.False(t, dto.IsRead)
	require.EqualValues(t, 1, dto.Metadata["count"])
}

func TestNotificationServiceCreateValidation(t *testing.T) {
	svc, _ := newNotificationFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateNotificationInput{Type: "lead.assigned"})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateNotificationInput{UserID: "user-1"})
	require.Error(t, err)
}

func TestNotificationServiceListForUser(t *testing.T) {
	svc, _ := newNotificationFixture(t)
	ctx := context.Background()

	for _, userID := range []string{"user-1", "user-1", "user-2"} {
		_, err := svc.Create(ctx, CreateNotificationInput{
			UserID: userID, Type: "lead.assigned", Title: "t", Message: "m",
		})
		require.NoError(t, err)
	}

	list, err := svc.ListForUser(ctx, ListNotificationsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	svc, _ := newNotificationFixture(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateNotificationInput{
		UserID: "user-1", Type: "lead.assigned", Title: "t", Message: "m",
	})
	require.NoError(t, err)

	read, err := svc.MarkRead(ctx, "user-1", dto.ID)
	require.NoError(t, err)
	require.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	// Another user cannot read someone else's notification.
	_, err = svc.MarkRead(ctx, "user-2", dto.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNotificationServiceMarkAllRead(t *testing.T) {
	svc, db := newNotificationFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateNotificationInput{
			UserID: "user-1", Type: "lead.assigned", Title: "t", Message: "m",
		})
		require.NoError(t, err)
	}

	require.NoError(t, svc.MarkAllRead(ctx, "user-1"))

	var unread int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", "user-1", false).
		Count(&unread).Error)
	require.Zero(t, unread)
}

func TestNotificationServiceNotifySwallowsFailure(t *testing.T) {
	svc, _ := newNotificationFixture(t)

	// Missing user id makes Create fail; Notify must not panic or surface it.
	svc.Notify(context.Background(), CreateNotificationInput{Type: "lead.assigned"})
}
