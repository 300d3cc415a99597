package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Maneldor/la-publica-new-sub022/internal/database/testutil"
	"github.com/Maneldor/la-publica-new-sub022/internal/models"
)

func newAuditFixture(t *testing.T) (*AuditService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)
	return svc, db
}

func TestAuditServiceLog(t *testing.T) {
	svc, db := newAuditFixture(t)
	ctx := context.Background()

	actor := "actor-1"
	require.NoError(t, svc.Log(ctx, AuditEntry{
		ActorID:    &actor,
		Action:     "lead.assign",
		EntityType: "lead",
		EntityID:   "lead-1",
		Result:     "success",
		Metadata:   map[string]any{"manager_id": "m-1"},
	}))

	var stored models.AuditLog
	require.NoError(t, db.First(&stored).Error)
	require.Equal(t, "lead.assign", stored.Action)
	require.Equal(t, actor, *stored.ActorID)
	require.JSONEq(t, `{"manager_id":"m-1"}`, stored.Metadata)
}

func TestAuditServiceLogSystemActor(t *testing.T) {
	svc, db := newAuditFixture(t)
	ctx := context.Background()

	// Actor ids are attribution, not user references: the scheduler and
	// other system actors audit under ids that match no user row.
	require.NoError(t, db.Create(&models.User{
		Username: "gestor", Email: "gestor@example.com", Role: models.RoleManager, IsActive: true,
	}).Error)

	actor := "scheduler"
	require.NoError(t, svc.Log(ctx, AuditEntry{
		ActorID:    &actor,
		Action:     "lead.auto_assign",
		EntityType: "lead",
		EntityID:   "lead-1",
		Result:     "success",
	}))

	var stored models.AuditLog
	require.NoError(t, db.Where("actor_id = ?", actor).First(&stored).Error)
	require.Equal(t, "lead.auto_assign", stored.Action)
}

func TestAuditServiceLogValidation(t *testing.T) {
	svc, _ := newAuditFixture(t)
	ctx := context.Background()

	require.Error(t, svc.Log(ctx, AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(ctx, AuditEntry{Action: "lead.assign"}))
}

func TestAuditServiceLogTxRollsBackWithTransaction(t *testing.T) {
	svc, db := newAuditFixture(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.LogTx(tx, ctx, AuditEntry{
			Action: "lead.assign",
			Result: "success",
		}))
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestAuditServiceListFilters(t *testing.T) {
	svc, _ := newAuditFixture(t)
	ctx := context.Background()

	actor := "actor-1"
	require.NoError(t, svc.Log(ctx, AuditEntry{
		ActorID: &actor, Action: "lead.assign", EntityType: "lead", EntityID: "lead-1", Result: "success",
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Action: "request.approve", EntityType: "request", EntityID: "req-1", Result: "success",
	}))

	t.Run("by action", func(t *testing.T) {
		logs, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{Action: "lead.assign"}})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		require.Equal(t, "lead-1", logs[0].EntityID)
	})

	t.Run("by entity type", func(t *testing.T) {
		_, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{EntityType: "request"}})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
	})

	t.Run("by actor", func(t *testing.T) {
		_, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{ActorID: actor}})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
	})

	t.Run("unfiltered", func(t *testing.T) {
		_, total, err := svc.List(ctx, AuditListOptions{})
		require.NoError(t, err)
		require.EqualValues(t, 2, total)
	})
}
