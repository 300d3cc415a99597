package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Maneldor/la-publica-new-sub022/internal/database/testutil"
	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	"github.com/Maneldor/la-publica-new-sub022/internal/scoring"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
)

func newTaskFixture(t *testing.T, now time.Time) (*TaskService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewTaskService(db, audit, WithTaskClock(func() time.Time { return now }))
	require.NoError(t, err)
	return svc, db
}

func TestTaskServiceCreate(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, db := newTaskFixture(t, now)
	ctx := context.Background()

	due := now.Add(48 * time.Hour)
	task, err := svc.Create(ctx, CreateTaskInput{
		Title:           "Preparar proposta",
		Priority:        models.PriorityHigh,
		DueDate:         &due,
		EstimatedEffort: 6,
	}, "actor")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusOpen, task.Status)
	require.Equal(t, scoring.TaskScore(task, now), task.UrgencyScore)
	require.Equal(t, []string{"task.create"}, auditActions(t, db, task.ID))
}

func TestTaskServiceCreateValidation(t *testing.T) {
	svc, _ := newTaskFixture(t, time.Now())
	ctx := context.Background()

	t.Run("empty title", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateTaskInput{Title: " "}, "actor")
		require.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("missing lead", func(t *testing.T) {
		leadID := "no-such-lead"
		_, err := svc.Create(ctx, CreateTaskInput{Title: "Task", LeadID: &leadID}, "actor")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestTaskServiceUpdateTransitions(t *testing.T) {
	now := time.Now()
	svc, _ := newTaskFixture(t, now)
	ctx := context.Background()

	task, err := svc.Create(ctx, CreateTaskInput{Title: "Task"}, "actor")
	require.NoError(t, err)

	inProgress := models.TaskStatusInProgress
	updated, err := svc.Update(ctx, task.ID, UpdateTaskInput{Status: &inProgress}, "actor")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusInProgress, updated.Status)

	done := models.TaskStatusDone
	updated, err = svc.Update(ctx, task.ID, UpdateTaskInput{Status: &done}, "actor")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusDone, updated.Status)
	require.Zero(t, updated.UrgencyScore)

	// Terminal tasks cannot be reopened.
	open := models.TaskStatusOpen
	_, err = svc.Update(ctx, task.ID, UpdateTaskInput{Status: &open}, "actor")
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestTaskServiceUpdateRecomputesScore(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _ := newTaskFixture(t, now)
	ctx := context.Background()

	task, err := svc.Create(ctx, CreateTaskInput{Title: "Task", Priority: models.PriorityLow}, "actor")
	require.NoError(t, err)

	effort := 40.0
	updated, err := svc.Update(ctx, task.ID, UpdateTaskInput{EstimatedEffort: &effort}, "actor")
	require.NoError(t, err)

	expected := scoring.TaskScore(&models.Task{
		Priority:        models.PriorityLow,
		Status:          models.TaskStatusOpen,
		EstimatedEffort: effort,
	}, now)
	require.Equal(t, expected, updated.UrgencyScore)
}

func TestTaskServiceListFiltersByLead(t *testing.T) {
	now := time.Now()
	svc, db := newTaskFixture(t, now)
	ctx := context.Background()

	lead := seedLead(t, db, "Lead")

	linked, err := svc.Create(ctx, CreateTaskInput{Title: "Linked", LeadID: &lead.ID}, "actor")
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateTaskInput{Title: "Loose"}, "actor")
	require.NoError(t, err)

	tasks, total, err := svc.List(ctx, ListTasksInput{LeadID: lead.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, linked.ID, tasks[0].ID)
}
