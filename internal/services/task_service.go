package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	"github.com/Maneldor/la-publica-new-sub022/internal/scoring"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
)

// CreateTaskInput captures the fields accepted when opening a task.
type CreateTaskInput struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	Priority    models.LeadPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`

	EstimatedEffort float64 `json:"estimated_effort" validate:"gte=0"`

	LeadID       *string `json:"lead_id"`
	CompanyID    *string `json:"company_id"`
	AssignedToID *string `json:"assigned_to_id"`
}

// UpdateTaskInput is a partial update; nil fields are left untouched.
type UpdateTaskInput struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Priority     *models.LeadPriority `json:"priority"`
	Status       *models.TaskStatus   `json:"status"`
	DueDate      *time.Time           `json:"due_date"`
	ClearDueDate bool                 `json:"clear_due_date"`

	EstimatedEffort *float64 `json:"estimated_effort"`
	ActualEffort    *float64 `json:"actual_effort"`
}

// ListTasksInput defines the filters accepted when querying tasks.
type ListTasksInput struct {
	Status       models.TaskStatus
	Priority     models.LeadPriority
	AssignedToID string
	LeadID       string

	Page     int
	PageSize int
}

// TaskOption customises TaskService behaviour.
type TaskOption func(*TaskService)

// WithTaskClock injects a custom clock primarily for testing.
func WithTaskClock(clock func() time.Time) TaskOption {
	return func(s *TaskService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// TaskService manages tasks. Scoring follows the same rules as leads and is
// kept in step with every edit inside the edit's own transaction.
type TaskService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

// NewTaskService constructs a TaskService.
func NewTaskService(db *gorm.DB, audit *AuditService, opts ...TaskOption) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if audit == nil {
		return nil, errors.New("task service: audit service is required")
	}

	service := &TaskService{db: db, audit: audit, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create opens a new task with its initial urgency score.
func (s *TaskService) Create(ctx context.Context, input CreateTaskInput, actorID string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, apperrors.NewValidation("task title is required")
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown priority %q", input.Priority))
	}
	if input.EstimatedEffort < 0 {
		return nil, apperrors.NewValidation("estimated effort cannot be negative")
	}

	task := &models.Task{
		Title:           input.Title,
		Description:     strings.TrimSpace(input.Description),
		Priority:        input.Priority,
		Status:          models.TaskStatusOpen,
		DueDate:         input.DueDate,
		EstimatedEffort: input.EstimatedEffort,
		LeadID:          normalizeOptionalID(input.LeadID),
		CompanyID:       normalizeOptionalID(input.CompanyID),
		AssignedToID:    normalizeOptionalID(input.AssignedToID),
	}
	task.UrgencyScore = scoring.TaskScore(task, s.now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if task.LeadID != nil {
			var lead models.Lead
			if err := tx.First(&lead, "id = ?", *task.LeadID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NewNotFound("lead", *task.LeadID)
				}
				return fmt.Errorf("task: load lead: %w", err)
			}
		}
		if task.AssignedToID != nil {
			if _, err := loadManager(tx, *task.AssignedToID); err != nil {
				return err
			}
		}

		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("task: create: %w", err)
		}
		return s.auditTask(tx, ctx, task.ID, actorID, "task.create", map[string]any{
			"priority": task.Priority,
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Get returns a single task.
func (s *TaskService) Get(ctx context.Context, taskID string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	var task models.Task
	err := s.db.WithContext(ctx).
		Preload("AssignedTo").
		First(&task, "id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("task", taskID)
		}
		return nil, fmt.Errorf("task: load %s: %w", taskID, err)
	}
	return &task, nil
}

// List returns tasks matching the filters, most urgent first.
func (s *TaskService) List(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Task{})
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.Priority != "" {
		query = query.Where("priority = ?", input.Priority)
	}
	if id := strings.TrimSpace(input.AssignedToID); id != "" {
		query = query.Where("assigned_to_id = ?", id)
	}
	if id := strings.TrimSpace(input.LeadID); id != "" {
		query = query.Where("lead_id = ?", id)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("task: count: %w", err)
	}

	page, pageSize := normalisePage(input.Page, input.PageSize)
	var tasks []models.Task
	err := query.
		Order("urgency_score DESC, id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("task: list: %w", err)
	}
	return tasks, total, nil
}

// Update applies a partial edit under the task transition table, recomputing
// the urgency score alongside.
func (s *TaskService) Update(ctx context.Context, taskID string, input UpdateTaskInput, actorID string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	var updated *models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("task", taskID)
			}
			return fmt.Errorf("task: load %s: %w", taskID, err)
		}

		previousStatus := task.Status
		if err := applyTaskUpdate(&task, input); err != nil {
			return err
		}

		task.UrgencyScore = scoring.TaskScore(&task, s.now())
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("task: update %s: %w", taskID, err)
		}

		metadata := map[string]any{}
		if task.Status != previousStatus {
			metadata["from_status"] = previousStatus
			metadata["to_status"] = task.Status
		}
		if err := s.auditTask(tx, ctx, task.ID, actorID, "task.update", metadata); err != nil {
			return err
		}
		updated = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyTaskUpdate(task *models.Task, input UpdateTaskInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return apperrors.NewValidation("task title cannot be empty")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return apperrors.NewValidation(fmt.Sprintf("unknown priority %q", *input.Priority))
		}
		task.Priority = *input.Priority
	}
	if input.Status != nil && *input.Status != task.Status {
		if !input.Status.Valid() {
			return apperrors.NewValidation(fmt.Sprintf("unknown status %q", *input.Status))
		}
		if !task.Status.CanTransitionTo(*input.Status) {
			return apperrors.NewConflict(fmt.Sprintf("task cannot move from %s to %s", task.Status, *input.Status))
		}
		task.Status = *input.Status
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.EstimatedEffort != nil {
		if *input.EstimatedEffort < 0 {
			return apperrors.NewValidation("estimated effort cannot be negative")
		}
		task.EstimatedEffort = *input.EstimatedEffort
	}
	if input.ActualEffort != nil {
		if *input.ActualEffort < 0 {
			return apperrors.NewValidation("actual effort cannot be negative")
		}
		task.ActualEffort = *input.ActualEffort
	}
	return nil
}

func (s *TaskService) auditTask(tx *gorm.DB, ctx context.Context, taskID, actorID, action string, metadata map[string]any) error {
	entry := AuditEntry{
		Action:     action,
		EntityType: "task",
		EntityID:   taskID,
		Result:     "success",
		Metadata:   metadata,
	}
	if trimmed := strings.TrimSpace(actorID); trimmed != "" {
		entry.ActorID = &trimmed
	}
	if err := s.audit.LogTx(tx, ctx, entry); err != nil {
		return fmt.Errorf("task: audit %s: %w", taskID, err)
	}
	return nil
}
