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

// CreateLeadInput captures the fields accepted when registering a lead.
type CreateLeadInput struct {
	Name         string              `json:"name" validate:"required"`
	ContactName  string              `json:"contact_name"`
	ContactEmail string              `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string              `json:"contact_phone"`
	Priority     models.LeadPriority `json:"priority"`
	DueDate      *time.Time          `json:"due_date"`

	EstimatedValue  float64 `json:"estimated_value" validate:"gte=0"`
	EstimatedEffort float64 `json:"estimated_effort" validate:"gte=0"`

	CompanyID *string `json:"company_id"`
}

// UpdateLeadInput is a partial update; nil fields are left untouched.
// ClearDueDate removes an existing deadline.
type UpdateLeadInput struct {
	Name         *string              `json:"name"`
	ContactName  *string              `json:"contact_name"`
	ContactEmail *string              `json:"contact_email"`
	ContactPhone *string              `json:"contact_phone"`
	Priority     *models.LeadPriority `json:"priority"`
	Status       *models.LeadStatus   `json:"status"`
	DueDate      *time.Time           `json:"due_date"`
	ClearDueDate bool                 `json:"clear_due_date"`

	EstimatedValue  *float64 `json:"estimated_value"`
	EstimatedEffort *float64 `json:"estimated_effort"`
}

// ListLeadsInput defines the filters accepted when querying leads.
type ListLeadsInput struct {
	Status       models.LeadStatus
	Priority     models.LeadPriority
	AssignedToID string
	Unassigned   bool
	Search       string

	Page     int
	PageSize int
}

// LeadOption customises LeadService behaviour.
type LeadOption func(*LeadService)

// WithLeadClock injects a custom clock primarily for testing.
func WithLeadClock(clock func() time.Time) LeadOption {
	return func(s *LeadService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// LeadService manages the lead pipeline. Any edit that touches priority, due
// date, status, or effort recomputes the persisted urgency score in the same
// transaction, so a ranked read never sees a stale score from a committed edit.
type LeadService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

// NewLeadService constructs a LeadService.
func NewLeadService(db *gorm.DB, audit *AuditService, opts ...LeadOption) (*LeadService, error) {
	if db == nil {
		return nil, errors.New("lead service: db is required")
	}
	if audit == nil {
		return nil, errors.New("lead service: audit service is required")
	}

	service := &LeadService{db: db, audit: audit, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create registers a new lead in the pipeline with its initial urgency score.
func (s *LeadService) Create(ctx context.Context, input CreateLeadInput, actorID string) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperrors.NewValidation("lead name is required")
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown priority %q", input.Priority))
	}
	if input.EstimatedEffort < 0 || input.EstimatedValue < 0 {
		return nil, apperrors.NewValidation("estimates cannot be negative")
	}

	lead := &models.Lead{
		Name:            input.Name,
		ContactName:     strings.TrimSpace(input.ContactName),
		ContactEmail:    strings.TrimSpace(input.ContactEmail),
		ContactPhone:    strings.TrimSpace(input.ContactPhone),
		Priority:        input.Priority,
		Status:          models.LeadStatusNew,
		EstimatedValue:  input.EstimatedValue,
		EstimatedEffort: input.EstimatedEffort,
		DueDate:         input.DueDate,
		CompanyID:       normalizeOptionalID(input.CompanyID),
	}
	lead.UrgencyScore = scoring.LeadScore(lead, s.now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if lead.CompanyID != nil {
			var company models.Company
			if err := tx.First(&company, "id = ?", *lead.CompanyID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NewNotFound("company", *lead.CompanyID)
				}
				return fmt.Errorf("lead: load company: %w", err)
			}
		}

		if err := tx.Create(lead).Error; err != nil {
			return fmt.Errorf("lead: create: %w", err)
		}
		return s.auditLead(tx, ctx, lead.ID, actorID, "lead.create", map[string]any{
			"priority": lead.Priority,
		})
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// Get returns a single lead with its assignee preloaded.
func (s *LeadService) Get(ctx context.Context, leadID string) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	var lead models.Lead
	err := s.db.WithContext(ctx).
		Preload("AssignedTo").
		First(&lead, "id = ?", leadID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("lead", leadID)
		}
		return nil, fmt.Errorf("lead: load %s: %w", leadID, err)
	}
	return &lead, nil
}

// List returns leads matching the filters, most urgent first.
func (s *LeadService) List(ctx context.Context, input ListLeadsInput) ([]models.Lead, int64, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Lead{})
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.Priority != "" {
		query = query.Where("priority = ?", input.Priority)
	}
	if input.Unassigned {
		query = query.Where("assigned_to_id IS NULL")
	} else if id := strings.TrimSpace(input.AssignedToID); id != "" {
		query = query.Where("assigned_to_id = ?", id)
	}
	if search := strings.TrimSpace(input.Search); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("lead: count: %w", err)
	}

	page, pageSize := normalisePage(input.Page, input.PageSize)
	var leads []models.Lead
	err := query.
		Order("urgency_score DESC, id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&leads).Error
	if err != nil {
		return nil, 0, fmt.Errorf("lead: list: %w", err)
	}
	return leads, total, nil
}

// Update applies a partial edit. Status changes must follow the pipeline
// transition table; the urgency score is recomputed from the merged fields
// and persisted in the same transaction.
func (s *LeadService) Update(ctx context.Context, leadID string, input UpdateLeadInput, actorID string) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	var updated *models.Lead
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&lead, "id = ?", leadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("lead", leadID)
			}
			return fmt.Errorf("lead: load %s: %w", leadID, err)
		}

		previousStatus := lead.Status
		if err := applyLeadUpdate(&lead, input); err != nil {
			return err
		}

		lead.UrgencyScore = scoring.LeadScore(&lead, s.now())
		if err := tx.Save(&lead).Error; err != nil {
			return fmt.Errorf("lead: update %s: %w", leadID, err)
		}

		metadata := map[string]any{}
		if lead.Status != previousStatus {
			metadata["from_status"] = previousStatus
			metadata["to_status"] = lead.Status
		}
		if err := s.auditLead(tx, ctx, lead.ID, actorID, "lead.update", metadata); err != nil {
			return err
		}
		updated = &lead
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyLeadUpdate(lead *models.Lead, input UpdateLeadInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperrors.NewValidation("lead name cannot be empty")
		}
		lead.Name = name
	}
	if input.ContactName != nil {
		lead.ContactName = strings.TrimSpace(*input.ContactName)
	}
	if input.ContactEmail != nil {
		lead.ContactEmail = strings.TrimSpace(*input.ContactEmail)
	}
	if input.ContactPhone != nil {
		lead.ContactPhone = strings.TrimSpace(*input.ContactPhone)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return apperrors.NewValidation(fmt.Sprintf("unknown priority %q", *input.Priority))
		}
		lead.Priority = *input.Priority
	}
	if input.Status != nil && *input.Status != lead.Status {
		if !input.Status.Valid() {
			return apperrors.NewValidation(fmt.Sprintf("unknown status %q", *input.Status))
		}
		if !lead.Status.CanTransitionTo(*input.Status) {
			return apperrors.NewConflict(fmt.Sprintf("lead cannot move from %s to %s", lead.Status, *input.Status))
		}
		lead.Status = *input.Status
	}
	if input.ClearDueDate {
		lead.DueDate = nil
	} else if input.DueDate != nil {
		lead.DueDate = input.DueDate
	}
	if input.EstimatedValue != nil {
		if *input.EstimatedValue < 0 {
			return apperrors.NewValidation("estimated value cannot be negative")
		}
		lead.EstimatedValue = *input.EstimatedValue
	}
	if input.EstimatedEffort != nil {
		if *input.EstimatedEffort < 0 {
			return apperrors.NewValidation("estimated effort cannot be negative")
		}
		lead.EstimatedEffort = *input.EstimatedEffort
	}
	return nil
}

func (s *LeadService) auditLead(tx *gorm.DB, ctx context.Context, leadID, actorID, action string, metadata map[string]any) error {
	entry := AuditEntry{
		Action:     action,
		EntityType: "lead",
		EntityID:   leadID,
		Result:     "success",
		Metadata:   metadata,
	}
	if trimmed := strings.TrimSpace(actorID); trimmed != "" {
		entry.ActorID = &trimmed
	}
	if err := s.audit.LogTx(tx, ctx, entry); err != nil {
		return fmt.Errorf("lead: audit %s: %w", leadID, err)
	}
	return nil
}
