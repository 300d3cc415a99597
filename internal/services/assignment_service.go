package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	"github.com/Maneldor/la-publica-new-sub022/internal/scoring"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
	"github.com/Maneldor/la-publica-new-sub022/pkg/logger"
	"github.com/Maneldor/la-publica-new-sub022/pkg/metrics"
)

// ErrNoEligibleManagers indicates an auto-assign pass found nobody to assign to.
var ErrNoEligibleManagers = errors.New("assignment: no eligible managers")

// AssignmentFailure reports why one lead in a batch could not be assigned.
type AssignmentFailure struct {
	LeadID string `json:"lead_id"`
	Reason string `json:"reason"`
}

// AutoAssignResult summarises a bulk auto-assignment pass.
type AutoAssignResult struct {
	Assigned int                 `json:"assigned"`
	Total    int                 `json:"total"`
	Failures []AssignmentFailure `json:"failures"`
}

// AssignmentOption customises AssignmentService behaviour.
type AssignmentOption func(*AssignmentService)

// WithAssignmentClock injects a custom clock primarily for testing.
func WithAssignmentClock(clock func() time.Time) AssignmentOption {
	return func(s *AssignmentService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// AssignmentService owns every mutation of a lead's assignee. Each operation
// runs in a single transaction with the audit row; notifications go out only
// after commit and never fail the operation.
type AssignmentService struct {
	db       *gorm.DB
	workload *WorkloadService
	audit    *AuditService
	notifier *NotificationService
	log      *zap.Logger
	now      func() time.Time
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(db *gorm.DB, workload *WorkloadService, audit *AuditService, notifier *NotificationService, opts ...AssignmentOption) (*AssignmentService, error) {
	if db == nil {
		return nil, errors.New("assignment service: db is required")
	}
	if workload == nil {
		return nil, errors.New("assignment service: workload service is required")
	}
	if audit == nil {
		return nil, errors.New("assignment service: audit service is required")
	}

	service := &AssignmentService{
		db:       db,
		workload: workload,
		audit:    audit,
		notifier: notifier,
		log:      logger.WithModule("assignment"),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Assign gives an unassigned lead to the supplied manager. Assigning a lead
// to the manager who already owns it is an idempotent success; a lead owned
// by someone else must go through Reassign.
func (s *AssignmentService) Assign(ctx context.Context, leadID, managerID, actorID string) (*models.Lead, error) {
	leads, err := s.assignMany(ctx, []string{leadID}, managerID, actorID, "lead.assign")
	if err != nil {
		metrics.Assignments.WithLabelValues("manual", "error").Inc()
		return nil, err
	}
	metrics.Assignments.WithLabelValues("manual", "ok").Inc()
	return &leads[0], nil
}

// AssignMany assigns every supplied lead to one manager in a single
// transaction. If any id does not resolve the whole call fails.
func (s *AssignmentService) AssignMany(ctx context.Context, leadIDs []string, managerID, actorID string) ([]models.Lead, error) {
	leads, err := s.assignMany(ctx, leadIDs, managerID, actorID, "lead.assign")
	if err != nil {
		metrics.Assignments.WithLabelValues("bulk", "error").Inc()
		return nil, err
	}
	metrics.Assignments.WithLabelValues("bulk", "ok").Inc()
	return leads, nil
}

func (s *AssignmentService) assignMany(ctx context.Context, leadIDs []string, managerID, actorID, action string) ([]models.Lead, error) {
	ctx = ensureContext(ctx)

	ids := normaliseIDs(leadIDs)
	if len(ids) == 0 {
		return nil, apperrors.NewValidation("at least one lead id is required")
	}
	managerID = strings.TrimSpace(managerID)
	if managerID == "" {
		return nil, apperrors.NewValidation("manager id is required")
	}

	var assigned []models.Lead
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		manager, err := loadManager(tx, managerID)
		if err != nil {
			return err
		}

		for _, leadID := range ids {
			lead, err := lockLead(tx, leadID)
			if err != nil {
				return err
			}

			if lead.AssignedToID != nil && *lead.AssignedToID != manager.ID {
				return apperrors.NewConflict(fmt.Sprintf("lead %s is already assigned to another manager", leadID))
			}

			if err := s.writeAssignment(tx, ctx, lead, &manager.ID, actorID, action, map[string]any{
				"manager_id": manager.ID,
			}); err != nil {
				return err
			}
			assigned = append(assigned, *lead)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, managerID, len(assigned))
	return assigned, nil
}

// Reassign moves a lead from its current manager to a different one. The
// lead must currently be assigned, and to somebody else.
func (s *AssignmentService) Reassign(ctx context.Context, leadID, newManagerID, actorID string) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	leadID = strings.TrimSpace(leadID)
	newManagerID = strings.TrimSpace(newManagerID)
	if leadID == "" || newManagerID == "" {
		return nil, apperrors.NewValidation("lead id and manager id are required")
	}

	var (
		reassigned    *models.Lead
		previousOwner string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		manager, err := loadManager(tx, newManagerID)
		if err != nil {
			return err
		}

		lead, err := lockLead(tx, leadID)
		if err != nil {
			return err
		}

		if lead.AssignedToID == nil {
			return apperrors.NewValidation(fmt.Sprintf("lead %s is unassigned; use assign instead", leadID))
		}
		if *lead.AssignedToID == manager.ID {
			return apperrors.NewValidation(fmt.Sprintf("lead %s is already assigned to manager %s", leadID, manager.ID))
		}

		previousOwner = *lead.AssignedToID
		if err := s.writeAssignment(tx, ctx, lead, &manager.ID, actorID, "lead.reassign", map[string]any{
			"from_manager_id": previousOwner,
			"to_manager_id":   manager.ID,
		}); err != nil {
			return err
		}
		reassigned = lead
		return nil
	})
	if err != nil {
		metrics.Assignments.WithLabelValues("reassign", "error").Inc()
		return nil, err
	}

	metrics.Assignments.WithLabelValues("reassign", "ok").Inc()
	s.notifyAssigned(ctx, newManagerID, 1)
	if s.notifier != nil {
		s.notifier.Notify(ctx, CreateNotificationInput{
			UserID:  previousOwner,
			Type:    "lead.reassigned",
			Title:   "Lead reassigned",
			Message: "One of your leads was moved to another manager.",
			Metadata: map[string]any{
				"lead_id": reassigned.ID,
			},
		})
	}
	return reassigned, nil
}

// Unassign clears the lead's assignee. Unassigning an already-unassigned
// lead is a no-op success.
func (s *AssignmentService) Unassign(ctx context.Context, leadID, actorID string) (*models.Lead, error) {
	ctx = ensureContext(ctx)

	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return nil, apperrors.NewValidation("lead id is required")
	}

	var unassigned *models.Lead
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, err := lockLead(tx, leadID)
		if err != nil {
			return err
		}

		if lead.AssignedToID == nil {
			unassigned = lead
			return nil
		}

		previous := *lead.AssignedToID
		if err := s.writeAssignment(tx, ctx, lead, nil, actorID, "lead.unassign", map[string]any{
			"from_manager_id": previous,
		}); err != nil {
			return err
		}
		unassigned = lead
		return nil
	})
	if err != nil {
		metrics.Assignments.WithLabelValues("unassign", "error").Inc()
		return nil, err
	}

	metrics.Assignments.WithLabelValues("unassign", "ok").Inc()
	return unassigned, nil
}

// AutoAssign distributes every unassigned live lead across eligible managers,
// most urgent lead first, always to the least-loaded manager at that moment.
// The workload snapshot is read once; picks within the batch update a local
// copy so the batch spreads instead of piling onto one manager. A single
// lead's failure is reported, not fatal.
func (s *AssignmentService) AutoAssign(ctx context.Context, actorID string) (*AutoAssignResult, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	result := &AutoAssignResult{Failures: []AssignmentFailure{}}
	assignedPerManager := make(map[string]int)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshot, err := s.workload.SnapshotTx(tx)
		if err != nil {
			return fmt.Errorf("assignment: workload snapshot: %w", err)
		}
		if len(snapshot) == 0 {
			return ErrNoEligibleManagers
		}

		var leads []models.Lead
		if err := tx.
			Where("assigned_to_id IS NULL").
			Where("status NOT IN ?", []models.LeadStatus{models.LeadStatusWon, models.LeadStatusLost}).
			Find(&leads).Error; err != nil {
			return fmt.Errorf("assignment: load unassigned leads: %w", err)
		}

		result.Total = len(leads)
		if len(leads) == 0 {
			return nil
		}

		// Urgency-descending, then id ascending: deterministic for a
		// fixed snapshot.
		sort.Slice(leads, func(i, j int) bool {
			si, sj := scoring.LeadScore(&leads[i], now), scoring.LeadScore(&leads[j], now)
			if si != sj {
				return si > sj
			}
			return leads[i].ID < leads[j].ID
		})

		var failures error
		for i := range leads {
			lead := &leads[i]
			target := pickLeastLoaded(snapshot)

			// Each lead writes under its own savepoint: a failed lead
			// rolls back only its own statements, so the rest of the
			// batch still commits on drivers that abort the enclosing
			// transaction after an error.
			err := tx.Transaction(func(leadTx *gorm.DB) error {
				return s.writeAssignment(leadTx, ctx, lead, &snapshot[target].ManagerID, actorID, "lead.auto_assign", map[string]any{
					"manager_id":   snapshot[target].ManagerID,
					"load_percent": snapshot[target].LoadPercent,
				})
			})
			if err != nil {
				result.Failures = append(result.Failures, AssignmentFailure{
					LeadID: lead.ID,
					Reason: err.Error(),
				})
				failures = multierr.Append(failures, err)
				continue
			}

			result.Assigned++
			assignedPerManager[snapshot[target].ManagerID]++

			// Reflect the pick locally so the next lead sees it.
			snapshot[target].ActiveLeads++
			snapshot[target].Ratio = float64(snapshot[target].Active()) / float64(snapshot[target].Capacity)
			snapshot[target].LoadPercent = clampPercent(snapshot[target].Ratio)
		}

		if failures != nil {
			s.log.Warn("auto-assign completed with failures",
				zap.Int("assigned", result.Assigned),
				zap.Int("total", result.Total),
				zap.Error(failures))
		}
		return nil
	})
	if err != nil {
		metrics.Assignments.WithLabelValues("auto", "error").Inc()
		return nil, err
	}

	metrics.Assignments.WithLabelValues("auto", "ok").Inc()
	metrics.AutoAssignBatchSize.Observe(float64(result.Assigned))

	for managerID, count := range assignedPerManager {
		s.notifyAssigned(ctx, managerID, count)
	}
	return result, nil
}

// pickLeastLoaded returns the index of the manager with the lowest raw load
// ratio, breaking ties by lowest manager id. The snapshot is sorted by
// manager id, so the first strict improvement wins.
func pickLeastLoaded(snapshot []ManagerLoad) int {
	best := 0
	for i := 1; i < len(snapshot); i++ {
		if snapshot[i].Ratio < snapshot[best].Ratio {
			best = i
		}
	}
	return best
}

// writeAssignment persists the assignee swap and its audit row inside the
// caller's transaction. The urgency score is refreshed in the same write so
// the persisted ordering stays current.
func (s *AssignmentService) writeAssignment(tx *gorm.DB, ctx context.Context, lead *models.Lead, managerID *string, actorID, action string, metadata map[string]any) error {
	score := scoring.LeadScore(lead, s.now())

	updates := map[string]any{
		"assigned_to_id": managerID,
		"urgency_score":  score,
	}
	if err := tx.Model(&models.Lead{}).Where("id = ?", lead.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("assignment: update lead %s: %w", lead.ID, err)
	}

	lead.AssignedToID = managerID
	lead.UrgencyScore = score

	entry := AuditEntry{
		Action:     action,
		EntityType: "lead",
		EntityID:   lead.ID,
		Result:     "success",
		Metadata:   metadata,
	}
	if trimmed := strings.TrimSpace(actorID); trimmed != "" {
		entry.ActorID = &trimmed
	}
	if err := s.audit.LogTx(tx, ctx, entry); err != nil {
		return fmt.Errorf("assignment: audit lead %s: %w", lead.ID, err)
	}
	return nil
}

func (s *AssignmentService) notifyAssigned(ctx context.Context, managerID string, count int) {
	if s.notifier == nil || count <= 0 {
		return
	}

	message := "A new lead is in your queue."
	if count > 1 {
		message = fmt.Sprintf("%d new leads are in your queue.", count)
	}
	s.notifier.Notify(ctx, CreateNotificationInput{
		UserID:  managerID,
		Type:    "lead.assigned",
		Title:   "Leads assigned",
		Message: message,
		Metadata: map[string]any{
			"count": count,
		},
	})
}

// lockLead loads a lead under a row lock and re-checks its liveness so a
// concurrent close between read and write surfaces as a conflict.
func lockLead(tx *gorm.DB, leadID string) (*models.Lead, error) {
	var lead models.Lead
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&lead, "id = ?", leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("lead", leadID)
		}
		return nil, fmt.Errorf("assignment: load lead %s: %w", leadID, err)
	}

	if lead.Status.Terminal() {
		return nil, apperrors.NewConflict(fmt.Sprintf("lead %s is closed (%s)", leadID, lead.Status))
	}
	return &lead, nil
}

func loadManager(tx *gorm.DB, managerID string) (*models.User, error) {
	var manager models.User
	if err := tx.First(&manager, "id = ?", managerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("manager", managerID)
		}
		return nil, fmt.Errorf("assignment: load manager %s: %w", managerID, err)
	}

	if !manager.IsManager() {
		return nil, apperrors.NewValidation(fmt.Sprintf("user %s cannot own leads", managerID))
	}
	if !manager.IsActive {
		return nil, apperrors.NewValidation(fmt.Sprintf("manager %s is inactive", managerID))
	}
	return &manager, nil
}
