package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/Maneldor/la-publica-new-sub022/internal/models"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
)

// DefaultManagerCapacity is the baseline of active records a manager is
// expected to carry when no per-manager override is set.
const DefaultManagerCapacity = 20

// ManagerLoad is one manager's slice of a workload snapshot.
type ManagerLoad struct {
	ManagerID       string  `json:"manager_id"`
	Username        string  `json:"username"`
	ActiveLeads     int     `json:"active_leads"`
	ActiveCompanies int     `json:"active_companies"`
	Capacity        int     `json:"capacity"`
	// Ratio is the raw load over capacity. It exceeds 1 for overloaded
	// managers so two overloaded managers still rank correctly.
	Ratio float64 `json:"-"`
	// LoadPercent is Ratio clamped to [0,100] for display.
	LoadPercent int `json:"load_percent"`
}

// Active returns the total active records counted against capacity.
func (m ManagerLoad) Active() int {
	return m.ActiveLeads + m.ActiveCompanies
}

// WorkloadService derives per-manager load from the store. Load is never
// persisted; every snapshot is recomputed from one consistent read.
type WorkloadService struct {
	db              *gorm.DB
	defaultCapacity int
}

// NewWorkloadService constructs a WorkloadService.
func NewWorkloadService(db *gorm.DB, defaultCapacity int) (*WorkloadService, error) {
	if db == nil {
		return nil, errors.New("workload service: db is required")
	}
	if defaultCapacity <= 0 {
		defaultCapacity = DefaultManagerCapacity
	}
	return &WorkloadService{db: db, defaultCapacity: defaultCapacity}, nil
}

// Snapshot computes the load of every active manager inside one transaction,
// so all managers compared in one assignment decision reflect the same
// instant. The result is sorted by manager id for deterministic iteration.
func (s *WorkloadService) Snapshot(ctx context.Context) ([]ManagerLoad, error) {
	ctx = ensureContext(ctx)

	var loads []ManagerLoad
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshot, err := s.snapshotTx(tx)
		if err != nil {
			return err
		}
		loads = snapshot
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workload service: snapshot: %w", err)
	}
	return loads, nil
}

// SnapshotTx computes the snapshot inside the caller's transaction. The
// assignment resolver uses this so the snapshot and the writes it informs
// share one isolation scope.
func (s *WorkloadService) SnapshotTx(tx *gorm.DB) ([]ManagerLoad, error) {
	if tx == nil {
		return nil, errors.New("workload service: tx is required")
	}
	return s.snapshotTx(tx)
}

// ForManager returns a single manager's load. The counts still come from one
// consistent read.
func (s *WorkloadService) ForManager(ctx context.Context, managerID string) (*ManagerLoad, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range snapshot {
		if snapshot[i].ManagerID == managerID {
			return &snapshot[i], nil
		}
	}
	return nil, apperrors.NewNotFound("manager", managerID)
}

type managerCount struct {
	AssignedToID string
	Total        int
}

func (s *WorkloadService) snapshotTx(tx *gorm.DB) ([]ManagerLoad, error) {
	var managers []models.User
	if err := tx.
		Where("role IN ? AND is_active = ?", []models.UserRole{models.RoleManager, models.RoleAdmin}, true).
		Find(&managers).Error; err != nil {
		return nil, fmt.Errorf("load managers: %w", err)
	}

	leadCounts, err := countAssigned(tx, &models.Lead{}, "status NOT IN ?", []models.LeadStatus{models.LeadStatusWon, models.LeadStatusLost})
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}

	companyCounts, err := countAssigned(tx, &models.Company{}, "status <> ?", models.CompanyStatusClosed)
	if err != nil {
		return nil, fmt.Errorf("count companies: %w", err)
	}

	loads := make([]ManagerLoad, 0, len(managers))
	for _, manager := range managers {
		capacity := s.defaultCapacity
		if manager.Capacity != nil && *manager.Capacity > 0 {
			capacity = *manager.Capacity
		}

		load := ManagerLoad{
			ManagerID:       manager.ID,
			Username:        manager.Username,
			ActiveLeads:     leadCounts[manager.ID],
			ActiveCompanies: companyCounts[manager.ID],
			Capacity:        capacity,
		}
		load.Ratio = float64(load.Active()) / float64(capacity)
		load.LoadPercent = clampPercent(load.Ratio)
		loads = append(loads, load)
	}

	sort.Slice(loads, func(i, j int) bool { return loads[i].ManagerID < loads[j].ManagerID })
	return loads, nil
}

func countAssigned(tx *gorm.DB, model interface{}, liveCond string, liveArg interface{}) (map[string]int, error) {
	var rows []managerCount
	if err := tx.Model(model).
		Select("assigned_to_id, COUNT(*) AS total").
		Where("assigned_to_id IS NOT NULL").
		Where(liveCond, liveArg).
		Group("assigned_to_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.AssignedToID] = row.Total
	}
	return counts, nil
}

func clampPercent(ratio float64) int {
	percent := int(ratio * 100)
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
