// Package scoring computes the urgency score used to order lead and task
// work queues. The score is a pure function of priority, due date, status,
// and estimated effort, so a partial field edit recomputes to exactly the
// same value as a full recompute with the untouched fields.
package scoring

import (
	"time"

	"github.com/Maneldor/la-publica-new-sub022/internal/models"
)

// Score weights. Priority tiers dominate; time pressure can lift an item
// within reach of the next tier; effort reorders only within a tier.
const (
	PriorityHighWeight   = 100.0
	PriorityMediumWeight = 50.0
	PriorityLowWeight    = 10.0

	// TimePressureMax is the ceiling of the deadline term. Overdue items
	// always receive the full ceiling.
	TimePressureMax = 40.0

	// PressureHorizon controls how fast pressure ramps as a deadline nears:
	// an item due in one horizon scores half the ceiling.
	PressureHorizon = 7 * 24 * time.Hour

	// EffortCapHours caps the effort contribution; EffortWeight keeps it
	// below the gap between priority tiers.
	EffortCapHours = 16.0
	EffortWeight   = 10.0
)

// Closed is the sentinel score for terminal items. They never appear in a
// live queue regardless of their other fields.
const Closed = 0.0

// LeadScore computes the urgency score for a lead at the given instant.
func LeadScore(lead *models.Lead, now time.Time) float64 {
	if lead == nil || lead.Status.Terminal() {
		return Closed
	}
	return score(lead.Priority, lead.DueDate, lead.EstimatedEffort, now)
}

// TaskScore computes the urgency score for a task at the given instant.
func TaskScore(task *models.Task, now time.Time) float64 {
	if task == nil || task.Status.Terminal() {
		return Closed
	}
	return score(task.Priority, task.DueDate, task.EstimatedEffort, now)
}

func score(priority models.LeadPriority, due *time.Time, effort float64, now time.Time) float64 {
	return priorityWeight(priority) + timePressure(due, now) + effortTerm(effort)
}

func priorityWeight(priority models.LeadPriority) float64 {
	switch priority {
	case models.PriorityHigh:
		return PriorityHighWeight
	case models.PriorityMedium:
		return PriorityMediumWeight
	default:
		return PriorityLowWeight
	}
}

// timePressure grows monotonically as the deadline approaches and clamps
// to the ceiling once the item is overdue, so overdue work never ranks
// below work due far in the future.
func timePressure(due *time.Time, now time.Time) float64 {
	if due == nil {
		return 0
	}

	remaining := due.Sub(now)
	if remaining <= 0 {
		return TimePressureMax
	}

	horizon := float64(PressureHorizon)
	return TimePressureMax * horizon / (horizon + float64(remaining))
}

func effortTerm(effort float64) float64 {
	if effort <= 0 {
		return 0
	}
	if effort > EffortCapHours {
		effort = EffortCapHours
	}
	return effort / EffortCapHours * EffortWeight
}
