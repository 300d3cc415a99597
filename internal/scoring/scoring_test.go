package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Maneldor/la-publica-new-sub022/internal/models"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func leadWith(priority models.LeadPriority, due *time.Time, status models.LeadStatus, effort float64) *models.Lead {
	return &models.Lead{
		Priority:        priority,
		DueDate:         due,
		Status:          status,
		EstimatedEffort: effort,
	}
}

func hoursFromNow(h int) *time.Time {
	ts := testNow.Add(time.Duration(h) * time.Hour)
	return &ts
}

func TestLeadScoreDeterministic(t *testing.T) {
	lead := leadWith(models.PriorityHigh, hoursFromNow(48), models.LeadStatusQualified, 8)

	first := LeadScore(lead, testNow)
	second := LeadScore(lead, testNow)
	require.Equal(t, first, second)
}

func TestTerminalStatusScoresClosed(t *testing.T) {
	overdue := hoursFromNow(-24)

	won := leadWith(models.PriorityHigh, overdue, models.LeadStatusWon, 16)
	lost := leadWith(models.PriorityHigh, overdue, models.LeadStatusLost, 16)

	require.Equal(t, Closed, LeadScore(won, testNow))
	require.Equal(t, Closed, LeadScore(lost, testNow))

	done := &models.Task{Priority: models.PriorityHigh, DueDate: overdue, Status: models.TaskStatusDone}
	require.Equal(t, Closed, TaskScore(done, testNow))
}

func TestHighOverdueBeatsLowFuture(t *testing.T) {
	highOverdue := leadWith(models.PriorityHigh, hoursFromNow(-1), models.LeadStatusNew, 0)

	futures := []*models.Lead{
		leadWith(models.PriorityLow, hoursFromNow(1), models.LeadStatusNew, 16),
		leadWith(models.PriorityLow, hoursFromNow(24*30), models.LeadStatusNew, 16),
		leadWith(models.PriorityLow, nil, models.LeadStatusNew, 16),
	}

	for _, low := range futures {
		require.GreaterOrEqual(t, LeadScore(highOverdue, testNow), LeadScore(low, testNow))
	}
}

func TestOverdueClampsToMaxPressure(t *testing.T) {
	justOverdue := leadWith(models.PriorityMedium, hoursFromNow(-1), models.LeadStatusNew, 0)
	longOverdue := leadWith(models.PriorityMedium, hoursFromNow(-24*90), models.LeadStatusNew, 0)

	require.Equal(t, LeadScore(justOverdue, testNow), LeadScore(longOverdue, testNow))
	require.Equal(t, PriorityMediumWeight+TimePressureMax, LeadScore(justOverdue, testNow))
}

func TestPressureGrowsAsDeadlineApproaches(t *testing.T) {
	far := LeadScore(leadWith(models.PriorityMedium, hoursFromNow(24*60), models.LeadStatusNew, 0), testNow)
	week := LeadScore(leadWith(models.PriorityMedium, hoursFromNow(24*7), models.LeadStatusNew, 0), testNow)
	tomorrow := LeadScore(leadWith(models.PriorityMedium, hoursFromNow(24), models.LeadStatusNew, 0), testNow)
	overdue := LeadScore(leadWith(models.PriorityMedium, hoursFromNow(-1), models.LeadStatusNew, 0), testNow)

	require.Less(t, far, week)
	require.Less(t, week, tomorrow)
	require.Less(t, tomorrow, overdue)
}

func TestNoDueDateAddsNoPressure(t *testing.T) {
	lead := leadWith(models.PriorityLow, nil, models.LeadStatusNew, 0)
	require.Equal(t, PriorityLowWeight, LeadScore(lead, testNow))
}

func TestEffortNeverCrossesPriorityTiers(t *testing.T) {
	heavyLow := leadWith(models.PriorityLow, nil, models.LeadStatusNew, 400)
	lightMedium := leadWith(models.PriorityMedium, nil, models.LeadStatusNew, 0)

	require.Less(t, LeadScore(heavyLow, testNow), LeadScore(lightMedium, testNow))
}

func TestPartialEditMatchesFullRecompute(t *testing.T) {
	due := hoursFromNow(72)
	before := leadWith(models.PriorityLow, due, models.LeadStatusContacted, 4)

	// Simulate an edit touching only priority: score with unchanged fields
	// must match a fresh lead carrying the same values.
	before.Priority = models.PriorityHigh
	edited := LeadScore(before, testNow)

	fresh := leadWith(models.PriorityHigh, due, models.LeadStatusContacted, 4)
	require.Equal(t, LeadScore(fresh, testNow), edited)
}
