package student_test

import (
	"testing"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/student"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func team() []domain.MemberRow {
	return []domain.MemberRow{
		{Username: "ana", FullName: "Ana", AssignedTasks: 2, ClosedTasks: 1, AssignedStories: 1, ClosedStories: 1},
		{Username: "bob", FullName: "Bob", AssignedTasks: 1, ClosedTasks: 1, AssignedStories: 2, ClosedStories: 0},
		{Username: "cris", AssignedTasks: 1, ClosedTasks: 0, AssignedStories: 0, ClosedStories: 0},
	}
}

// ------------------------------------------------------------
// SHARE METRICS SUM TO ONE
// ------------------------------------------------------------

func TestShareMetrics_SumToOne(t *testing.T) {
	rows := team()
	totals := domain.Totals(rows)

	for _, m := range []interface {
		Key() string
		ValueForUser(domain.MemberRow, domain.TeamTotals) float64
	}{student.AssignedTasks{}, student.AssignedStories{}} {
		t.Run(m.Key(), func(t *testing.T) {
			sum := 0.0
			for _, r := range rows {
				sum += m.ValueForUser(r, totals)
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

// ------------------------------------------------------------
// CLOSED TASKS: 1 of 2 -> 0.5, "1/2"
// ------------------------------------------------------------

func TestClosedTasks_HalfClosed(t *testing.T) {
	rows := []domain.MemberRow{
		{Username: "ana", AssignedTasks: 2, ClosedTasks: 1},
		{Username: "bob", AssignedTasks: 2, ClosedTasks: 1},
	}
	totals := domain.Totals(rows)
	require.Equal(t, int64(4), totals.Tasks)

	m := student.ClosedTasks{}
	assert.Equal(t, 0.5, m.ValueForUser(rows[0], totals))
	assert.Equal(t, "1/2", m.Describe(rows[0], totals))

	share := student.AssignedTasks{}
	assert.Equal(t, 0.5, share.ValueForUser(rows[0], totals))
	assert.Equal(t, "2/4", share.Describe(rows[0], totals))
}

// ------------------------------------------------------------
// ZERO DENOMINATORS
// ------------------------------------------------------------

func TestStudentMetrics_ZeroDenominators(t *testing.T) {
	row := domain.MemberRow{Username: "idle"}
	for _, m := range student.All() {
		assert.Equal(t, 0.0, m.ValueForUser(row, domain.TeamTotals{}), m.Key())
		assert.Equal(t, "0/0", m.Describe(row, domain.TeamTotals{}), m.Key())
	}
}

func TestAll_KeysAndLabels(t *testing.T) {
	keys := []string{}
	for _, m := range student.All() {
		keys = append(keys, m.Key())
		assert.NotEmpty(t, m.Label())
	}
	assert.Equal(t, []string{"assignedtasks", "closedtasks", "totalus", "completedus"}, keys)
}
