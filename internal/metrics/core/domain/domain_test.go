package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalForSpan(t *testing.T) {
	tests := []struct {
		span float64
		want Interval
	}{
		{0, Interval{"day", 90}},
		{29.9, Interval{"day", 90}},
		{30, Interval{"week", 180}},
		{179, Interval{"week", 180}},
		{180, Interval{"month", 360}},
		{900, Interval{"month", 360}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IntervalForSpan(tt.span), "span=%v", tt.span)
	}
}

func TestRatio_ZeroPolicy(t *testing.T) {
	assert.Equal(t, 0.0, Ratio(0, 0, 0))
	assert.Equal(t, 1.0, Ratio(0, 0, 1))
	assert.Equal(t, 0.5, Ratio(2, 4, 0))
	assert.Equal(t, 1.0, InvertedRatio(3, 0, 1))
	assert.Equal(t, 0.75, InvertedRatio(1, 4, 1))
}

func TestNewProjectResult(t *testing.T) {
	def := MetricDefinition{ID: "task_completion", Name: "Tareas cerradas", QualityFactors: []string{"Delivery"}}
	res := NewProjectResult(def, Project{Slug: "demo"}, 2.0/3.0, "2/3 en Proyecto", nil)

	assert.Equal(t, "task_completion_demo", res.ID)
	assert.Equal(t, 0.6667, res.Value)
	assert.NotNil(t, res.Metadata)
	assert.Equal(t, []string{"Delivery"}, res.QualityFactors)
}

func TestScope_SprintName(t *testing.T) {
	assert.Equal(t, "Proyecto", Scope{}.SprintName())
	assert.Equal(t, "Sprint", Scope{Sprint: &Sprint{ID: 1}}.SprintName())
	assert.Equal(t, "Sprint 3", Scope{Sprint: &Sprint{ID: 1, Name: "Sprint 3"}}.SprintName())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "internal", NormalizeProvider("  Internal "))
	assert.Equal(t, "", NormalizeProvider("gessi"))
	assert.Equal(t, "taskcompletiondemo", NormalizeIdentifier(" Task_Completion-Demo "))
}

func TestNewStudentResult(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	row := MemberRow{Username: "ana"}
	res := NewStudentResult("closedtasks", "Tareas cerradas", row, 0.5, "1/2", at)

	assert.Equal(t, "closedtasks_ana", res.ID)
	assert.Equal(t, "Tareas cerradas · ana", res.Name)
	assert.Equal(t, "Tareas cerradas de ana", res.Description)
	assert.Equal(t, "2025-03-01T10:00:00Z", res.Date)
	assert.Equal(t, "closedtasks", res.Metadata["metric"])
}

func TestHistoricalPayload_Add(t *testing.T) {
	h := NewHistoricalPayload()
	h.Add(StrategicSeries, map[string][]Point{"task_completion": {{ID: "task_completion"}}})
	h.Add(ProjectSeries, map[string][]Point{"closed_tasks": nil, "closed_issues": {}})
	h.Add(UserSeries, map[string][]Point{"user_closed_tasks": {}})

	assert.Len(t, h.StrategicMetrics["task_completion"], 1)
	require.Contains(t, h.ProjectMetrics, "closed_tasks")
	assert.NotNil(t, h.ProjectMetrics["closed_tasks"])
	assert.Contains(t, h.UserMetrics, "user_closed_tasks")
	assert.Empty(t, h.QualityFactors)
}

func TestPoint_DateJSON(t *testing.T) {
	raw, err := json.Marshal(Point{ID: "closed_tasks"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"date":null`)

	raw, err = json.Marshal(Point{ID: "closed_tasks", Date: DateOf(time.Date(2025, 2, 3, 15, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"date":"2025-02-03"`)
}

func TestMetricFailure(t *testing.T) {
	cause := errors.New("boom")
	f := MetricFailure{Kind: StudentFailure, MetricID: "closedtasks", Username: "ana", Err: cause}

	assert.Equal(t, "closedtasks_ana", f.Key())
	assert.ErrorIs(t, f, cause)
	assert.Contains(t, f.Error(), "student metric closedtasks_ana")
}

func TestMetadataInt(t *testing.T) {
	m := map[string]any{"a": int64(3), "b": float64(4), "c": "x"}
	v, ok := MetadataInt(m, "a")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)
	v, _ = MetadataInt(m, "b")
	assert.Equal(t, int64(4), v)
	_, ok = MetadataInt(m, "c")
	assert.False(t, ok)
}
