package domain

import (
	"fmt"
	"time"
)

// MemberRow is the per-member aggregate the student metrics consume.
type MemberRow struct {
	UserID          int64
	Username        string
	FullName        string
	AssignedTasks   int64
	ClosedTasks     int64
	AssignedStories int64
	ClosedStories   int64
}

func (r MemberRow) DisplayName() string {
	if r.FullName != "" {
		return r.FullName
	}
	return r.Username
}

// TeamTotals are the project-wide denominators shared by every student
// metric of one calculation.
type TeamTotals struct {
	Tasks   int64
	Stories int64
}

func Totals(rows []MemberRow) TeamTotals {
	var t TeamTotals
	for _, r := range rows {
		t.Tasks += r.AssignedTasks
		t.Stories += r.AssignedStories
	}
	return t
}

type Identity struct {
	Username string `json:"username"`
}

// StudentView is one team member with its nested metric entries.
type StudentView struct {
	Username    string              `json:"username"`
	Name        string              `json:"name"`
	DisplayName string              `json:"displayName"`
	Identities  map[string]Identity `json:"identities"`
	Metrics     []MetricResult      `json:"metrics"`
}

func NewStudentView(row MemberRow, metrics []MetricResult) StudentView {
	if metrics == nil {
		metrics = []MetricResult{}
	}
	return StudentView{
		Username:    row.Username,
		Name:        row.DisplayName(),
		DisplayName: row.DisplayName(),
		Identities:  map[string]Identity{"TAIGA": {Username: row.Username}},
		Metrics:     metrics,
	}
}

// NewStudentResult builds the per-member entry: id is "<key>_<username>".
func NewStudentResult(key, label string, row MemberRow, value float64, valueDescription string, at time.Time) MetricResult {
	display := row.DisplayName()
	return MetricResult{
		ID:               fmt.Sprintf("%s_%s", key, row.Username),
		Name:             fmt.Sprintf("%s · %s", label, display),
		Value:            value,
		ValueDescription: valueDescription,
		Description:      fmt.Sprintf("%s de %s", label, display),
		QualityFactors:   []string{"Team"},
		Date:             at.Format(time.RFC3339Nano),
		Student:          row.Username,
		StudentDisplay:   display,
		Metadata: map[string]any{
			"student":         row.Username,
			"student_display": display,
			"metric":          key,
		},
	}
}
