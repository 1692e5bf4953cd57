package domain

import (
	"fmt"
	"math"
)

// MetricDefinition describes a project KPI independently of any project.
type MetricDefinition struct {
	ID             string
	Name           string
	Description    string
	QualityFactors []string
}

// MetricResult is one KPI entry of the payload. Student entries additionally
// carry Date, Student and StudentDisplay.
type MetricResult struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Value            float64        `json:"value"`
	ValueDescription string         `json:"value_description"`
	Description      string         `json:"description"`
	QualityFactors   []string       `json:"qualityFactors"`
	Date             string         `json:"date,omitempty"`
	Student          string         `json:"student,omitempty"`
	StudentDisplay   string         `json:"student_display,omitempty"`
	Metadata         map[string]any `json:"metadata"`
}

// NewProjectResult builds the standard project KPI shape: id is
// "<metric id>_<project slug>" and the value is rounded to 4 decimals.
func NewProjectResult(def MetricDefinition, project Project, value float64, valueDescription string, metadata map[string]any) *MetricResult {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &MetricResult{
		ID:               fmt.Sprintf("%s_%s", def.ID, project.Slug),
		Name:             def.Name,
		Value:            Round(value, 4),
		ValueDescription: valueDescription,
		Description:      def.Description,
		QualityFactors:   def.QualityFactors,
		Metadata:         metadata,
	}
}

// Ratio returns num/den, or zero when den is not positive.
func Ratio(num, den int64, zero float64) float64 {
	if den <= 0 {
		return zero
	}
	return float64(num) / float64(den)
}

// InvertedRatio returns 1 - num/den, or zero when den is not positive.
func InvertedRatio(num, den int64, zero float64) float64 {
	if den <= 0 {
		return zero
	}
	return 1.0 - float64(num)/float64(den)
}

func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// MetadataInt reads a numeric metadata entry. Values decoded from JSON come
// back as float64, freshly computed ones as int64.
func MetadataInt(metadata map[string]any, key string) (int64, bool) {
	v, ok := metadata[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
