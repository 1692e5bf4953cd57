package domain

import "time"

// Category is one entry of the dashboard color legend.
type Category struct {
	Name           string  `json:"name"`
	UpperThreshold float64 `json:"upperThreshold"`
	Color          string  `json:"color"`
	Type           string  `json:"type"`
}

// Hours is the effort split derived from task and issue counts.
type Hours struct {
	Execution int64 `json:"execution"`
	Pending   int64 `json:"pending"`
	Quality   int64 `json:"quality"`
	Incidents int64 `json:"incidents"`
}

// Payload is the real-time part of a snapshot.
type Payload struct {
	ProjectSlug         string            `json:"project_slug"`
	ProjectName         string            `json:"project_name"`
	ExternalProjectID   string            `json:"external_project_id"`
	Metrics             []MetricResult    `json:"metrics"`
	Students            []StudentView     `json:"students"`
	MetricsCategories   []Category        `json:"metrics_categories"`
	StrategicIndicators []any             `json:"strategic_indicators"`
	QualityFactors      []any             `json:"quality_factors"`
	Hours               Hours             `json:"hours"`
	Errors              map[string]string `json:"errors"`
	IsNewProject        bool              `json:"is_new_project"`
}

// Point is one bucket of a historical series.
type Point struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Date     *string        `json:"date"`
	Value    float64        `json:"value"`
	Interval string         `json:"interval,omitempty"`
	Student  string         `json:"student,omitempty"`
	Role     string         `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DateOf formats a bucket as YYYY-MM-DD.
func DateOf(t time.Time) *string {
	s := t.Format(time.DateOnly)
	return &s
}

// SeriesCategory decides which bucket of the historical payload a series
// lands in.
type SeriesCategory string

const (
	StrategicSeries SeriesCategory = "strategic"
	ProjectSeries   SeriesCategory = "project"
	UserSeries      SeriesCategory = "user"
)

func (c SeriesCategory) Valid() bool {
	switch c {
	case StrategicSeries, ProjectSeries, UserSeries:
		return true
	default:
		return false
	}
}

type HistoricalPayload struct {
	StrategicMetrics map[string][]Point `json:"strategicMetrics"`
	ProjectMetrics   map[string][]Point `json:"projectMetrics"`
	UserMetrics      map[string][]Point `json:"userMetrics"`
	QualityFactors   map[string][]Point `json:"qualityFactors"`
}

func NewHistoricalPayload() HistoricalPayload {
	return HistoricalPayload{
		StrategicMetrics: map[string][]Point{},
		ProjectMetrics:   map[string][]Point{},
		UserMetrics:      map[string][]Point{},
		QualityFactors:   map[string][]Point{},
	}
}

// Add merges series into the bucket selected by category.
func (h *HistoricalPayload) Add(category SeriesCategory, series map[string][]Point) {
	var dst map[string][]Point
	switch category {
	case StrategicSeries:
		dst = h.StrategicMetrics
	case UserSeries:
		dst = h.UserMetrics
	default:
		dst = h.ProjectMetrics
	}
	for id, points := range series {
		if points == nil {
			points = []Point{}
		}
		dst[id] = points
	}
}

// Interval is a date_trunc unit plus the lookback window in days.
type Interval struct {
	Name string
	Days int
}

// IntervalForSpan picks the bucketing for a project whose task data spans
// spanDays days.
func IntervalForSpan(spanDays float64) Interval {
	switch {
	case spanDays < 30:
		return Interval{Name: "day", Days: 90}
	case spanDays < 180:
		return Interval{Name: "week", Days: 180}
	default:
		return Interval{Name: "month", Days: 360}
	}
}
