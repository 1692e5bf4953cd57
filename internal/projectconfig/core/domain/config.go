package domain

import (
	"errors"
	"time"
)

var ErrConfigNotFound = errors.New("metrics config not found")

// Placement of a metric on the dashboard.
const (
	PlaceProject = "project"
	PlaceTeam    = "team"
	PlaceHidden  = "hidden"
)

type MetricsConfig struct {
	ProjectID           int64
	Provider            string
	ExternalProjectID   string
	Classification      map[string]string
	ProjectMetricsOrder []string
	TeamMetricsOrder    []string
	UpdatedAt           time.Time
}

func ValidPlacement(v string) bool {
	switch v {
	case PlaceProject, PlaceTeam, PlaceHidden:
		return true
	default:
		return false
	}
}
