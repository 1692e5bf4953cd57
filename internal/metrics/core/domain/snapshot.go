package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is a persisted build result. Version changes on every rebuild.
type Snapshot struct {
	ProjectID  int64
	Provider   string
	Version    string
	CreatedAt  time.Time
	ComputedAt time.Time
	Payload    Payload
	Historical HistoricalPayload
	// HistoricalErrors maps the id of each historical metric that failed
	// to its error message.
	HistoricalErrors map[string]string
}

// Fresh reports whether the snapshot was computed at or after cutoff.
func (s Snapshot) Fresh(cutoff time.Time) bool {
	return !s.ComputedAt.Before(cutoff)
}

// SnapshotInfo is the listing view of a stored snapshot.
type SnapshotInfo struct {
	ProjectID  int64
	Provider   string
	Version    string
	ComputedAt time.Time
}

type FailureKind string

const (
	ProjectFailure    FailureKind = "project"
	StudentFailure    FailureKind = "student"
	TeamFailure       FailureKind = "team"
	HistoricalFailure FailureKind = "historical"
)

// MetricFailure records one metric that could not be computed.
type MetricFailure struct {
	Kind     FailureKind
	MetricID string
	Username string
	Err      error
}

// Key is the payload "errors" key for this failure.
func (f MetricFailure) Key() string {
	if f.Username != "" {
		return fmt.Sprintf("%s_%s", f.MetricID, f.Username)
	}
	return f.MetricID
}

func (f MetricFailure) Error() string {
	return fmt.Sprintf("%s metric %s: %v", f.Kind, f.Key(), f.Err)
}

func (f MetricFailure) Unwrap() error {
	return f.Err
}

// BuildResult is what the calculator hands to the snapshot service.
type BuildResult struct {
	Payload          Payload
	Historical       HistoricalPayload
	HistoricalErrors map[string]string
	Failures         []MetricFailure
}
