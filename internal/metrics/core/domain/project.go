package domain

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

const (
	ProviderInternal = "internal"
	ProviderExternal = "external"

	// NoSprintName labels metrics computed over the whole project.
	NoSprintName      = "Proyecto"
	UnnamedSprintName = "Sprint"
)

var ErrProjectNotFound = errors.New("project not found")

type Project struct {
	ID   int64
	Slug string
	Name string
}

// Sprint is an open milestone.
type Sprint struct {
	ID              int64
	Name            string
	EstimatedStart  time.Time
	EstimatedFinish time.Time
}

// Scope is what every project metric filters on: the project and, when one
// is active, its sprint.
type Scope struct {
	Project Project
	Sprint  *Sprint
}

func (s Scope) HasSprint() bool {
	return s.Sprint != nil
}

func (s Scope) SprintName() string {
	if s.Sprint == nil {
		return NoSprintName
	}
	if s.Sprint.Name == "" {
		return UnnamedSprintName
	}
	return s.Sprint.Name
}

// ProviderSettings are the per-project overrides used to answer a request.
type ProviderSettings struct {
	Provider          string
	ExternalProjectID string
}

// NormalizeProvider returns "internal" or "external", or "" for anything else.
func NormalizeProvider(source string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	switch s {
	case ProviderInternal, ProviderExternal:
		return s
	default:
		return ""
	}
}

// NormalizeIdentifier lowercases v and drops every non alphanumeric rune.
func NormalizeIdentifier(v string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
