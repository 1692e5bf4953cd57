package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"taiga-metrics-service/internal/metrics/core/domain"
	"taiga-metrics-service/internal/metrics/core/ports"
	"taiga-metrics-service/internal/metrics/core/registry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taiga-metrics-service/metrics"

var ErrNonFiniteValue = errors.New("metric produced a non-finite value")

// Calculator runs every registered metric for one project and assembles the
// snapshot payloads. A failing metric is left out of the payload and
// reported in BuildResult.Failures and payload errors.
type Calculator struct {
	registry *registry.Registry
	sprints  ports.SprintResolverPort
	team     ports.TeamReaderPort

	recorder ports.RecorderPort
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type CalculatorOption func(*Calculator)

func WithLogger(l *slog.Logger) CalculatorOption {
	return func(c *Calculator) { c.logger = l }
}

func WithTracer(t trace.Tracer) CalculatorOption {
	return func(c *Calculator) { c.tracer = t }
}

func WithRecorder(r ports.RecorderPort) CalculatorOption {
	return func(c *Calculator) { c.recorder = r }
}

func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) { c.now = now }
}

func NewCalculator(reg *registry.Registry, sprints ports.SprintResolverPort, team ports.TeamReaderPort, opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		registry: reg,
		sprints:  sprints,
		team:     team,
		recorder: nopRecorder{},
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "calculator")
	return c
}

// BuildSnapshot computes the real-time and historical payloads. Only a
// failure to resolve the active sprint aborts the build.
func (c *Calculator) BuildSnapshot(ctx context.Context, project domain.Project) (*domain.BuildResult, error) {
	ctx, span := c.tracer.Start(ctx, "metrics.build_snapshot",
		trace.WithAttributes(attribute.String("project.slug", project.Slug)))
	defer span.End()

	sprint, err := c.sprints.ActiveSprint(ctx, project.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "active sprint")
		return nil, fmt.Errorf("resolve active sprint: %w", err)
	}
	scope := domain.Scope{Project: project, Sprint: sprint}

	res := &domain.BuildResult{}

	metrics := c.projectMetrics(ctx, scope, res)
	students, entries := c.studentMetrics(ctx, scope, res)

	// Student entries also go in the flat list, where dashboards look them
	// up by "<key>_<username>".
	metrics = append(metrics, entries...)

	errs := map[string]string{}
	for _, f := range res.Failures {
		errs[f.Key()] = f.Err.Error()
	}

	res.Payload = domain.Payload{
		ProjectSlug:         project.Slug,
		ProjectName:         project.Name,
		ExternalProjectID:   project.Slug,
		Metrics:             metrics,
		Students:            students,
		MetricsCategories:   MetricCategories(),
		StrategicIndicators: []any{},
		QualityFactors:      []any{},
		Hours:               HoursBreakdown(metrics),
		Errors:              errs,
		IsNewProject:        IsNewProject(metrics, len(entries)),
	}
	res.Historical, res.HistoricalErrors = c.BuildHistorical(ctx, project, res)

	span.SetAttributes(attribute.Int("metrics.failures", len(res.Failures)))
	return res, nil
}

func (c *Calculator) projectMetrics(ctx context.Context, scope domain.Scope, res *domain.BuildResult) []domain.MetricResult {
	out := make([]domain.MetricResult, 0, len(c.registry.Project))
	for _, m := range c.registry.Project {
		result, err := c.runProjectMetric(ctx, m, scope)
		if err != nil {
			c.fail(ctx, res, domain.MetricFailure{Kind: domain.ProjectFailure, MetricID: m.ID(), Err: err})
			continue
		}
		if result == nil {
			continue
		}
		out = append(out, *result)
	}
	return out
}

func (c *Calculator) runProjectMetric(ctx context.Context, m ports.ProjectMetric, scope domain.Scope) (*domain.MetricResult, error) {
	ctx, span := c.tracer.Start(ctx, "metrics.project."+m.ID())
	defer span.End()

	result, err := m.Calculate(ctx, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if result != nil && (math.IsNaN(result.Value) || math.IsInf(result.Value, 0)) {
		return nil, ErrNonFiniteValue
	}
	return result, nil
}

// studentMetrics evaluates every student metric once per member row.
func (c *Calculator) studentMetrics(ctx context.Context, scope domain.Scope, res *domain.BuildResult) ([]domain.StudentView, []domain.MetricResult) {
	students := []domain.StudentView{}
	entries := []domain.MetricResult{}

	if len(c.registry.Student) == 0 {
		return students, entries
	}

	ctx, span := c.tracer.Start(ctx, "metrics.students")
	defer span.End()

	rows, err := c.team.TeamRows(ctx, scope)
	if err != nil {
		span.RecordError(err)
		c.fail(ctx, res, domain.MetricFailure{Kind: domain.TeamFailure, MetricID: "students", Err: err})
		return students, entries
	}

	totals := domain.Totals(rows)
	at := c.now().UTC()

	for _, row := range rows {
		memberMetrics := make([]domain.MetricResult, 0, len(c.registry.Student))
		for _, m := range c.registry.Student {
			value := m.ValueForUser(row, totals)
			if math.IsNaN(value) || math.IsInf(value, 0) {
				c.fail(ctx, res, domain.MetricFailure{
					Kind:     domain.StudentFailure,
					MetricID: m.Key(),
					Username: row.Username,
					Err:      ErrNonFiniteValue,
				})
				continue
			}
			memberMetrics = append(memberMetrics,
				domain.NewStudentResult(m.Key(), m.Label(), row, value, m.Describe(row, totals), at))
		}
		entries = append(entries, memberMetrics...)
		students = append(students, domain.NewStudentView(row, memberMetrics))
	}

	span.SetAttributes(attribute.Int("team.members", len(rows)))
	return students, entries
}

// BuildHistorical runs every historical metric and files its series under
// the category the registry tagged it with. Failed metrics are left out of
// the payload and reported in the returned map.
func (c *Calculator) BuildHistorical(ctx context.Context, project domain.Project, res *domain.BuildResult) (domain.HistoricalPayload, map[string]string) {
	out := domain.NewHistoricalPayload()
	errs := map[string]string{}
	start := len(res.Failures)

	for _, entry := range c.registry.Historical {
		series, err := c.runHistoricalMetric(ctx, entry.Metric, project)
		if err != nil {
			c.fail(ctx, res, domain.MetricFailure{Kind: domain.HistoricalFailure, MetricID: entry.Metric.ID(), Err: err})
			continue
		}
		out.Add(entry.Category, series)
	}

	for _, f := range res.Failures[start:] {
		errs[f.Key()] = f.Err.Error()
	}
	return out, errs
}

func (c *Calculator) runHistoricalMetric(ctx context.Context, m ports.HistoricalMetric, project domain.Project) (map[string][]domain.Point, error) {
	ctx, span := c.tracer.Start(ctx, "metrics.historical."+m.ID())
	defer span.End()

	series, err := m.CalculateSeries(ctx, project)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return series, err
}

func (c *Calculator) fail(ctx context.Context, res *domain.BuildResult, f domain.MetricFailure) {
	res.Failures = append(res.Failures, f)
	c.recorder.ObserveMetricFailure(f.Kind, f.MetricID)
	c.logger.WarnContext(ctx, "metric failed",
		"kind", string(f.Kind),
		"metric", f.Key(),
		"error", f.Err,
	)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBuild(time.Duration, error)                {}
func (nopRecorder) ObserveCache(bool)                                {}
func (nopRecorder) ObserveMetricFailure(domain.FailureKind, string) {}
