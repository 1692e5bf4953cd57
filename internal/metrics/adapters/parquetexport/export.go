// Package parquetexport writes the historical series of a snapshot to a
// Parquet file, one row per point.
package parquetexport

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"taiga-metrics-service/internal/metrics/core/domain"
)

// PointRow is one historical point flattened with its snapshot identity.
type PointRow struct {
	ProjectID   int64     `parquet:"project_id,snappy"`
	ProjectSlug string    `parquet:"project_slug,snappy,dict"`
	Version     string    `parquet:"version,snappy,dict"`
	ComputedAt  time.Time `parquet:"computed_at,snappy"`
	Category    string    `parquet:"category,snappy,dict"`
	Series      string    `parquet:"series,snappy,dict"`
	PointID     string    `parquet:"point_id,snappy"`
	Name        string    `parquet:"name,snappy"`
	Date        *string   `parquet:"date,optional,snappy"`
	Value       float64   `parquet:"value,snappy"`
	Interval    *string   `parquet:"interval,optional,snappy"`
	Student     *string   `parquet:"student,optional,snappy"`
	Role        *string   `parquet:"role,optional,snappy"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Rows flattens the historical payload. Categories come in payload order,
// series by name, points as stored.
func Rows(slug string, snap *domain.Snapshot) []PointRow {
	groups := []struct {
		category string
		series   map[string][]domain.Point
	}{
		{"strategicMetrics", snap.Historical.StrategicMetrics},
		{"projectMetrics", snap.Historical.ProjectMetrics},
		{"userMetrics", snap.Historical.UserMetrics},
		{"qualityFactors", snap.Historical.QualityFactors},
	}

	rows := []PointRow{}
	for _, g := range groups {
		names := make([]string, 0, len(g.series))
		for name := range g.series {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			for _, p := range g.series[name] {
				rows = append(rows, PointRow{
					ProjectID:   snap.ProjectID,
					ProjectSlug: slug,
					Version:     snap.Version,
					ComputedAt:  snap.ComputedAt.UTC(),
					Category:    g.category,
					Series:      name,
					PointID:     p.ID,
					Name:        p.Name,
					Date:        p.Date,
					Value:       p.Value,
					Interval:    optional(p.Interval),
					Student:     optional(p.Student),
					Role:        optional(p.Role),
				})
			}
		}
	}
	return rows
}

// Write encodes rows to w and returns how many were written.
func Write(w io.Writer, rows []PointRow) (int, error) {
	writer := parquet.NewGenericWriter[PointRow](w)
	n, err := writer.Write(rows)
	if err != nil {
		_ = writer.Close()
		return n, fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return n, nil
}

// WriteFile exports the snapshot's historical series to path.
func WriteFile(path, slug string, snap *domain.Snapshot) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	n, err := Write(file, Rows(slug, snap))
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output file: %w", cerr)
	}
	return n, err
}
