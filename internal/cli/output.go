package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"taiga-metrics-service/internal/metrics/adapters/snapshotstore"
	"taiga-metrics-service/internal/metrics/core/domain"
)

var (
	lowColor  = color.New(color.FgRed, color.Bold)
	midColor  = color.New(color.FgYellow)
	highColor = color.New(color.FgGreen)
	dimColor  = color.New(color.FgHiBlack)
)

// colorValue follows the percentage bands of the dashboard legend.
func colorValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	switch {
	case v < 0.5:
		return lowColor.Sprint(s)
	case v < 0.8:
		return midColor.Sprint(s)
	default:
		return highColor.Sprint(s)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return dimColor.Sprint("never")
	}
	return t.UTC().Format(time.RFC3339)
}

func printMetrics(w io.Writer, snap *domain.Snapshot) error {
	_, _ = fmt.Fprintf(w, "%s (%s) version %s computed %s\n",
		snap.Payload.ProjectName, snap.Payload.ProjectSlug, snap.Version, formatTime(snap.ComputedAt))

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Name", "Value", "Detail"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, m := range snap.Payload.Metrics {
		if m.Student != "" {
			continue
		}
		data = append(data, []string{m.ID, m.Name, colorValue(m.Value), m.ValueDescription})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	return printErrors(w, snap.Payload.Errors, snap.HistoricalErrors)
}

func printStudents(w io.Writer, snap *domain.Snapshot) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Student", "Metric", "Value", "Detail"})

	var data [][]string
	for _, m := range snap.Payload.Metrics {
		if m.Student == "" {
			continue
		}
		data = append(data, []string{m.StudentDisplay, m.Name, colorValue(m.Value), m.ValueDescription})
	}
	if len(data) == 0 {
		_, err := fmt.Fprintln(w, dimColor.Sprint("No student metrics."))
		return err
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printErrors(w io.Writer, sets ...map[string]string) error {
	keys := map[string]string{}
	for _, set := range sets {
		for k, v := range set {
			keys[k] = v
		}
	}
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	_, _ = fmt.Fprintln(w, lowColor.Sprint("Failed metrics:"))
	for _, k := range names {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", k, keys[k]); err != nil {
			return err
		}
	}
	return nil
}

func printSnapshotList(w io.Writer, infos []domain.SnapshotInfo, ttl time.Duration, now time.Time) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, dimColor.Sprint("No snapshots stored."))
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Project", "Provider", "Version", "Computed", "State"})

	var data [][]string
	for _, info := range infos {
		state := highColor.Sprint("fresh")
		if info.ComputedAt.Before(now.Add(-ttl)) {
			state = midColor.Sprint("stale")
		}
		data = append(data, []string{
			strconv.FormatInt(info.ProjectID, 10),
			info.Provider,
			info.Version,
			formatTime(info.ComputedAt),
			state,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printStoreStatus(w io.Writer, st snapshotstore.Status) error {
	connected := lowColor.Sprint("no")
	if st.Connected {
		connected = highColor.Sprint("yes")
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Property", "Value"})
	data := [][]string{
		{"Backend", string(st.Backend)},
		{"Connected", connected},
		{"Snapshots", strconv.FormatInt(st.Rows, 10)},
		{"Oldest", formatTime(st.Oldest)},
		{"Newest", formatTime(st.Newest)},
		{"Size", formatBytes(st.SizeBytes)},
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
