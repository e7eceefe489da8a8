// Run summary tables for the list and show commands.
package report

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/geoforge/roofmat/pkg/types"
)

// RunsTable renders a run listing, one row per run.
func RunsTable(runs []*types.Run) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"run", "kind", "exp version", "state", "created", "duration", "exit"})

	for _, r := range runs {
		t.AppendRow(table.Row{
			ShortID(r.RunID),
			r.Kind,
			r.ExpVersion,
			r.State,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			formatDuration(r.Duration()),
			exitCell(r),
		})
	}
	return t.Render()
}

// RunDetail renders a single run's full record.
func RunDetail(r *types.Run) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"run id", r.RunID})
	t.AppendRow(table.Row{"kind", r.Kind})
	t.AppendRow(table.Row{"exp version", r.ExpVersion})
	t.AppendRow(table.Row{"state", r.State})
	t.AppendRow(table.Row{"command", fmt.Sprintf("%v", r.Command)})
	t.AppendRow(table.Row{"output dir", r.OutputDir})
	t.AppendRow(table.Row{"metrics", r.MetricsPath})
	t.AppendRow(table.Row{"log", r.LogPath})
	t.AppendRow(table.Row{"exit code", exitCell(r)})
	t.AppendRow(table.Row{"created", r.CreatedAt.Local().Format(time.RFC3339)})
	t.AppendRow(table.Row{"duration", formatDuration(r.Duration())})
	if r.Notes != "" {
		t.AppendRow(table.Row{"notes", r.Notes})
	}
	return t.Render()
}

// ShortID abbreviates a UUID for table display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func exitCell(r *types.Run) string {
	// Canceled runs never report a meaningful exit code; the zero left
	// in ExitCode would read as success.
	if !r.Terminal() || r.State == types.StateCanceled {
		return "-"
	}
	return fmt.Sprintf("%d", r.ExitCode)
}
