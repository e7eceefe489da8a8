// Confusion-matrix and per-class report tables.
package report

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/geoforge/roofmat/pkg/types"
)

// ConfusionTable renders the test confusion matrix as a terminal table.
// Rows are true classes, columns are predictions; the trailing column is
// per-class recall.
func ConfusionTable(m *types.Metrics) string {
	names := m.ClassNames()

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	header := table.Row{"true \\ predicted"}
	for _, name := range names {
		header = append(header, name)
	}
	header = append(header, "recall")
	t.AppendHeader(header)

	reports := m.PerClassReport()
	for i, row := range m.TestConfusionMatrix {
		r := table.Row{names[i]}
		for _, v := range row {
			r = append(r, v)
		}
		r = append(r, fmt.Sprintf("%.3f", reports[i].Recall))
		t.AppendRow(r)
	}

	return t.Render()
}

// ClassReportTable renders per-class precision/recall/support.
func ClassReportTable(m *types.Metrics) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"label", "class", "precision", "recall", "support"})

	for _, r := range m.PerClassReport() {
		t.AppendRow(table.Row{
			r.Label, r.Class,
			fmt.Sprintf("%.3f", r.Precision),
			fmt.Sprintf("%.3f", r.Recall),
			r.Support,
		})
	}
	return t.Render()
}

// Summary renders the headline test metrics.
func Summary(m *types.Metrics) string {
	return fmt.Sprintf("test loss %.4f | test accuracy %.2f%% | %d classes | %d epochs",
		m.TestLoss, m.TestAccuracy*100, m.NumClasses(), m.Epochs())
}
