// ASCII loss-curve rendering and CSV export.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/geoforge/roofmat/pkg/types"
)

// Curve plot markers.
const (
	markTrain = 'x'
	markVal   = 'o'
	markBoth  = '*'
)

// DefaultCurveHeight is the plot height in terminal rows.
const DefaultCurveHeight = 16

// LossCurves renders train and val loss histories as a fixed-height
// ASCII chart, one column per epoch. Returns a note when there is no
// history to plot.
func LossCurves(m *types.Metrics, height int) string {
	epochs := len(m.TrainLosses)
	if len(m.ValLosses) > epochs {
		epochs = len(m.ValLosses)
	}
	if epochs == 0 {
		return "no loss history recorded\n"
	}
	if height < 2 {
		height = DefaultCurveHeight
	}

	lo, hi := lossRange(m)
	if hi == lo {
		// Flat curves still deserve a visible line.
		hi = lo + 1
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", epochs))
	}

	place := func(epoch int, v float64, mark rune) {
		row := int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
		if row < 0 {
			row = 0
		}
		if row >= height {
			row = height - 1
		}
		if grid[row][epoch] != ' ' && grid[row][epoch] != mark {
			grid[row][epoch] = markBoth
		} else {
			grid[row][epoch] = mark
		}
	}

	for i, v := range m.TrainLosses {
		place(i, v, markTrain)
	}
	for i, v := range m.ValLosses {
		place(i, v, markVal)
	}

	var b strings.Builder
	for i, row := range grid {
		switch i {
		case 0:
			fmt.Fprintf(&b, "%8.4f |%s|\n", hi, string(row))
		case height - 1:
			fmt.Fprintf(&b, "%8.4f |%s|\n", lo, string(row))
		default:
			fmt.Fprintf(&b, "%8s |%s|\n", "", string(row))
		}
	}
	fmt.Fprintf(&b, "%8s  %s\n", "", axisLine(epochs))
	fmt.Fprintf(&b, "%8s  epochs 1-%d   %c train loss   %c val loss\n",
		"", epochs, markTrain, markVal)
	return b.String()
}

// axisLine draws the x axis under the plot body.
func axisLine(epochs int) string {
	return strings.Repeat("-", epochs+2)
}

// lossRange returns the min and max across both histories.
func lossRange(m *types.Metrics) (lo, hi float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, series := range [][]float64{m.TrainLosses, m.ValLosses} {
		for _, v := range series {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// WriteLossCSV exports the loss histories as epoch,train_loss,val_loss
// rows for external plotting tools.
func WriteLossCSV(w io.Writer, m *types.Metrics) error {
	if _, err := fmt.Fprintln(w, "epoch,train_loss,val_loss"); err != nil {
		return err
	}
	epochs := len(m.TrainLosses)
	if len(m.ValLosses) > epochs {
		epochs = len(m.ValLosses)
	}
	for i := 0; i < epochs; i++ {
		train, val := "", ""
		if i < len(m.TrainLosses) {
			train = fmt.Sprintf("%g", m.TrainLosses[i])
		}
		if i < len(m.ValLosses) {
			val = fmt.Sprintf("%g", m.ValLosses[i])
		}
		if _, err := fmt.Fprintf(w, "%d,%s,%s\n", i+1, train, val); err != nil {
			return err
		}
	}
	return nil
}
