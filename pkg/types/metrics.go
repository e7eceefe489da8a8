package types

import (
	"sort"
	"strconv"
)

// Metrics is the metrics file emitted by the training script after the
// test pass. Field names follow the file's JSON keys.
type Metrics struct {
	TrainLosses         []float64         `json:"train_losses"`
	ValLosses           []float64         `json:"val_losses"`
	TestLoss            float64           `json:"test_loss"`
	TestAccuracy        float64           `json:"test_accuracy"`
	TestConfusionMatrix [][]int           `json:"test_confusion_matrix"`
	LabelToClass        map[string]string `json:"label_to_class"`
}

// ClassReport holds per-class precision and recall derived from the
// confusion matrix.
type ClassReport struct {
	Label     string
	Class     string
	Support   int // true instances of the class (row sum)
	Precision float64
	Recall    float64
}

// Validate checks structural consistency of the metrics: the confusion
// matrix must be square with non-negative counts, the label map (when
// present) must cover every matrix row, and the loss histories (when both
// present) must have equal length.
func (m *Metrics) Validate() error {
	n := len(m.TestConfusionMatrix)
	for _, row := range m.TestConfusionMatrix {
		if len(row) != n {
			return ErrConfusionNotSquare
		}
		for _, v := range row {
			if v < 0 {
				return ErrConfusionNegative
			}
		}
	}
	if len(m.LabelToClass) > 0 && len(m.LabelToClass) != n {
		return ErrLabelMapMismatch
	}
	if len(m.TrainLosses) > 0 && len(m.ValLosses) > 0 && len(m.TrainLosses) != len(m.ValLosses) {
		return ErrLossHistoryMismatch
	}
	return nil
}

// NumClasses returns the confusion matrix dimension.
func (m *Metrics) NumClasses() int {
	return len(m.TestConfusionMatrix)
}

// Epochs returns the number of recorded training epochs.
func (m *Metrics) Epochs() int {
	return len(m.TrainLosses)
}

// ClassNames returns the class names ordered by label index. Labels are
// the stringified integer indices of the confusion matrix; missing
// entries fall back to the label itself.
func (m *Metrics) ClassNames() []string {
	n := m.NumClasses()
	names := make([]string, n)
	for i := range names {
		label := strconv.Itoa(i)
		if class, ok := m.LabelToClass[label]; ok {
			names[i] = class
		} else {
			names[i] = label
		}
	}
	return names
}

// AccuracyFromConfusion computes overall accuracy from the confusion
// matrix (trace over total). Returns 0 for an empty matrix.
func (m *Metrics) AccuracyFromConfusion() float64 {
	var correct, total int
	for i, row := range m.TestConfusionMatrix {
		for j, v := range row {
			total += v
			if i == j {
				correct += v
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// PerClassReport computes precision, recall, and support for every class.
// Rows of the confusion matrix are true classes, columns are predictions.
// Classes with no support or no predictions report zero recall or
// precision respectively.
func (m *Metrics) PerClassReport() []ClassReport {
	n := m.NumClasses()
	names := m.ClassNames()
	reports := make([]ClassReport, n)
	for i := 0; i < n; i++ {
		var rowSum, colSum int
		for j := 0; j < n; j++ {
			rowSum += m.TestConfusionMatrix[i][j]
			colSum += m.TestConfusionMatrix[j][i]
		}
		r := ClassReport{
			Label:   strconv.Itoa(i),
			Class:   names[i],
			Support: rowSum,
		}
		diag := m.TestConfusionMatrix[i][i]
		if rowSum > 0 {
			r.Recall = float64(diag) / float64(rowSum)
		}
		if colSum > 0 {
			r.Precision = float64(diag) / float64(colSum)
		}
		reports[i] = r
	}
	return reports
}

// SortedLabels returns the label keys of LabelToClass in numeric order
// when all keys parse as integers, otherwise in lexical order.
func (m *Metrics) SortedLabels() []string {
	labels := make([]string, 0, len(m.LabelToClass))
	for k := range m.LabelToClass {
		labels = append(labels, k)
	}
	numeric := true
	for _, l := range labels {
		if _, err := strconv.Atoi(l); err != nil {
			numeric = false
			break
		}
	}
	if numeric {
		sort.Slice(labels, func(i, j int) bool {
			a, _ := strconv.Atoi(labels[i])
			b, _ := strconv.Atoi(labels[j])
			return a < b
		})
	} else {
		sort.Strings(labels)
	}
	return labels
}
