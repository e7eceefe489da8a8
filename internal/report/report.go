// Package report loads metrics files and renders them for the terminal:
// confusion matrices, loss curves, and run summaries.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/geoforge/roofmat/pkg/types"
)

// DefaultMetricsFileName is where the training script writes its metrics
// inside the run's output directory.
const DefaultMetricsFileName = "metrics.json"

// LoadMetrics reads and validates a metrics JSON file.
func LoadMetrics(path string) (*types.Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m types.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metrics in %s: %w", path, err)
	}
	return &m, nil
}
