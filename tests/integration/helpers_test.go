// Package integration provides shared test helpers for integration tests.
package integration

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/geoforge/roofmat/internal/store"
	"github.com/geoforge/roofmat/pkg/types"
)

// setupStore creates a run registry attached to an isolated temp
// directory. Each test gets its own registry for isolation.
func setupStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	st := store.New()
	if err := st.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { st.Detach() })
	return st, dir
}

// writeMetricsFile writes a valid metrics JSON file and returns its path.
func writeMetricsFile(t *testing.T, dir string) string {
	t.Helper()
	m := types.Metrics{
		TrainLosses:  []float64{1.2, 0.8, 0.5},
		ValLosses:    []float64{1.3, 0.9, 0.7},
		TestLoss:     0.65,
		TestAccuracy: 0.81,
		TestConfusionMatrix: [][]int{
			{40, 3, 2},
			{4, 35, 1},
			{2, 2, 38},
		},
		LabelToClass: map[string]string{
			"0": "concrete_cement",
			"1": "healthy_metal",
			"2": "irregular_metal",
		},
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal metrics: %v", err)
	}
	path := filepath.Join(dir, "metrics.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write metrics: %v", err)
	}
	return path
}

// writeWorldRaster writes a bare TIFF plus an ESRI world file so the
// raster resolves to a georeferenced extent without GeoTIFF tags.
func writeWorldRaster(t *testing.T, path string, originX, originY, pixel float64, width, height int) {
	t.Helper()

	// Minimal little-endian TIFF: header, one IFD with width and height.
	var buf []byte
	buf = append(buf, 'I', 'I', 42, 0)
	buf = append(buf, 8, 0, 0, 0) // IFD offset

	entry := func(tag uint16, value uint32) []byte {
		e := make([]byte, 12)
		binary.LittleEndian.PutUint16(e[0:], tag)
		binary.LittleEndian.PutUint16(e[2:], 4) // LONG
		binary.LittleEndian.PutUint32(e[4:], 1)
		binary.LittleEndian.PutUint32(e[8:], value)
		return e
	}
	ifd := make([]byte, 2)
	binary.LittleEndian.PutUint16(ifd, 2)
	ifd = append(ifd, entry(256, uint32(width))...)
	ifd = append(ifd, entry(257, uint32(height))...)
	ifd = append(ifd, 0, 0, 0, 0) // next IFD
	buf = append(buf, ifd...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write raster: %v", err)
	}

	// World file: center-of-pixel origin.
	wf := []byte(
		formatFloat(pixel) + "\n0\n0\n" + formatFloat(-pixel) + "\n" +
			formatFloat(originX+pixel/2) + "\n" + formatFloat(originY-pixel/2) + "\n")
	wfPath := path[:len(path)-len(filepath.Ext(path))] + ".tfw"
	if err := os.WriteFile(wfPath, wf, 0o644); err != nil {
		t.Fatalf("write world file: %v", err)
	}
}

func formatFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
