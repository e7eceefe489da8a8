// ESRI world-file support, the fallback georeference for rasters whose
// headers carry no geotags.
package geo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WorldFile holds the six-parameter affine transform of an ESRI world
// file. C and F are the model coordinates of the CENTER of the top-left
// pixel, per the format's convention.
type WorldFile struct {
	A float64 // pixel width
	D float64 // row rotation
	B float64 // column rotation
	E float64 // pixel height, negative for north-up rasters
	C float64 // x of center of top-left pixel
	F float64 // y of center of top-left pixel
}

// ParseWorldFile reads the six parameters, one per line.
func ParseWorldFile(r io.Reader) (WorldFile, error) {
	var vals []float64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return WorldFile{}, fmt.Errorf("%w: %q", ErrBadWorldFile, line)
		}
		vals = append(vals, v)
	}
	if err := scanner.Err(); err != nil {
		return WorldFile{}, err
	}
	if len(vals) < 6 {
		return WorldFile{}, fmt.Errorf("%w: expected 6 parameters, got %d", ErrBadWorldFile, len(vals))
	}
	return WorldFile{A: vals[0], D: vals[1], B: vals[2], E: vals[3], C: vals[4], F: vals[5]}, nil
}

// ReadWorldFileExtent reads a world file and combines it with the raster
// dimensions to produce an Extent. Rotated transforms are rejected.
func ReadWorldFileExtent(path string, width, height int) (Extent, error) {
	f, err := os.Open(path)
	if err != nil {
		return Extent{}, err
	}
	defer f.Close()

	wf, err := ParseWorldFile(f)
	if err != nil {
		return Extent{}, err
	}
	return wf.Extent(width, height)
}

// Extent computes the raster footprint for the given pixel dimensions.
func (w WorldFile) Extent(width, height int) (Extent, error) {
	if w.D != 0 || w.B != 0 {
		return Extent{}, ErrRotatedRaster
	}
	if w.A <= 0 || w.E >= 0 {
		return Extent{}, fmt.Errorf("%w: pixel size %g x %g", ErrBadWorldFile, w.A, w.E)
	}
	// C and F reference the pixel center; shift by half a pixel to get
	// the raster edge.
	originX := w.C - w.A/2
	originY := w.F - w.E/2
	return extentFromOrigin(originX, originY, w.A, -w.E, width, height)
}

// WorldFilePath derives the conventional world-file name for an image:
// first and last letter of the extension plus "w" (.tif -> .tfw,
// .jpg -> .jgw, .png -> .pgw).
func WorldFilePath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	if len(ext) < 4 { // ".", plus at least three letters
		return imagePath + "w"
	}
	letters := ext[1:]
	derived := string(letters[0]) + string(letters[len(letters)-1]) + "w"
	return strings.TrimSuffix(imagePath, ext) + "." + derived
}
