// Annotation filtering: restrict a GeoJSON feature collection to the
// features that fall within a raster's extent.
package geo

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"
)

// Mode selects the membership predicate for non-point geometries.
type Mode string

const (
	// ModeCentroid keeps a feature when its centroid lies inside the
	// extent. Points degenerate to themselves.
	ModeCentroid Mode = "centroid"
	// ModeIntersects keeps a feature when its bounding box overlaps the
	// extent at all.
	ModeIntersects Mode = "intersects"
)

// ValidMode reports whether m is a recognized filter mode.
func ValidMode(m Mode) bool {
	return m == ModeCentroid || m == ModeIntersects
}

// LoadFeatures reads a GeoJSON feature collection from a file.
func LoadFeatures(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fc, nil
}

// SaveFeatures writes a GeoJSON feature collection to a file.
func SaveFeatures(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// FilterToExtent returns a new feature collection containing exactly the
// input features that fall within the extent under the given mode.
// Geometries and properties are carried over untouched; the input
// collection is never modified.
func FilterToExtent(fc *geojson.FeatureCollection, ext Extent, mode Mode) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if featureInExtent(f.Geometry, ext, mode) {
			out.Append(f)
		}
	}
	return out
}

// featureInExtent applies the membership predicate for one geometry.
func featureInExtent(g orb.Geometry, ext Extent, mode Mode) bool {
	if p, ok := g.(orb.Point); ok {
		return ext.Contains(p)
	}
	switch mode {
	case ModeIntersects:
		return ext.Intersects(g.Bound())
	default:
		centroid, _ := planar.CentroidArea(g)
		return ext.Contains(centroid)
	}
}

// RasterResult pairs a raster path with the features kept for it.
type RasterResult struct {
	RasterPath string
	Features   *geojson.FeatureCollection
}

// FilterToRasters filters one feature collection against many rasters
// concurrently, resolving each raster's extent with RasterExtent. At
// most limit rasters are processed at a time; the first error cancels
// the remaining work.
func FilterToRasters(ctx context.Context, rasterPaths []string, fc *geojson.FeatureCollection, mode Mode, limit int) ([]RasterResult, error) {
	if limit <= 0 {
		limit = 1
	}

	results := make([]RasterResult, len(rasterPaths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range rasterPaths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ext, err := RasterExtent(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = RasterResult{
				RasterPath: path,
				Features:   FilterToExtent(fc, ext, mode),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
