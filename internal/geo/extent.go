// Package geo reads raster georeferencing and restricts vector
// annotations to a raster's spatial extent.
package geo

import (
	"errors"

	"github.com/paulmach/orb"
)

// Georeferencing errors.
var (
	ErrNotTIFF          = errors.New("not a TIFF file")
	ErrBigTIFF          = errors.New("BigTIFF is not supported")
	ErrNoGeoreference   = errors.New("raster carries no georeferencing tags")
	ErrRotatedRaster    = errors.New("rotated rasters are not supported")
	ErrBadWorldFile     = errors.New("malformed world file")
	ErrInvalidRasterDim = errors.New("raster dimensions must be positive")
)

// Extent is the georeferenced footprint of a raster in model (map) space.
type Extent struct {
	// Bound is the model-space bounding box of the raster.
	Bound orb.Bound
	// Width and Height are the raster dimensions in pixels.
	Width  int
	Height int
	// PixelW and PixelH are the ground resolution per pixel. Both are
	// positive; north-up orientation is implied.
	PixelW float64
	PixelH float64
}

// Contains reports whether the point lies inside the extent. Points on
// the boundary are inside.
func (e Extent) Contains(p orb.Point) bool {
	return e.Bound.Contains(p)
}

// Intersects reports whether the bound overlaps the extent.
func (e Extent) Intersects(b orb.Bound) bool {
	return e.Bound.Intersects(b)
}

// Empty reports whether the extent covers no area.
func (e Extent) Empty() bool {
	return e.Bound.IsEmpty() || e.Width <= 0 || e.Height <= 0
}

// extentFromOrigin builds an Extent from the model coordinates of the
// raster's top-left corner and per-pixel ground resolution.
func extentFromOrigin(originX, originY, pixelW, pixelH float64, width, height int) (Extent, error) {
	if width <= 0 || height <= 0 {
		return Extent{}, ErrInvalidRasterDim
	}
	minX := originX
	maxX := originX + float64(width)*pixelW
	maxY := originY
	minY := originY - float64(height)*pixelH
	return Extent{
		Bound:  orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}},
		Width:  width,
		Height: height,
		PixelW: pixelW,
		PixelH: pixelH,
	}, nil
}
