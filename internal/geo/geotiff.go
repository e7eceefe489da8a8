// GeoTIFF header parsing. Only the georeferencing tags are read; pixel
// data is never touched, so this stays cheap even for multi-gigabyte
// imagery tiles.
package geo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// TIFF tag and type constants used by the header reader.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922

	typeShort  = 3
	typeLong   = 4
	typeDouble = 12

	tiffMagic    = 42
	bigTIFFMagic = 43
)

// ifdEntry is one 12-byte entry of a TIFF image file directory.
type ifdEntry struct {
	tag      uint16
	typ      uint16
	count    uint32
	valueOff [4]byte
}

// ReadGeoTIFFExtent reads the georeferenced extent from a GeoTIFF file.
// It requires the ModelPixelScale and ModelTiepoint tags; rasters
// georeferenced through a transformation matrix (rotated rasters) are
// rejected.
func ReadGeoTIFFExtent(path string) (Extent, error) {
	f, err := os.Open(path)
	if err != nil {
		return Extent{}, err
	}
	defer f.Close()
	return readGeoTIFFExtent(f)
}

// ReadTIFFSize reads only the pixel dimensions from a TIFF header.
func ReadTIFFSize(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	ext, err := readGeoTIFFExtent(f)
	if err == nil {
		return ext.Width, ext.Height, nil
	}
	if !errors.Is(err, ErrNoGeoreference) {
		return 0, 0, err
	}
	// Georeferencing is absent but the dimensions were still parsed;
	// rescan for just those.
	return readTIFFDims(f)
}

// RasterExtent resolves a raster's extent: GeoTIFF tags first, then the
// sidecar world file for plain TIFFs.
func RasterExtent(path string) (Extent, error) {
	ext, err := ReadGeoTIFFExtent(path)
	if err == nil {
		return ext, nil
	}
	if !errors.Is(err, ErrNoGeoreference) {
		return Extent{}, err
	}

	width, height, err := ReadTIFFSize(path)
	if err != nil {
		return Extent{}, err
	}
	wfPath := WorldFilePath(path)
	if _, statErr := os.Stat(wfPath); statErr != nil {
		return Extent{}, fmt.Errorf("%s: %w (and no world file at %s)", path, ErrNoGeoreference, wfPath)
	}
	return ReadWorldFileExtent(wfPath, width, height)
}

// readTIFFDims scans the IFD for the image dimension tags only.
func readTIFFDims(r io.ReaderAt) (int, int, error) {
	var header [8]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return 0, 0, ErrNotTIFF
	}
	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, 0, ErrNotTIFF
	}
	ifdOffset := int64(order.Uint32(header[4:8]))

	var countBuf [2]byte
	if _, err := r.ReadAt(countBuf[:], ifdOffset); err != nil {
		return 0, 0, fmt.Errorf("reading IFD: %w", err)
	}
	entryCount := int(order.Uint16(countBuf[:]))
	entryBuf := make([]byte, entryCount*12)
	if _, err := r.ReadAt(entryBuf, ifdOffset+2); err != nil {
		return 0, 0, fmt.Errorf("reading IFD entries: %w", err)
	}

	var width, height int
	for i := 0; i < entryCount; i++ {
		e := decodeEntry(entryBuf[i*12:(i+1)*12], order)
		switch e.tag {
		case tagImageWidth:
			v, err := e.intValue(order)
			if err != nil {
				return 0, 0, err
			}
			width = v
		case tagImageLength:
			v, err := e.intValue(order)
			if err != nil {
				return 0, 0, err
			}
			height = v
		}
	}
	if width <= 0 || height <= 0 {
		return 0, 0, ErrInvalidRasterDim
	}
	return width, height, nil
}

func readGeoTIFFExtent(r io.ReaderAt) (Extent, error) {
	var header [8]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return Extent{}, ErrNotTIFF
	}

	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return Extent{}, ErrNotTIFF
	}

	switch order.Uint16(header[2:4]) {
	case tiffMagic:
	case bigTIFFMagic:
		return Extent{}, ErrBigTIFF
	default:
		return Extent{}, ErrNotTIFF
	}

	ifdOffset := int64(order.Uint32(header[4:8]))

	var countBuf [2]byte
	if _, err := r.ReadAt(countBuf[:], ifdOffset); err != nil {
		return Extent{}, fmt.Errorf("reading IFD: %w", err)
	}
	entryCount := int(order.Uint16(countBuf[:]))

	entryBuf := make([]byte, entryCount*12)
	if _, err := r.ReadAt(entryBuf, ifdOffset+2); err != nil {
		return Extent{}, fmt.Errorf("reading IFD entries: %w", err)
	}

	var (
		width, height int
		pixelScale    []float64
		tiepoint      []float64
	)

	for i := 0; i < entryCount; i++ {
		e := decodeEntry(entryBuf[i*12:(i+1)*12], order)
		switch e.tag {
		case tagImageWidth:
			v, err := e.intValue(order)
			if err != nil {
				return Extent{}, err
			}
			width = v
		case tagImageLength:
			v, err := e.intValue(order)
			if err != nil {
				return Extent{}, err
			}
			height = v
		case tagModelPixelScale:
			v, err := e.doubleValues(r, order)
			if err != nil {
				return Extent{}, err
			}
			pixelScale = v
		case tagModelTiepoint:
			v, err := e.doubleValues(r, order)
			if err != nil {
				return Extent{}, err
			}
			tiepoint = v
		}
	}

	if len(pixelScale) < 2 || len(tiepoint) < 6 {
		return Extent{}, ErrNoGeoreference
	}

	scaleX, scaleY := pixelScale[0], pixelScale[1]
	if scaleX <= 0 || scaleY <= 0 {
		return Extent{}, ErrNoGeoreference
	}

	// A tiepoint maps raster position (i, j) to model position (x, y).
	i, j := tiepoint[0], tiepoint[1]
	x, y := tiepoint[3], tiepoint[4]
	originX := x - i*scaleX
	originY := y + j*scaleY

	return extentFromOrigin(originX, originY, scaleX, scaleY, width, height)
}

func decodeEntry(b []byte, order binary.ByteOrder) ifdEntry {
	var e ifdEntry
	e.tag = order.Uint16(b[0:2])
	e.typ = order.Uint16(b[2:4])
	e.count = order.Uint32(b[4:8])
	copy(e.valueOff[:], b[8:12])
	return e
}

// intValue decodes a single SHORT or LONG value stored inline.
func (e ifdEntry) intValue(order binary.ByteOrder) (int, error) {
	switch e.typ {
	case typeShort:
		return int(order.Uint16(e.valueOff[0:2])), nil
	case typeLong:
		return int(order.Uint32(e.valueOff[0:4])), nil
	default:
		return 0, fmt.Errorf("tag %d: unexpected value type %d", e.tag, e.typ)
	}
}

// doubleValues reads a DOUBLE array. Arrays longer than 4 bytes live at
// the offset stored in the value field, which is always the case for
// the georeferencing tags.
func (e ifdEntry) doubleValues(r io.ReaderAt, order binary.ByteOrder) ([]float64, error) {
	if e.typ != typeDouble {
		return nil, fmt.Errorf("tag %d: unexpected value type %d", e.tag, e.typ)
	}
	off := int64(order.Uint32(e.valueOff[:]))
	buf := make([]byte, 8*e.count)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("tag %d: reading values: %w", e.tag, err)
	}
	out := make([]float64, e.count)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(buf[i*8 : (i+1)*8]))
	}
	return out, nil
}
