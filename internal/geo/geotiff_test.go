package geo

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tiffFixture crafts a minimal GeoTIFF header: IFD with image dimensions
// plus ModelPixelScale and ModelTiepoint double arrays.
type tiffFixture struct {
	order      binary.ByteOrder
	width      int
	height     int
	pixelScale []float64
	tiepoint   []float64
}

func (fx tiffFixture) bytes(t *testing.T) []byte {
	t.Helper()

	type entry struct {
		tag, typ uint16
		count    uint32
		value    uint32
	}

	const ifdOffset = 8
	entries := []entry{
		{tag: tagImageWidth, typ: typeLong, count: 1, value: uint32(fx.width)},
		{tag: tagImageLength, typ: typeShort, count: 1, value: uint32(fx.height)},
	}

	// Double arrays are appended after the IFD; compute their offsets.
	dataStart := uint32(ifdOffset + 2 + 12*(len(entries)+2) + 4)
	if fx.pixelScale != nil {
		entries = append(entries, entry{tag: tagModelPixelScale, typ: typeDouble,
			count: uint32(len(fx.pixelScale)), value: dataStart})
	}
	tiepointStart := dataStart + uint32(8*len(fx.pixelScale))
	if fx.tiepoint != nil {
		entries = append(entries, entry{tag: tagModelTiepoint, typ: typeDouble,
			count: uint32(len(fx.tiepoint)), value: tiepointStart})
	}

	buf := make([]byte, 8)
	if fx.order == binary.BigEndian {
		buf[0], buf[1] = 'M', 'M'
	} else {
		buf[0], buf[1] = 'I', 'I'
	}
	fx.order.PutUint16(buf[2:4], tiffMagic)
	fx.order.PutUint32(buf[4:8], ifdOffset)

	ifd := make([]byte, 2)
	fx.order.PutUint16(ifd, uint16(len(entries)))
	for _, e := range entries {
		eb := make([]byte, 12)
		fx.order.PutUint16(eb[0:2], e.tag)
		fx.order.PutUint16(eb[2:4], e.typ)
		fx.order.PutUint32(eb[4:8], e.count)
		if e.typ == typeShort {
			fx.order.PutUint16(eb[8:10], uint16(e.value))
		} else {
			fx.order.PutUint32(eb[8:12], e.value)
		}
		ifd = append(ifd, eb...)
	}
	// Two slots are always reserved for the geo tags even when a fixture
	// omits them; pad with empty entries so offsets stay stable.
	for len(ifd) < 2+12*(len(entries)+(2-countGeoTags(fx))) {
		pad := make([]byte, 12)
		ifd = append(ifd, pad...)
	}
	next := make([]byte, 4) // next IFD offset: none
	ifd = append(ifd, next...)

	buf = append(buf, ifd...)
	for _, v := range fx.pixelScale {
		db := make([]byte, 8)
		fx.order.PutUint64(db, math.Float64bits(v))
		buf = append(buf, db...)
	}
	for _, v := range fx.tiepoint {
		db := make([]byte, 8)
		fx.order.PutUint64(db, math.Float64bits(v))
		buf = append(buf, db...)
	}
	return buf
}

func countGeoTags(fx tiffFixture) int {
	n := 0
	if fx.pixelScale != nil {
		n++
	}
	if fx.tiepoint != nil {
		n++
	}
	return n
}

// writeTIFF writes the fixture to a temp file and returns its path.
func writeTIFF(t *testing.T, fx tiffFixture) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tile.tif")
	require.NoError(t, os.WriteFile(path, fx.bytes(t), 0o644))
	return path
}

func TestReadGeoTIFFExtent(t *testing.T) {
	// 512x256 tile, 0.5m pixels, top-left corner at (30000, 74000).
	fx := tiffFixture{
		order:      binary.LittleEndian,
		width:      512,
		height:     256,
		pixelScale: []float64{0.5, 0.5, 0},
		tiepoint:   []float64{0, 0, 0, 30000, 74000, 0},
	}

	t.Run("little endian", func(t *testing.T) {
		ext, err := ReadGeoTIFFExtent(writeTIFF(t, fx))
		require.NoError(t, err)

		assert.Equal(t, 512, ext.Width)
		assert.Equal(t, 256, ext.Height)
		assert.InDelta(t, 30000, ext.Bound.Min[0], 1e-9)
		assert.InDelta(t, 30256, ext.Bound.Max[0], 1e-9) // 30000 + 512*0.5
		assert.InDelta(t, 74000, ext.Bound.Max[1], 1e-9)
		assert.InDelta(t, 73872, ext.Bound.Min[1], 1e-9) // 74000 - 256*0.5
		assert.InDelta(t, 0.5, ext.PixelW, 1e-9)
	})

	t.Run("big endian", func(t *testing.T) {
		be := fx
		be.order = binary.BigEndian
		ext, err := ReadGeoTIFFExtent(writeTIFF(t, be))
		require.NoError(t, err)
		assert.InDelta(t, 30000, ext.Bound.Min[0], 1e-9)
		assert.InDelta(t, 74000, ext.Bound.Max[1], 1e-9)
	})

	t.Run("non-zero tiepoint pixel", func(t *testing.T) {
		shifted := fx
		// Tiepoint anchored at pixel (10, 20) instead of the corner.
		shifted.tiepoint = []float64{10, 20, 0, 30005, 73990, 0}
		ext, err := ReadGeoTIFFExtent(writeTIFF(t, shifted))
		require.NoError(t, err)
		// origin = (30005 - 10*0.5, 73990 + 20*0.5) = (30000, 74000)
		assert.InDelta(t, 30000, ext.Bound.Min[0], 1e-9)
		assert.InDelta(t, 74000, ext.Bound.Max[1], 1e-9)
	})
}

func TestReadGeoTIFFExtentErrors(t *testing.T) {
	t.Run("not a tiff", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tile.tif")
		require.NoError(t, os.WriteFile(path, []byte("PNG not really"), 0o644))
		_, err := ReadGeoTIFFExtent(path)
		assert.ErrorIs(t, err, ErrNotTIFF)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tile.tif")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		_, err := ReadGeoTIFFExtent(path)
		assert.ErrorIs(t, err, ErrNotTIFF)
	})

	t.Run("bigtiff rejected", func(t *testing.T) {
		data := []byte{'I', 'I', bigTIFFMagic, 0, 8, 0, 0, 0}
		path := filepath.Join(t.TempDir(), "tile.tif")
		require.NoError(t, os.WriteFile(path, data, 0o644))
		_, err := ReadGeoTIFFExtent(path)
		assert.ErrorIs(t, err, ErrBigTIFF)
	})

	t.Run("missing georeferencing tags", func(t *testing.T) {
		fx := tiffFixture{
			order:  binary.LittleEndian,
			width:  16,
			height: 16,
		}
		_, err := ReadGeoTIFFExtent(writeTIFF(t, fx))
		assert.ErrorIs(t, err, ErrNoGeoreference)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadGeoTIFFExtent(filepath.Join(t.TempDir(), "absent.tif"))
		assert.Error(t, err)
	})
}

func TestRasterExtent(t *testing.T) {
	t.Run("geotiff tags win", func(t *testing.T) {
		path := writeTIFF(t, tiffFixture{
			order: binary.LittleEndian, width: 10, height: 10,
			pixelScale: []float64{1, 1, 0},
			tiepoint:   []float64{0, 0, 0, 500, 600, 0},
		})
		ext, err := RasterExtent(path)
		require.NoError(t, err)
		assert.InDelta(t, 500, ext.Bound.Min[0], 1e-9)
	})

	t.Run("world file fallback for plain tiff", func(t *testing.T) {
		path := writeTIFF(t, tiffFixture{
			order: binary.LittleEndian, width: 100, height: 50,
		})
		wf := WorldFilePath(path)
		require.NoError(t, os.WriteFile(wf, []byte("1\n0\n0\n-1\n1000.5\n2000.5\n"), 0o644))

		ext, err := RasterExtent(path)
		require.NoError(t, err)
		assert.InDelta(t, 1000, ext.Bound.Min[0], 1e-9)
		assert.InDelta(t, 2001, ext.Bound.Max[1], 1e-9)
		assert.InDelta(t, 1100, ext.Bound.Max[0], 1e-9)
		assert.InDelta(t, 1951, ext.Bound.Min[1], 1e-9)
	})

	t.Run("plain tiff without world file", func(t *testing.T) {
		path := writeTIFF(t, tiffFixture{
			order: binary.LittleEndian, width: 10, height: 10,
		})
		_, err := RasterExtent(path)
		assert.ErrorIs(t, err, ErrNoGeoreference)
	})
}

func TestReadTIFFSize(t *testing.T) {
	t.Run("with georeferencing", func(t *testing.T) {
		path := writeTIFF(t, tiffFixture{
			order: binary.LittleEndian, width: 640, height: 480,
			pixelScale: []float64{1, 1, 0},
			tiepoint:   []float64{0, 0, 0, 0, 0, 0},
		})
		w, h, err := ReadTIFFSize(path)
		require.NoError(t, err)
		assert.Equal(t, 640, w)
		assert.Equal(t, 480, h)
	})

	t.Run("without georeferencing", func(t *testing.T) {
		path := writeTIFF(t, tiffFixture{
			order: binary.BigEndian, width: 32, height: 64,
		})
		w, h, err := ReadTIFFSize(path)
		require.NoError(t, err)
		assert.Equal(t, 32, w)
		assert.Equal(t, 64, h)
	})
}
