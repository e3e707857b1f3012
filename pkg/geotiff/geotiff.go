// Package geotiff decodes tiled single-band float32 GeoTIFF rasters one
// chunk at a time.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

// GeoTIFF decoding errors.
var (
	ErrNotTIFF     = errors.New("not a TIFF file")
	ErrUnsupported = errors.New("unsupported TIFF layout")
	ErrNotTiled    = errors.New("TIFF is not tiled")
	ErrBadChunk    = errors.New("chunk index out of range")
)

// TIFF tags used by the decoder.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagSamplesPerPixel = 277
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagModelTiepoint   = 33922
)

// Compression schemes.
const (
	compressionNone         = 1
	compressionLZW          = 5
	compressionDeflate      = 8
	compressionDeflateAdobe = 32946
)

// Predictors.
const (
	predictorNone  = 1
	predictorFloat = 3
)

// Field types.
const (
	typeByte   = 1
	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12
)

const sampleFormatFloat = 3

// File is an open GeoTIFF raster.
type File struct {
	r      io.ReaderAt
	closer io.Closer
	order  binary.ByteOrder

	width, height int
	tileW, tileH  int
	tilesAcross   int
	tilesDown     int
	compression   uint64
	predictor     uint64
	offsets       []uint64
	byteCounts    []uint64
	tiePoint      []float64
}

// Open opens and parses the GeoTIFF at path. Close releases the file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening GeoTIFF: %w", err)
	}
	t, err := Decode(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.closer = f
	return t, nil
}

// Decode parses the TIFF header and first image directory from r. Chunk data
// is read lazily, so r must stay valid while the File is in use.
func Decode(r io.ReaderAt) (*File, error) {
	var header [8]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrNotTIFF, err)
	}

	t := &File{r: r, compression: compressionNone, predictor: predictorNone}
	switch string(header[0:2]) {
	case "II":
		t.order = binary.LittleEndian
	case "MM":
		t.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad byte order mark %q", ErrNotTIFF, header[0:2])
	}

	switch magic := t.order.Uint16(header[2:4]); magic {
	case 42:
	case 43:
		return nil, fmt.Errorf("%w: BigTIFF", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: bad magic %d", ErrNotTIFF, magic)
	}

	if err := t.readIFD(int64(t.order.Uint32(header[4:8]))); err != nil {
		return nil, err
	}
	return t, nil
}

// Close releases the underlying file if the File was created by Open.
func (t *File) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

func (t *File) readIFD(offset int64) error {
	var countBuf [2]byte
	if _, err := t.r.ReadAt(countBuf[:], offset); err != nil {
		return fmt.Errorf("%w: reading IFD entry count: %v", ErrNotTIFF, err)
	}
	count := int(t.order.Uint16(countBuf[:]))

	entries := make([]byte, count*12)
	if _, err := t.r.ReadAt(entries, offset+2); err != nil {
		return fmt.Errorf("%w: reading IFD entries: %v", ErrNotTIFF, err)
	}

	var (
		bitsPerSample   uint64 = 1
		samplesPerPixel uint64 = 1
		sampleFormat    uint64 = 1
		planarConfig    uint64 = 1
	)

	for i := 0; i < count; i++ {
		e := entries[i*12 : i*12+12]
		tag := t.order.Uint16(e[0:2])

		switch tag {
		case tagImageWidth, tagImageLength, tagBitsPerSample, tagCompression,
			tagSamplesPerPixel, tagPlanarConfig, tagPredictor, tagTileWidth,
			tagTileLength, tagSampleFormat:
			vals, err := t.readInts(e)
			if err != nil {
				return fmt.Errorf("reading tag %d: %w", tag, err)
			}
			if len(vals) == 0 {
				return fmt.Errorf("%w: tag %d has no values", ErrNotTIFF, tag)
			}
			v := vals[0]
			switch tag {
			case tagImageWidth:
				t.width = int(v)
			case tagImageLength:
				t.height = int(v)
			case tagBitsPerSample:
				bitsPerSample = v
			case tagCompression:
				t.compression = v
			case tagSamplesPerPixel:
				samplesPerPixel = v
			case tagPlanarConfig:
				planarConfig = v
			case tagPredictor:
				t.predictor = v
			case tagTileWidth:
				t.tileW = int(v)
			case tagTileLength:
				t.tileH = int(v)
			case tagSampleFormat:
				sampleFormat = v
			}
		case tagTileOffsets:
			vals, err := t.readInts(e)
			if err != nil {
				return fmt.Errorf("reading tile offsets: %w", err)
			}
			t.offsets = vals
		case tagTileByteCounts:
			vals, err := t.readInts(e)
			if err != nil {
				return fmt.Errorf("reading tile byte counts: %w", err)
			}
			t.byteCounts = vals
		case tagModelTiepoint:
			vals, err := t.readDoubles(e)
			if err != nil {
				return fmt.Errorf("reading tie point: %w", err)
			}
			t.tiePoint = vals
		}
	}

	if t.width <= 0 || t.height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrNotTIFF, t.width, t.height)
	}
	if t.tileW <= 0 || t.tileH <= 0 {
		return ErrNotTiled
	}
	if bitsPerSample != 32 || sampleFormat != sampleFormatFloat || samplesPerPixel != 1 || planarConfig != 1 {
		return fmt.Errorf("%w: need one 32-bit float sample per pixel, have %d x %d-bit (format %d)",
			ErrUnsupported, samplesPerPixel, bitsPerSample, sampleFormat)
	}
	switch t.compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateAdobe:
	default:
		return fmt.Errorf("%w: compression %d", ErrUnsupported, t.compression)
	}
	if t.predictor != predictorNone && t.predictor != predictorFloat {
		return fmt.Errorf("%w: predictor %d", ErrUnsupported, t.predictor)
	}

	t.tilesAcross = (t.width + t.tileW - 1) / t.tileW
	t.tilesDown = (t.height + t.tileH - 1) / t.tileH
	n := t.tilesAcross * t.tilesDown
	if len(t.offsets) != n || len(t.byteCounts) != n {
		return fmt.Errorf("%w: expected %d tiles, have %d offsets and %d byte counts",
			ErrNotTIFF, n, len(t.offsets), len(t.byteCounts))
	}
	return nil
}

func typeSize(typ uint16) int {
	switch typ {
	case typeByte, typeASCII:
		return 1
	case typeShort:
		return 2
	case typeLong:
		return 4
	case typeDouble:
		return 8
	default:
		return 0
	}
}

// entryData returns the raw value bytes of an IFD entry, following the
// offset when the payload does not fit inline.
func (t *File) entryData(e []byte) (uint16, []byte, error) {
	typ := t.order.Uint16(e[2:4])
	count := t.order.Uint32(e[4:8])
	size := typeSize(typ)
	if size == 0 {
		return typ, nil, fmt.Errorf("%w: field type %d", ErrUnsupported, typ)
	}

	n := int(count) * size
	if n <= 4 {
		return typ, e[8 : 8+n], nil
	}

	data := make([]byte, n)
	if _, err := t.r.ReadAt(data, int64(t.order.Uint32(e[8:12]))); err != nil {
		return typ, nil, fmt.Errorf("%w: reading field data: %v", ErrNotTIFF, err)
	}
	return typ, data, nil
}

func (t *File) readInts(e []byte) ([]uint64, error) {
	typ, data, err := t.entryData(e)
	if err != nil {
		return nil, err
	}
	var vals []uint64
	switch typ {
	case typeByte:
		for _, b := range data {
			vals = append(vals, uint64(b))
		}
	case typeShort:
		for i := 0; i+2 <= len(data); i += 2 {
			vals = append(vals, uint64(t.order.Uint16(data[i:])))
		}
	case typeLong:
		for i := 0; i+4 <= len(data); i += 4 {
			vals = append(vals, uint64(t.order.Uint32(data[i:])))
		}
	default:
		return nil, fmt.Errorf("%w: integer field of type %d", ErrUnsupported, typ)
	}
	return vals, nil
}

func (t *File) readDoubles(e []byte) ([]float64, error) {
	typ, data, err := t.entryData(e)
	if err != nil {
		return nil, err
	}
	if typ != typeDouble {
		return nil, fmt.Errorf("%w: double field of type %d", ErrUnsupported, typ)
	}
	vals := make([]float64, len(data)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(t.order.Uint64(data[i*8:]))
	}
	return vals, nil
}

// Dimensions returns the raster size in pixels.
func (t *File) Dimensions() (width, height int) {
	return t.width, t.height
}

// ChunkDimensions returns the nominal tile size.
func (t *File) ChunkDimensions() (width, height int) {
	return t.tileW, t.tileH
}

// ChunkCount returns the number of tiles in the image.
func (t *File) ChunkCount() int {
	return t.tilesAcross * t.tilesDown
}

// ChunkDataDimensions returns the size of the valid data in tile i. Tiles on
// the right and bottom edges are cropped to the image.
func (t *File) ChunkDataDimensions(i int) (width, height int) {
	if i < 0 || i >= t.ChunkCount() {
		return 0, 0
	}
	col := i % t.tilesAcross
	row := i / t.tilesAcross
	width = min(t.tileW, t.width-col*t.tileW)
	height = min(t.tileH, t.height-row*t.tileH)
	return width, height
}

// TiePoint returns the model-space coordinate of the raster's top-left
// corner (ModelTiepointTag values 3 and 4).
func (t *File) TiePoint() (easting, northing float64, err error) {
	if len(t.tiePoint) < 6 {
		return 0, 0, fmt.Errorf("%w: missing ModelTiepointTag", ErrUnsupported)
	}
	return t.tiePoint[3], t.tiePoint[4], nil
}

// ReadChunk decodes tile i into row-major samples cropped to
// ChunkDataDimensions(i).
func (t *File) ReadChunk(i int) ([]float32, error) {
	if i < 0 || i >= t.ChunkCount() {
		return nil, fmt.Errorf("%w: %d of %d", ErrBadChunk, i, t.ChunkCount())
	}

	raw := make([]byte, t.byteCounts[i])
	if _, err := t.r.ReadAt(raw, int64(t.offsets[i])); err != nil {
		return nil, fmt.Errorf("reading tile %d: %w", i, err)
	}

	full := t.tileW * t.tileH * 4
	data, err := t.decompress(raw, full)
	if err != nil {
		return nil, fmt.Errorf("decompressing tile %d: %w", i, err)
	}
	if len(data) < full {
		return nil, fmt.Errorf("tile %d: decoded %d bytes, expected %d", i, len(data), full)
	}

	w, h := t.ChunkDataDimensions(i)
	out := make([]float32, w*h)
	rowBytes := t.tileW * 4

	if t.predictor == predictorFloat {
		for y := 0; y < h; y++ {
			row := data[y*rowBytes : (y+1)*rowBytes]
			undoFloatPredictor(row, t.tileW)
			for x := 0; x < w; x++ {
				bits := uint32(row[x])<<24 | uint32(row[t.tileW+x])<<16 |
					uint32(row[2*t.tileW+x])<<8 | uint32(row[3*t.tileW+x])
				out[y*w+x] = math.Float32frombits(bits)
			}
		}
		return out, nil
	}

	for y := 0; y < h; y++ {
		row := data[y*rowBytes:]
		for x := 0; x < w; x++ {
			out[y*w+x] = math.Float32frombits(t.order.Uint32(row[x*4:]))
		}
	}
	return out, nil
}

func (t *File) decompress(raw []byte, size int) ([]byte, error) {
	switch t.compression {
	case compressionNone:
		return raw, nil
	case compressionDeflate, compressionDeflateAdobe:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return readFull(zr, size)
	case compressionLZW:
		lr := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		defer lr.Close()
		return readFull(lr, size)
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, t.compression)
	}
}

func readFull(r io.Reader, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// undoFloatPredictor reverses TIFF predictor 3 on one row in place: a
// running byte sum across the whole row, leaving the bytes split into four
// planes, most significant plane first.
func undoFloatPredictor(row []byte, width int) {
	for i := 1; i < width*4; i++ {
		row[i] += row[i-1]
	}
}
