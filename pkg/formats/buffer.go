// Package formats provides the binary encodings shared by every geobake output:
// terrain tile meshes and the map feature file.
package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Decoding errors.
var (
	ErrTruncated      = errors.New("truncated data")
	ErrUnknownFeature = errors.New("unknown feature tag")
)

// Buffer is an append-only little-endian byte sink.
type Buffer struct {
	bytes []byte
}

// NewBuffer returns an empty buffer with the given capacity hint.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{bytes: make([]byte, 0, capacity)}
}

// WriteUint8 appends a single byte.
func (b *Buffer) WriteUint8(v uint8) {
	b.bytes = append(b.bytes, v)
}

// WriteInt8 appends a signed byte.
func (b *Buffer) WriteInt8(v int8) {
	b.bytes = append(b.bytes, byte(v))
}

// WriteShort appends a little-endian uint16.
func (b *Buffer) WriteShort(v uint16) {
	b.bytes = binary.LittleEndian.AppendUint16(b.bytes, v)
}

// WriteFloat appends a little-endian IEEE 754 float32.
func (b *Buffer) WriteFloat(v float32) {
	b.bytes = binary.LittleEndian.AppendUint32(b.bytes, math.Float32bits(v))
}

// Bytes returns the encoded bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.bytes
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return len(b.bytes)
}

// Reader decodes values written by Buffer.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) take(n int, what string) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: reading %s at offset %d", ErrTruncated, what, r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1, "byte")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInt8 reads a signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadByte()
	return int8(v), err
}

// ReadShort reads a little-endian uint16.
func (r *Reader) ReadShort() (uint16, error) {
	b, err := r.take(2, "short")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadFloat reads a little-endian float32.
func (r *Reader) ReadFloat() (float32, error) {
	b, err := r.take(4, "float")
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// readFloats fills dst in order, stopping at the first error.
func (r *Reader) readFloats(dst ...*float32) error {
	for _, p := range dst {
		v, err := r.ReadFloat()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}
