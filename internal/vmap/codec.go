package vmap

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// maxNameLength caps model name lengths read from files.
const maxNameLength = 500

// decoder reads little-endian values from a byte slice. The first failure
// sticks; later reads return zero values.
type decoder struct {
	data []byte
	off  int
	err  error
}

func newDecoder(data []byte) *decoder {
	return &decoder{data: data}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.data)-d.off < n {
		d.err = fmt.Errorf("need %d bytes at offset %d, have %d: %w", n, d.off, len(d.data)-d.off, ErrTruncated)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) f32() float32 {
	return math.Float32frombits(d.u32())
}

func (d *decoder) vec3() mgl32.Vec3 {
	return mgl32.Vec3{d.f32(), d.f32(), d.f32()}
}

func (d *decoder) str(n int) string {
	return string(d.take(n))
}

// magic consumes the file magic and fails with ErrWrongMagic on mismatch.
func (d *decoder) magic() {
	d.chunk(Magic, ErrWrongMagic)
}

// chunk consumes a fixed identifier and fails with sentinel on mismatch.
func (d *decoder) chunk(id string, sentinel error) {
	b := d.take(len(id))
	if d.err == nil && string(b) != id {
		d.err = fmt.Errorf("expected %q, got %q: %w", id, b, sentinel)
	}
}

// count reads a uint32 element count and checks that the remaining data
// can hold count elements of elemSize bytes.
func (d *decoder) count(elemSize int) int {
	n := d.u32()
	if d.err == nil && uint64(n)*uint64(elemSize) > uint64(len(d.data)-d.off) {
		d.err = fmt.Errorf("%d elements of %d bytes at offset %d: %w", n, elemSize, d.off, ErrTruncated)
		return 0
	}
	return int(n)
}

// remaining reports how many unread bytes are left.
func (d *decoder) remaining() int { return len(d.data) - d.off }

// encoder appends little-endian values to a buffer.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) f32(v float32) {
	e.u32(math.Float32bits(v))
}

func (e *encoder) vec3(v mgl32.Vec3) {
	e.f32(v[0])
	e.f32(v[1])
	e.f32(v[2])
}

func (e *encoder) raw(s string) { e.buf = append(e.buf, s...) }
