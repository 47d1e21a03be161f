package binary

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writer provides buffered writing utilities for Avro binary encoding.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset discards everything written so far.
func (w *Writer) Reset() {
	w.buf.Reset()
}

// WriteBoolean writes a single-byte boolean.
func (w *Writer) WriteBoolean(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteInt writes a zig-zag varint encoded int32.
func (w *Writer) WriteInt(v int32) {
	w.writeVarint(uint64(uint32((v << 1) ^ (v >> 31))))
}

// WriteLong writes a zig-zag varint encoded int64.
func (w *Writer) WriteLong(v int64) {
	w.writeVarint(uint64((v << 1) ^ (v >> 63)))
}

func (w *Writer) writeVarint(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// WriteFloat writes a little-endian IEEE-754 float32.
func (w *Writer) WriteFloat(v float32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	w.buf.Write(tmp[:])
}

// WriteDouble writes a little-endian IEEE-754 float64.
func (w *Writer) WriteDouble(v float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	w.buf.Write(tmp[:])
}

// WriteBytes writes a long length prefix followed by data.
func (w *Writer) WriteBytes(data []byte) {
	w.WriteLong(int64(len(data)))
	w.buf.Write(data)
}

// WriteString writes a length-prefixed string.
func (w *Writer) WriteString(s string) {
	w.WriteLong(int64(len(s)))
	w.buf.WriteString(s)
}

// WriteFixed writes data without a length prefix.
func (w *Writer) WriteFixed(data []byte) {
	w.buf.Write(data)
}
