package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

var (
	// ErrOverflow is returned when a varint exceeds the width of its type.
	ErrOverflow = errors.New("varint: overflow")

	// ErrNegativeLength is returned when a length prefix is negative.
	ErrNegativeLength = errors.New("negative length")

	// ErrInvalidUTF8 is returned when string data is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in string")
)

// Reader reads Avro binary primitives from an in-memory buffer with
// position tracking.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new Reader over data. The reader does not copy data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadFixed returns the next n bytes. The result aliases the reader's buffer.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if n < 0 {
		return nil, r.wrapError(ErrNegativeLength)
	}
	if n > r.Remaining() {
		return nil, r.wrapError(io.ErrUnexpectedEOF)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) error {
	if n < 0 {
		return r.wrapError(ErrNegativeLength)
	}
	if n > int64(r.Remaining()) {
		return r.wrapError(io.ErrUnexpectedEOF)
	}
	r.pos += int(n)
	return nil
}

// ReadBoolean reads a single-byte boolean. Any value other than 0 or 1 is rejected.
func (r *Reader) ReadBoolean() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, r.eof(err)
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, r.wrapError(fmt.Errorf("invalid boolean byte 0x%02x", b))
	}
}

// ReadInt reads a zig-zag varint encoded int32.
func (r *Reader) ReadInt() (int32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, r.eof(err)
		}
		// The fifth byte holds the top four bits.
		if shift == 28 && b > 0x0f {
			return 0, r.wrapError(ErrOverflow)
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return int32(result>>1) ^ -int32(result&1), nil
		}
		shift += 7
	}
}

// ReadLong reads a zig-zag varint encoded int64.
func (r *Reader) ReadLong() (int64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, r.eof(err)
		}
		// The tenth byte holds the top bit.
		if shift == 63 && b > 1 {
			return 0, r.wrapError(ErrOverflow)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return int64(result>>1) ^ -int64(result&1), nil
		}
		shift += 7
	}
}

// ReadFloat reads a little-endian IEEE-754 float32.
func (r *Reader) ReadFloat() (float32, error) {
	buf, err := r.ReadFixed(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

// ReadDouble reads a little-endian IEEE-754 float64.
func (r *Reader) ReadDouble() (float64, error) {
	buf, err := r.ReadFixed(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf)), nil
}

// ReadBytes reads a long length prefix followed by that many bytes.
// The result aliases the reader's buffer.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadLong()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, r.wrapError(ErrNegativeLength)
	}
	if n > int64(r.Remaining()) {
		return nil, r.wrapError(io.ErrUnexpectedEOF)
	}
	return r.ReadFixed(int(n))
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	data, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", r.wrapError(&UTF8Error{Data: bytes.Clone(data)})
	}
	return string(data), nil
}

func (r *Reader) eof(err error) error {
	if errors.Is(err, io.EOF) {
		return r.wrapError(io.ErrUnexpectedEOF)
	}
	return err
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// UTF8Error holds string data that is not valid UTF-8. It matches
// ErrInvalidUTF8.
type UTF8Error struct {
	Data []byte
}

func (e *UTF8Error) Error() string        { return ErrInvalidUTF8.Error() }
func (e *UTF8Error) Is(target error) bool { return target == ErrInvalidUTF8 }

// ParseError represents an error during binary parsing with position information.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("avro: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("avro: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError creates a ParseError with the current position.
func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{
		Position: r.pos,
		Section:  section,
		Err:      err,
	}
}
