package binary

import (
	"errors"
	"io"
)

// ReadLongFrom reads a zig-zag varint encoded int64 from a stream. It
// returns io.EOF only if the stream ends before the first byte.
func ReadLongFrom(r io.ByteReader) (int64, error) {
	var result uint64
	var shift uint
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if shift == 63 && b > 1 {
			return 0, ErrOverflow
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return int64(result>>1) ^ -int64(result&1), nil
		}
		shift += 7
	}
}
