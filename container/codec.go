package container

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/wippyai/avro-derive/errors"
)

// Codec names from the avro.codec metadata entry.
const (
	CodecNull      = "null"
	CodecDeflate   = "deflate"
	CodecSnappy    = "snappy"
	CodecZstandard = "zstandard"
)

// Codec decompresses block payloads. Implementations are safe for
// concurrent use.
type Codec interface {
	Name() string
	// Decompress returns the decompressed form of src, failing if it
	// would exceed limit bytes.
	Decompress(src []byte, limit int64) ([]byte, error)
}

// CodecFor returns the codec registered under name. An empty name is the
// null codec.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", CodecNull:
		return nullCodec{}, nil
	case CodecDeflate:
		return deflateCodec{}, nil
	case CodecSnappy:
		return snappyCodec{}, nil
	case CodecZstandard:
		return &zstdCodec{}, nil
	}
	return nil, errors.Unsupported(errors.PhaseContainer, "codec "+name)
}

type nullCodec struct{}

func (nullCodec) Name() string { return CodecNull }

func (nullCodec) Decompress(src []byte, limit int64) ([]byte, error) {
	if int64(len(src)) > limit {
		return nil, tooLarge(int64(len(src)), limit)
	}
	return src, nil
}

type deflateCodec struct{}

func (deflateCodec) Name() string { return CodecDeflate }

func (deflateCodec) Decompress(src []byte, limit int64) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(src))
	defer fr.Close()

	buf := getBuf()
	defer putBuf(buf)

	n, err := buf.ReadFrom(io.LimitReader(fr, limit+1))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "deflate")
	}
	if n > limit {
		return nil, tooLarge(n, limit)
	}
	return bytes.Clone(buf.Bytes()), nil
}

type snappyCodec struct{}

func (snappyCodec) Name() string { return CodecSnappy }

// Decompress expects the snappy block followed by the big-endian CRC-32 of
// the uncompressed data.
func (snappyCodec) Decompress(src []byte, limit int64) ([]byte, error) {
	if len(src) < 4 {
		return nil, errors.InvalidData(errors.PhaseContainer, nil, "snappy block shorter than its checksum")
	}
	body, sum := src[:len(src)-4], binary.BigEndian.Uint32(src[len(src)-4:])

	n, err := snappy.DecodedLen(body)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "snappy")
	}
	if int64(n) > limit {
		return nil, tooLarge(int64(n), limit)
	}
	out, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "snappy")
	}
	if got := crc32.ChecksumIEEE(out); got != sum {
		return nil, errors.New(errors.PhaseContainer, errors.KindInvalidData).
			Detail("snappy checksum mismatch: got %08x, want %08x", got, sum).
			Build()
	}
	return out, nil
}

type zstdCodec struct {
	once sync.Once
	dec  *zstd.Decoder
	err  error
}

func (*zstdCodec) Name() string { return CodecZstandard }

func (c *zstdCodec) Decompress(src []byte, limit int64) ([]byte, error) {
	c.once.Do(func() {
		c.dec, c.err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	if c.err != nil {
		return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, c.err, "zstandard")
	}

	buf := getBuf()
	defer putBuf(buf)

	out, err := c.dec.DecodeAll(src, buf.Bytes()[:0])
	if err != nil {
		return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidData, err, "zstandard")
	}
	if int64(len(out)) > limit {
		return nil, tooLarge(int64(len(out)), limit)
	}
	return bytes.Clone(out), nil
}

func tooLarge(n, limit int64) error {
	return errors.New(errors.PhaseContainer, errors.KindOutOfBounds).
		Value(n).
		Detail("block of %d bytes exceeds limit of %d", n, limit).
		Build()
}

func (c *zstdCodec) Close() error {
	if c.dec != nil {
		c.dec.Close()
	}
	return nil
}
