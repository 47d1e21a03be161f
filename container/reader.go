package container

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"maps"
	"runtime"

	"go.uber.org/zap"

	"github.com/wippyai/avro-derive/decode"
	averrors "github.com/wippyai/avro-derive/errors"
	"github.com/wippyai/avro-derive/internal/binary"
	"github.com/wippyai/avro-derive/schema"
)

// Magic starts every object container file.
var Magic = []byte{'O', 'b', 'j', 1}

// SyncSize is the length of the sync marker.
const SyncSize = 16

const maxMetaBytes = 16 << 20

// Metadata keys defined by the container format.
const (
	MetaSchema = "avro.schema"
	MetaCodec  = "avro.codec"
)

// Options configures a Reader.
type Options struct {
	// MaxBlockBytes bounds both the compressed and decompressed size of a
	// block.
	MaxBlockBytes int64
	// Workers is the number of goroutines ReadAll decodes blocks with.
	Workers int
	Logger  *zap.Logger
}

// DefaultOptions returns options with a 64 MiB block limit and one worker
// per CPU.
func DefaultOptions() Options {
	return Options{
		MaxBlockBytes: 64 << 20,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.MaxBlockBytes <= 0 {
		o.MaxBlockBytes = d.MaxBlockBytes
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Reader reads the blocks of an object container file in order. It is not
// safe for concurrent use.
type Reader struct {
	br     *bufio.Reader
	opts   Options
	logger *zap.Logger
	schema schema.Schema
	meta   map[string][]byte
	codec  Codec
	sync   [SyncSize]byte
	blocks int
	done   bool

	// zeroWidth is set when datums of the schema encode to no bytes.
	zeroWidth bool
}

// Block is one decompressed block of datums.
type Block struct {
	schema schema.Schema
	// Data holds Count datums back to back.
	Data []byte
	// Index is the block's position in the file, starting at 0.
	Index int
	Count int64
	// Size is the block's size on disk before decompression.
	Size int64
}

// Datums returns a reader over the block's datums.
func (b *Block) Datums() *decode.DatumReader {
	return decode.NewDatumReader(b.Data, b.schema)
}

// NewReader reads the file header from r.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	opts = opts.normalize()
	cr := &Reader{
		br:     bufio.NewReader(r),
		opts:   opts,
		logger: opts.Logger,
	}
	if err := cr.readHeader(); err != nil {
		return nil, err
	}
	cr.logger.Debug("opened container",
		zap.String("codec", cr.codec.Name()),
		zap.Int("metadata", len(cr.meta)))
	return cr, nil
}

func (r *Reader) readHeader() error {
	var magic [4]byte
	if _, err := io.ReadFull(r.br, magic[:]); err != nil {
		return r.streamError("magic", err)
	}
	if !bytes.Equal(magic[:], Magic) {
		return averrors.InvalidData(averrors.PhaseContainer, nil, "not an object container file")
	}

	meta, err := r.readMetadata()
	if err != nil {
		return err
	}
	r.meta = meta

	raw, ok := meta[MetaSchema]
	if !ok {
		return averrors.NotFound(averrors.PhaseContainer, "metadata", MetaSchema)
	}
	if r.schema, err = schema.Parse(raw); err != nil {
		return err
	}
	if r.codec, err = CodecFor(string(meta[MetaCodec])); err != nil {
		return err
	}
	r.zeroWidth = zeroWidth(r.schema, nil)

	if _, err := io.ReadFull(r.br, r.sync[:]); err != nil {
		return r.streamError("sync marker", err)
	}
	return nil
}

func (r *Reader) readMetadata() (map[string][]byte, error) {
	meta := make(map[string][]byte)
	for {
		count, err := binary.ReadLongFrom(r.br)
		if err != nil {
			return nil, r.streamError("metadata", err)
		}
		if count == 0 {
			return meta, nil
		}
		if count < 0 {
			count = -count
			if _, err := binary.ReadLongFrom(r.br); err != nil {
				return nil, r.streamError("metadata", err)
			}
		}
		for range count {
			key, err := r.readBytes()
			if err != nil {
				return nil, r.streamError("metadata", err)
			}
			value, err := r.readBytes()
			if err != nil {
				return nil, r.streamError("metadata", err)
			}
			meta[string(key)] = value
		}
	}
}

func (r *Reader) readBytes() ([]byte, error) {
	n, err := binary.ReadLongFrom(r.br)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > maxMetaBytes {
		return nil, averrors.InvalidData(averrors.PhaseContainer, nil, "invalid length")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.br, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Schema returns the writer schema from the header.
func (r *Reader) Schema() schema.Schema { return r.schema }

// Codec returns the block codec.
func (r *Reader) Codec() Codec { return r.codec }

// Sync returns the file's sync marker.
func (r *Reader) Sync() [SyncSize]byte { return r.sync }

// Metadata returns a copy of the header metadata.
func (r *Reader) Metadata() map[string][]byte { return maps.Clone(r.meta) }

// NextBlock reads and decompresses the next block. It returns io.EOF after
// the last block.
func (r *Reader) NextBlock() (*Block, error) {
	if r.done {
		return nil, io.EOF
	}
	count, err := binary.ReadLongFrom(r.br)
	if errors.Is(err, io.EOF) {
		r.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, r.blockError(err)
	}
	size, err := binary.ReadLongFrom(r.br)
	if err != nil {
		return nil, r.blockError(err)
	}
	if count < 0 || size < 0 {
		return nil, averrors.New(averrors.PhaseContainer, averrors.KindInvalidData).
			Detail("block %d: negative count or size", r.blocks).
			Build()
	}
	if size > r.opts.MaxBlockBytes {
		return nil, tooLarge(size, r.opts.MaxBlockBytes)
	}

	raw := make([]byte, size)
	if _, err := io.ReadFull(r.br, raw); err != nil {
		return nil, r.blockError(err)
	}
	var marker [SyncSize]byte
	if _, err := io.ReadFull(r.br, marker[:]); err != nil {
		return nil, r.blockError(err)
	}
	if marker != r.sync {
		return nil, averrors.New(averrors.PhaseContainer, averrors.KindInvalidData).
			Detail("block %d: sync marker mismatch", r.blocks).
			Build()
	}

	data, err := r.codec.Decompress(raw, r.opts.MaxBlockBytes)
	if err != nil {
		return nil, err
	}
	if err := r.checkCount(count, data); err != nil {
		return nil, err
	}

	b := &Block{
		schema: r.schema,
		Data:   data,
		Index:  r.blocks,
		Count:  count,
		Size:   size,
	}
	r.blocks++
	r.logger.Debug("read block",
		zap.Int("index", b.Index),
		zap.Int64("count", count),
		zap.Int64("size", size),
		zap.Int("decompressed", len(data)))
	return b, nil
}

// Close releases codec resources. It does not close the underlying reader.
func (r *Reader) Close() error {
	if c, ok := r.codec.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Reader) streamError(section string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	var ae *averrors.Error
	if errors.As(err, &ae) {
		return err
	}
	return averrors.Wrap(averrors.PhaseContainer, averrors.KindInvalidData, err, section)
}

func (r *Reader) blockError(err error) error {
	return r.streamError("block", err)
}

// checkCount rejects block counts the data cannot hold. Every datum of a
// schema that is not zero-width takes at least one byte; zero-width counts
// are bounded by MaxBlockBytes.
func (r *Reader) checkCount(count int64, data []byte) error {
	limit := int64(len(data))
	if r.zeroWidth {
		limit = r.opts.MaxBlockBytes
	}
	if count <= limit {
		return nil
	}
	return averrors.New(averrors.PhaseContainer, averrors.KindInvalidData).
		Value(count).
		Detail("block %d: %d datums cannot fit in %d bytes", r.blocks, count, len(data)).
		Build()
}

// zeroWidth reports whether every datum of s encodes to zero bytes: null,
// empty fixed, and records made only of those.
func zeroWidth(s schema.Schema, seen map[*schema.Record]bool) bool {
	switch s := s.(type) {
	case *schema.Primitive:
		return s.Kind() == schema.KindNull
	case *schema.Fixed:
		return s.Size == 0
	case *schema.Record:
		if seen[s] {
			return false
		}
		if seen == nil {
			seen = make(map[*schema.Record]bool)
		}
		seen[s] = true
		for _, f := range s.Fields {
			if !zeroWidth(f.Type, seen) {
				return false
			}
		}
		return true
	}
	return false
}
