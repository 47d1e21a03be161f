package decode

import (
	"bytes"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/wippyai/avro-derive/errors"
	"github.com/wippyai/avro-derive/internal/binary"
	"github.com/wippyai/avro-derive/schema"
)

// Decode decodes a single datum written with schema s. All of data must be
// consumed.
func Decode[T any](data []byte, s schema.Schema, d Decoder[T]) (T, error) {
	r := binary.NewReader(data)
	v, err := decodeWire(r, s, d, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	if r.Remaining() != 0 {
		var zero T
		return zero, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("%d trailing bytes after datum", r.Remaining()).
			Build()
	}
	return v, nil
}

// DatumReader reads a sequence of concatenated datums of one schema.
type DatumReader struct {
	r *binary.Reader
	s schema.Schema
}

// NewDatumReader creates a DatumReader over data. Decoded byte slices never
// alias data.
func NewDatumReader(data []byte, s schema.Schema) *DatumReader {
	return &DatumReader{r: binary.NewReader(data), s: s}
}

// Schema returns the writer schema.
func (dr *DatumReader) Schema() schema.Schema { return dr.s }

// More reports whether unread bytes remain.
func (dr *DatumReader) More() bool { return dr.r.Remaining() > 0 }

// Remaining returns the number of unread bytes.
func (dr *DatumReader) Remaining() int { return dr.r.Remaining() }

// ReadNext decodes the next datum from dr with d.
func ReadNext[T any](dr *DatumReader, d Decoder[T]) (T, error) {
	return decodeWire(dr.r, dr.s, d, nil)
}

// SkipNext discards the next datum.
func (dr *DatumReader) SkipNext() error {
	return skipWire(dr.r, dr.s, nil)
}

func decodeWire[T any](r *binary.Reader, s schema.Schema, d Decoder[T], path []string) (T, error) {
	var zero T

	if _, ok := any(d).(Trivial); ok {
		return zero, skipWire(r, s, path)
	}

	switch t := s.(type) {
	case *schema.Primitive:
		return decodePrimitive(r, t, d, path)

	case *schema.Fixed:
		b, err := r.ReadFixed(t.Size)
		if err != nil {
			return zero, wireError(path, err)
		}
		switch t.Logical.Name {
		case schema.LogicalDecimal:
			return d.Decimal(decimalFromBytes(b, t.Logical.Precision, t.Logical.Scale))
		case schema.LogicalUUID:
			u, err := uuid.FromBytes(b)
			if err != nil {
				return zero, errors.New(errors.PhaseDecode, errors.KindInvalidData).Path(path...).Cause(err).Build()
			}
			return d.UUID(u)
		}
		return d.Fixed(bytes.Clone(b))

	case *schema.Enum:
		idx, err := r.ReadInt()
		if err != nil {
			return zero, wireError(path, err)
		}
		if idx < 0 || int(idx) >= len(t.Symbols) {
			return zero, errors.InvalidDiscriminant(errors.PhaseDecode, path, int64(idx), len(t.Symbols)-1)
		}
		return d.EnumVariant(int(idx), t.Symbols[idx])

	case *schema.Union:
		idx, err := r.ReadLong()
		if err != nil {
			return zero, wireError(path, err)
		}
		if idx < 0 || idx >= int64(len(t.Branches)) {
			return zero, errors.InvalidDiscriminant(errors.PhaseDecode, path, idx, len(t.Branches)-1)
		}
		f := &Field{r: r, s: t.Branches[idx], index: int(idx), path: path}
		v, err := d.UnionBranch(UnionBranch{
			Value:       f,
			Variants:    t.Branches,
			Index:       int(idx),
			NullVariant: t.NullIndex(),
		})
		if err != nil {
			return zero, err
		}
		if err := skipPending(f); err != nil {
			return zero, err
		}
		return v, nil

	case *schema.Array:
		a := &wireArray{wireBlocks: wireBlocks{r: r, path: path}, items: t.Items}
		v, err := d.Array(a)
		if err != nil {
			return zero, err
		}
		if _, err := (Trivial{}).Array(a); err != nil {
			return zero, err
		}
		return v, nil

	case *schema.Map:
		a := &wireMap{wireBlocks: wireBlocks{r: r, path: path}, values: t.Values}
		v, err := d.Map(a)
		if err != nil {
			return zero, err
		}
		if _, err := (Trivial{}).Map(a); err != nil {
			return zero, err
		}
		return v, nil

	case *schema.Record:
		a := &wireRecord{r: r, rec: t, path: path}
		v, err := d.Record(a)
		if err != nil {
			return zero, err
		}
		if _, err := (Trivial{}).Record(a); err != nil {
			return zero, err
		}
		return v, nil
	}

	return zero, errors.Unsupported(errors.PhaseDecode, "schema "+s.String())
}

func decodePrimitive[T any](r *binary.Reader, p *schema.Primitive, d Decoder[T], path []string) (T, error) {
	var zero T

	switch p.K {
	case schema.KindNull:
		return d.Scalar(Null{})

	case schema.KindBoolean:
		v, err := r.ReadBoolean()
		if err != nil {
			return zero, wireError(path, err)
		}
		return d.Scalar(Boolean(v))

	case schema.KindInt:
		v, err := r.ReadInt()
		if err != nil {
			return zero, wireError(path, err)
		}
		switch p.Logical.Name {
		case schema.LogicalDate:
			return d.Scalar(Date(v))
		case schema.LogicalTimeMillis:
			return d.Scalar(TimeMillis(v))
		}
		return d.Scalar(Int(v))

	case schema.KindLong:
		v, err := r.ReadLong()
		if err != nil {
			return zero, wireError(path, err)
		}
		switch p.Logical.Name {
		case schema.LogicalTimeMicros:
			return d.Scalar(TimeMicros(v))
		case schema.LogicalTimestampMillis:
			return d.Scalar(Timestamp{Value: v, Unit: Millis})
		case schema.LogicalTimestampMicros:
			return d.Scalar(Timestamp{Value: v, Unit: Micros})
		case schema.LogicalLocalTimestampMillis:
			return d.Scalar(Timestamp{Value: v, Unit: Millis, Local: true})
		case schema.LogicalLocalTimestampMicros:
			return d.Scalar(Timestamp{Value: v, Unit: Micros, Local: true})
		}
		return d.Scalar(Long(v))

	case schema.KindFloat:
		v, err := r.ReadFloat()
		if err != nil {
			return zero, wireError(path, err)
		}
		return d.Scalar(Float(v))

	case schema.KindDouble:
		v, err := r.ReadDouble()
		if err != nil {
			return zero, wireError(path, err)
		}
		return d.Scalar(Double(v))

	case schema.KindBytes:
		b, err := r.ReadBytes()
		if err != nil {
			return zero, wireError(path, err)
		}
		if p.Logical.Name == schema.LogicalDecimal {
			return d.Decimal(decimalFromBytes(b, p.Logical.Precision, p.Logical.Scale))
		}
		return d.Bytes(bytes.Clone(b))

	case schema.KindString:
		s, err := r.ReadString()
		if err != nil {
			return zero, wireError(path, err)
		}
		if p.Logical.Name == schema.LogicalUUID {
			u, err := uuid.Parse(s)
			if err != nil {
				return zero, errors.New(errors.PhaseDecode, errors.KindInvalidData).
					Path(path...).
					AvroType("uuid").
					Value(s).
					Cause(err).
					Build()
			}
			return d.UUID(u)
		}
		return d.String(s)
	}

	return zero, errors.Unsupported(errors.PhaseDecode, "primitive "+p.K.String())
}

// skipWire advances r past one datum of schema s without materializing it.
func skipWire(r *binary.Reader, s schema.Schema, path []string) error {
	var err error
	switch t := s.(type) {
	case *schema.Primitive:
		switch t.K {
		case schema.KindNull:
		case schema.KindBoolean:
			_, err = r.ReadBoolean()
		case schema.KindInt:
			_, err = r.ReadInt()
		case schema.KindLong:
			_, err = r.ReadLong()
		case schema.KindFloat:
			err = r.Skip(4)
		case schema.KindDouble:
			err = r.Skip(8)
		case schema.KindBytes, schema.KindString:
			var n int64
			if n, err = r.ReadLong(); err == nil {
				err = r.Skip(n)
			}
		}

	case *schema.Fixed:
		err = r.Skip(int64(t.Size))

	case *schema.Enum:
		_, err = r.ReadInt()

	case *schema.Union:
		var idx int64
		if idx, err = r.ReadLong(); err != nil {
			break
		}
		if idx < 0 || idx >= int64(len(t.Branches)) {
			return errors.InvalidDiscriminant(errors.PhaseDecode, path, idx, len(t.Branches)-1)
		}
		return skipWire(r, t.Branches[idx], path)

	case *schema.Array:
		return skipBlocks(r, path, func() error { return skipWire(r, t.Items, path) })

	case *schema.Map:
		return skipBlocks(r, path, func() error {
			if n, err := r.ReadLong(); err != nil {
				return wireError(path, err)
			} else if err := r.Skip(n); err != nil {
				return wireError(path, err)
			}
			return skipWire(r, t.Values, path)
		})

	case *schema.Record:
		for _, f := range t.Fields {
			if err := skipWire(r, f.Type, appendPath(path, f.Name)); err != nil {
				return err
			}
		}
	}

	if err != nil {
		return wireError(path, err)
	}
	return nil
}

// skipBlocks skips blocked array or map data, using block byte sizes when
// the writer provided them.
func skipBlocks(r *binary.Reader, path []string, item func() error) error {
	for {
		count, err := r.ReadLong()
		if err != nil {
			return wireError(path, err)
		}
		if count == 0 {
			return nil
		}
		if count < 0 {
			size, err := r.ReadLong()
			if err != nil {
				return wireError(path, err)
			}
			if err := r.Skip(size); err != nil {
				return wireError(path, err)
			}
			continue
		}
		for ; count > 0; count-- {
			if err := item(); err != nil {
				return err
			}
		}
	}
}

func wireError(path []string, err error) error {
	var ue *binary.UTF8Error
	if stderrors.As(err, &ue) {
		e := errors.InvalidUTF8(errors.PhaseDecode, path, ue.Data)
		e.Cause = err
		return e
	}
	kind := errors.KindInvalidData
	if stderrors.Is(err, binary.ErrOverflow) {
		kind = errors.KindOverflow
	}
	return errors.New(errors.PhaseDecode, kind).Path(path...).Cause(err).Build()
}
