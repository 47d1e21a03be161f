package decode

import (
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/wippyai/avro-derive/errors"
)

// ValueDecoder materializes any datum as a Value.
type ValueDecoder struct{}

// Any is the decoder used for interface-typed targets.
type Any = ValueDecoder

func (ValueDecoder) Record(a RecordAccess) (Value, error) {
	rec := Record{Name: a.Name()}
	for {
		f, ok, err := a.NextField()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rec, nil
		}
		v, err := DecodeField[Value](f, ValueDecoder{})
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, NamedValue{Name: f.Name(), Value: v})
	}
}

func (ValueDecoder) UnionBranch(b UnionBranch) (Value, error) {
	v, err := DecodeField[Value](b.Value, ValueDecoder{})
	if err != nil {
		return nil, err
	}
	return Union{Index: b.Index, Value: v}, nil
}

func (ValueDecoder) Array(a ArrayAccess) (Value, error) {
	out := Array{}
	for {
		f, ok, err := a.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		v, err := DecodeField[Value](f, ValueDecoder{})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (ValueDecoder) Map(a MapAccess) (Value, error) {
	out := Map{}
	for {
		k, f, ok, err := a.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		v, err := DecodeField[Value](f, ValueDecoder{})
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
}

func (ValueDecoder) EnumVariant(i int, s string) (Value, error) {
	return Enum{Index: i, Symbol: s}, nil
}

func (ValueDecoder) Scalar(s Scalar) (Value, error)   { return s, nil }
func (ValueDecoder) Decimal(d Decimal) (Value, error) { return d, nil }
func (ValueDecoder) Bytes(b []byte) (Value, error)    { return Bytes(b), nil }
func (ValueDecoder) String(s string) (Value, error)   { return String(s), nil }
func (ValueDecoder) UUID(u uuid.UUID) (Value, error)  { return UUID(u), nil }
func (ValueDecoder) Fixed(b []byte) (Value, error)    { return Fixed(b), nil }

func mismatch[T any](avroType string) (T, error) {
	var zero T
	return zero, errors.TypeMismatch(errors.PhaseDecode, nil, typeName[T](), avroType)
}

// Bool decodes boolean datums.
type Bool struct{ Unexpected[bool] }

func (d Bool) UnionBranch(b UnionBranch) (bool, error) { return DecodeField[bool](b.Value, d) }

func (Bool) Scalar(s Scalar) (bool, error) {
	if v, ok := s.(Boolean); ok {
		return bool(v), nil
	}
	return mismatch[bool](s.avroType())
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Integer decodes int and long datums into T, failing with an overflow
// error when the value does not fit.
type Integer[T integer] struct{ Unexpected[T] }

func (d Integer[T]) UnionBranch(b UnionBranch) (T, error) { return DecodeField[T](b.Value, d) }

func (Integer[T]) Scalar(s Scalar) (T, error) {
	var v int64
	switch t := s.(type) {
	case Int:
		v = int64(t)
	case Long:
		v = int64(t)
	default:
		return mismatch[T](s.avroType())
	}
	out := T(v)
	if int64(out) != v || (v < 0) != (out < 0) {
		var zero T
		return zero, errors.Overflow(errors.PhaseDecode, nil, v, typeName[T]())
	}
	return out, nil
}

type float interface{ ~float32 | ~float64 }

// FloatOf decodes float and double datums into T. Integer datums are
// promoted.
type FloatOf[T float] struct{ Unexpected[T] }

func (d FloatOf[T]) UnionBranch(b UnionBranch) (T, error) { return DecodeField[T](b.Value, d) }

func (FloatOf[T]) Scalar(s Scalar) (T, error) {
	switch t := s.(type) {
	case Float:
		return T(t), nil
	case Double:
		if reflect.TypeFor[T]().Kind() == reflect.Float32 && !math.IsInf(float64(t), 0) &&
			math.Abs(float64(t)) > math.MaxFloat32 {
			var zero T
			return zero, errors.Overflow(errors.PhaseDecode, nil, float64(t), typeName[T]())
		}
		return T(t), nil
	case Int:
		return T(t), nil
	case Long:
		return T(t), nil
	}
	return mismatch[T](s.avroType())
}

// Str decodes string datums.
type Str struct{ Unexpected[string] }

func (d Str) UnionBranch(b UnionBranch) (string, error) { return DecodeField[string](b.Value, d) }
func (Str) String(s string) (string, error)             { return s, nil }

// ByteSlice decodes bytes and fixed datums.
type ByteSlice struct{ Unexpected[[]byte] }

func (d ByteSlice) UnionBranch(b UnionBranch) ([]byte, error) {
	return DecodeField[[]byte](b.Value, d)
}
func (ByteSlice) Bytes(b []byte) ([]byte, error) { return b, nil }
func (ByteSlice) Fixed(b []byte) ([]byte, error) { return b, nil }

// UUIDDecoder decodes uuid logical values, textual UUIDs and 16-byte fixed
// values.
type UUIDDecoder struct{ Unexpected[uuid.UUID] }

func (d UUIDDecoder) UnionBranch(b UnionBranch) (uuid.UUID, error) {
	return DecodeField[uuid.UUID](b.Value, d)
}
func (UUIDDecoder) UUID(u uuid.UUID) (uuid.UUID, error) { return u, nil }

func (UUIDDecoder) String(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			AvroType("string").
			GoType("uuid.UUID").
			Value(s).
			Cause(err).
			Build()
	}
	return u, nil
}

func (UUIDDecoder) Fixed(b []byte) (uuid.UUID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.Nil, errors.TypeMismatch(errors.PhaseDecode, nil, "uuid.UUID", "fixed")
	}
	return u, nil
}

// Time decodes timestamps, dates and RFC 3339 strings.
type Time struct{ Unexpected[time.Time] }

func (d Time) UnionBranch(b UnionBranch) (time.Time, error) {
	return DecodeField[time.Time](b.Value, d)
}

func (Time) Scalar(s Scalar) (time.Time, error) {
	switch t := s.(type) {
	case Timestamp:
		return t.Time(), nil
	case Date:
		return t.Time(), nil
	}
	return mismatch[time.Time](s.avroType())
}

func (Time) String(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			AvroType("string").
			GoType("time.Time").
			Value(s).
			Cause(err).
			Build()
	}
	return t, nil
}

// Duration decodes time-millis and time-micros values.
type Duration struct{ Unexpected[time.Duration] }

func (d Duration) UnionBranch(b UnionBranch) (time.Duration, error) {
	return DecodeField[time.Duration](b.Value, d)
}

func (Duration) Scalar(s Scalar) (time.Duration, error) {
	switch t := s.(type) {
	case TimeMillis:
		return t.Duration(), nil
	case TimeMicros:
		return t.Duration(), nil
	}
	return mismatch[time.Duration](s.avroType())
}

// DecimalDecoder decodes decimal logical values.
type DecimalDecoder struct{ Unexpected[Decimal] }

func (d DecimalDecoder) UnionBranch(b UnionBranch) (Decimal, error) {
	return DecodeField[Decimal](b.Value, d)
}
func (DecimalDecoder) Decimal(v Decimal) (Decimal, error) { return v, nil }

// Optional decodes a union with a null branch into a pointer. The null
// branch yields nil; any other branch is decoded with Elem. Datums that are
// not unions are decoded with Elem directly.
type Optional[T any] struct {
	Elem Decoder[T]
}

func (o Optional[T]) UnionBranch(b UnionBranch) (*T, error) {
	if b.IsNull() {
		return nil, b.Value.Skip()
	}
	return ptr(DecodeField(b.Value, o.Elem))
}

func (o Optional[T]) Scalar(s Scalar) (*T, error) {
	if _, ok := s.(Null); ok {
		return nil, nil
	}
	return ptr(o.Elem.Scalar(s))
}

func (o Optional[T]) Record(a RecordAccess) (*T, error) { return ptr(o.Elem.Record(a)) }
func (o Optional[T]) Array(a ArrayAccess) (*T, error)   { return ptr(o.Elem.Array(a)) }
func (o Optional[T]) Map(a MapAccess) (*T, error)       { return ptr(o.Elem.Map(a)) }
func (o Optional[T]) EnumVariant(i int, s string) (*T, error) {
	return ptr(o.Elem.EnumVariant(i, s))
}
func (o Optional[T]) Decimal(d Decimal) (*T, error) { return ptr(o.Elem.Decimal(d)) }
func (o Optional[T]) Bytes(b []byte) (*T, error)    { return ptr(o.Elem.Bytes(b)) }
func (o Optional[T]) String(s string) (*T, error)   { return ptr(o.Elem.String(s)) }
func (o Optional[T]) UUID(u uuid.UUID) (*T, error)  { return ptr(o.Elem.UUID(u)) }
func (o Optional[T]) Fixed(b []byte) (*T, error)    { return ptr(o.Elem.Fixed(b)) }

func ptr[T any](v T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List decodes an array with Elem applied to every item.
type List[T any] struct {
	Unexpected[[]T]
	Elem Decoder[T]
}

func (l List[T]) UnionBranch(b UnionBranch) ([]T, error) { return DecodeField[[]T](b.Value, l) }

func (l List[T]) Array(a ArrayAccess) ([]T, error) {
	out := []T{}
	for {
		f, ok, err := a.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		v, err := DecodeField(f, l.Elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// MapOf decodes a map with Elem applied to every value.
type MapOf[T any] struct {
	Unexpected[map[string]T]
	Elem Decoder[T]
}

func (m MapOf[T]) UnionBranch(b UnionBranch) (map[string]T, error) {
	return DecodeField[map[string]T](b.Value, m)
}

func (m MapOf[T]) Map(a MapAccess) (map[string]T, error) {
	out := map[string]T{}
	for {
		k, f, ok, err := a.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		v, err := DecodeField(f, m.Elem)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
}
