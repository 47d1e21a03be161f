package decode

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/wippyai/avro-derive/errors"
)

// Decoder turns one Avro datum into a T. The driver calls exactly one method,
// chosen by the physical shape of the datum on the wire. Implementations
// usually embed Unexpected[T] and override the shapes they accept.
type Decoder[T any] interface {
	Record(RecordAccess) (T, error)
	UnionBranch(UnionBranch) (T, error)
	Array(ArrayAccess) (T, error)
	Map(MapAccess) (T, error)
	EnumVariant(index int, symbol string) (T, error)
	Scalar(Scalar) (T, error)
	Decimal(Decimal) (T, error)
	Bytes([]byte) (T, error)
	String(string) (T, error)
	UUID(uuid.UUID) (T, error)
	Fixed([]byte) (T, error)
}

// Unexpected rejects every shape with an unexpected_shape error.
type Unexpected[T any] struct{}

func (Unexpected[T]) fail(shape string) (T, error) {
	var zero T
	return zero, errors.UnexpectedShape(nil, shape, typeName[T]())
}

func (u Unexpected[T]) Record(RecordAccess) (T, error)     { return u.fail("record") }
func (u Unexpected[T]) UnionBranch(UnionBranch) (T, error) { return u.fail("union") }
func (u Unexpected[T]) Array(ArrayAccess) (T, error)       { return u.fail("array") }
func (u Unexpected[T]) Map(MapAccess) (T, error)           { return u.fail("map") }
func (u Unexpected[T]) EnumVariant(int, string) (T, error) { return u.fail("enum") }
func (u Unexpected[T]) Scalar(s Scalar) (T, error)         { return u.fail(s.avroType()) }
func (u Unexpected[T]) Decimal(Decimal) (T, error)         { return u.fail("decimal") }
func (u Unexpected[T]) Bytes([]byte) (T, error)            { return u.fail("bytes") }
func (u Unexpected[T]) String(string) (T, error)           { return u.fail("string") }
func (u Unexpected[T]) UUID(uuid.UUID) (T, error)          { return u.fail("uuid") }
func (u Unexpected[T]) Fixed([]byte) (T, error)            { return u.fail("fixed") }

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// Trivial consumes a datum of any shape and discards it.
type Trivial struct{}

func (Trivial) Record(a RecordAccess) (struct{}, error) {
	for {
		f, ok, err := a.NextField()
		if err != nil || !ok {
			return struct{}{}, err
		}
		if err := f.Skip(); err != nil {
			return struct{}{}, err
		}
	}
}

func (Trivial) UnionBranch(b UnionBranch) (struct{}, error) {
	return struct{}{}, b.Value.Skip()
}

func (Trivial) Array(a ArrayAccess) (struct{}, error) {
	for {
		f, ok, err := a.Next()
		if err != nil || !ok {
			return struct{}{}, err
		}
		if err := f.Skip(); err != nil {
			return struct{}{}, err
		}
	}
}

func (Trivial) Map(a MapAccess) (struct{}, error) {
	for {
		_, f, ok, err := a.Next()
		if err != nil || !ok {
			return struct{}{}, err
		}
		if err := f.Skip(); err != nil {
			return struct{}{}, err
		}
	}
}

func (Trivial) EnumVariant(int, string) (struct{}, error) { return struct{}{}, nil }
func (Trivial) Scalar(Scalar) (struct{}, error)           { return struct{}{}, nil }
func (Trivial) Decimal(Decimal) (struct{}, error)         { return struct{}{}, nil }
func (Trivial) Bytes([]byte) (struct{}, error)            { return struct{}{}, nil }
func (Trivial) String(string) (struct{}, error)           { return struct{}{}, nil }
func (Trivial) UUID(uuid.UUID) (struct{}, error)          { return struct{}{}, nil }
func (Trivial) Fixed([]byte) (struct{}, error)            { return struct{}{}, nil }

// Erase adapts a typed decoder to Decoder[any].
func Erase[T any](d Decoder[T]) Decoder[any] {
	if e, ok := d.(typed[T]); ok {
		return e.d
	}
	return erased[T]{d}
}

// Typed adapts an erased decoder back to Decoder[T]. A result that is not a
// T is reported as a type mismatch.
func Typed[T any](d Decoder[any]) Decoder[T] {
	if e, ok := d.(erased[T]); ok {
		return e.d
	}
	return typed[T]{d}
}

type erased[T any] struct{ d Decoder[T] }

func (e erased[T]) Record(a RecordAccess) (any, error)     { return box(e.d.Record(a)) }
func (e erased[T]) UnionBranch(b UnionBranch) (any, error) { return box(e.d.UnionBranch(b)) }
func (e erased[T]) Array(a ArrayAccess) (any, error)       { return box(e.d.Array(a)) }
func (e erased[T]) Map(a MapAccess) (any, error)           { return box(e.d.Map(a)) }
func (e erased[T]) EnumVariant(i int, s string) (any, error) {
	return box(e.d.EnumVariant(i, s))
}
func (e erased[T]) Scalar(s Scalar) (any, error)   { return box(e.d.Scalar(s)) }
func (e erased[T]) Decimal(d Decimal) (any, error) { return box(e.d.Decimal(d)) }
func (e erased[T]) Bytes(b []byte) (any, error)    { return box(e.d.Bytes(b)) }
func (e erased[T]) String(s string) (any, error)   { return box(e.d.String(s)) }
func (e erased[T]) UUID(u uuid.UUID) (any, error)  { return box(e.d.UUID(u)) }
func (e erased[T]) Fixed(b []byte) (any, error)    { return box(e.d.Fixed(b)) }

func box[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

type typed[T any] struct{ d Decoder[any] }

func (t typed[T]) Record(a RecordAccess) (T, error)     { return unbox[T](t.d.Record(a)) }
func (t typed[T]) UnionBranch(b UnionBranch) (T, error) { return unbox[T](t.d.UnionBranch(b)) }
func (t typed[T]) Array(a ArrayAccess) (T, error)       { return unbox[T](t.d.Array(a)) }
func (t typed[T]) Map(a MapAccess) (T, error)           { return unbox[T](t.d.Map(a)) }
func (t typed[T]) EnumVariant(i int, s string) (T, error) {
	return unbox[T](t.d.EnumVariant(i, s))
}
func (t typed[T]) Scalar(s Scalar) (T, error)   { return unbox[T](t.d.Scalar(s)) }
func (t typed[T]) Decimal(d Decimal) (T, error) { return unbox[T](t.d.Decimal(d)) }
func (t typed[T]) Bytes(b []byte) (T, error)    { return unbox[T](t.d.Bytes(b)) }
func (t typed[T]) String(s string) (T, error)   { return unbox[T](t.d.String(s)) }
func (t typed[T]) UUID(u uuid.UUID) (T, error)  { return unbox[T](t.d.UUID(u)) }
func (t typed[T]) Fixed(b []byte) (T, error)    { return unbox[T](t.d.Fixed(b)) }

func unbox[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseDecode, nil, typeName[T](), fmt.Sprintf("%T", v))
	}
	return out, nil
}
