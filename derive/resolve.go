package derive

import (
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/wippyai/avro-derive/decode"
	"github.com/wippyai/avro-derive/errors"
)

// resolution is how a type is decoded through the recursive protocol: the
// state type its decoder expects and a constructor for that decoder.
type resolution struct {
	state reflect.Type
	make  func(state any) (decode.Decoder[any], error)
}

var (
	stringType   = reflect.TypeFor[string]()
	bytesType    = reflect.TypeFor[[]byte]()
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	decimalType  = reflect.TypeFor[decode.Decimal]()
	valueType    = reflect.TypeFor[decode.Value]()
)

// resolve finds the decoder for t, in order: registered decodable,
// built-in, pointer/slice/map wrapper, derived record plan. c.mu must be
// held.
func (c *Compiler) resolve(t reflect.Type, path []string) (*resolution, error) {
	if e, ok := c.reg.decodable(t); ok {
		return &resolution{state: e.state, make: e.make}, nil
	}

	if d, ok := builtin(t); ok {
		return &resolution{state: unitType, make: func(any) (decode.Decoder[any], error) { return d, nil }}, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem, err := c.resolve(t.Elem(), path)
		if err != nil {
			return nil, err
		}
		return &resolution{state: elem.state, make: func(s any) (decode.Decoder[any], error) {
			d, err := elem.make(s)
			if err != nil {
				return nil, err
			}
			return pointerDecoder{elem: d, typ: t}, nil
		}}, nil

	case reflect.Slice:
		elem, err := c.resolve(t.Elem(), appendPath(path, "[]"))
		if err != nil {
			return nil, err
		}
		return &resolution{state: elem.state, make: func(s any) (decode.Decoder[any], error) {
			d, err := elem.make(s)
			if err != nil {
				return nil, err
			}
			return sliceDecoder{elem: d, typ: t}, nil
		}}, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, errors.TypeMismatch(errors.PhaseCompile, path, t.String(), "map with string keys")
		}
		elem, err := c.resolve(t.Elem(), appendPath(path, "[]"))
		if err != nil {
			return nil, err
		}
		return &resolution{state: elem.state, make: func(s any) (decode.Decoder[any], error) {
			d, err := elem.make(s)
			if err != nil {
				return nil, err
			}
			return mapDecoder{elem: d, typ: t}, nil
		}}, nil

	case reflect.Struct:
		p, err := c.plan(t, path)
		if err != nil {
			return nil, err
		}
		return &resolution{state: p.StateType, make: func(s any) (decode.Decoder[any], error) {
			s, err := checkState(p.StateType, s)
			if err != nil {
				return nil, err
			}
			return newRecordDecoder(p, s), nil
		}}, nil
	}

	return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
		Path(path...).
		GoType(t.String()).
		Detail("no decoder for this type; register one with RegisterDecodable or RegisterFactory").
		Build()
}

// builtin returns the stateless decoder for scalar-like types. Named types
// are decoded as their underlying kind and converted.
func builtin(t reflect.Type) (decode.Decoder[any], bool) {
	switch t {
	case timeType:
		return decode.Erase[time.Time](decode.Time{}), true
	case durationType:
		return decode.Erase[time.Duration](decode.Duration{}), true
	case uuidType:
		return decode.Erase[uuid.UUID](decode.UUIDDecoder{}), true
	case decimalType:
		return decode.Erase[decode.Decimal](decode.DecimalDecoder{}), true
	case valueType:
		return decode.Erase[decode.Value](decode.ValueDecoder{}), true
	case bytesType:
		return decode.Erase[[]byte](decode.ByteSlice{}), true
	}

	var d decode.Decoder[any]
	switch t.Kind() {
	case reflect.Bool:
		d = decode.Erase[bool](decode.Bool{})
	case reflect.Int:
		d = decode.Erase[int](decode.Integer[int]{})
	case reflect.Int8:
		d = decode.Erase[int8](decode.Integer[int8]{})
	case reflect.Int16:
		d = decode.Erase[int16](decode.Integer[int16]{})
	case reflect.Int32:
		d = decode.Erase[int32](decode.Integer[int32]{})
	case reflect.Int64:
		d = decode.Erase[int64](decode.Integer[int64]{})
	case reflect.Uint:
		d = decode.Erase[uint](decode.Integer[uint]{})
	case reflect.Uint8:
		d = decode.Erase[uint8](decode.Integer[uint8]{})
	case reflect.Uint16:
		d = decode.Erase[uint16](decode.Integer[uint16]{})
	case reflect.Uint32:
		d = decode.Erase[uint32](decode.Integer[uint32]{})
	case reflect.Uint64:
		d = decode.Erase[uint64](decode.Integer[uint64]{})
	case reflect.Float32:
		d = decode.Erase[float32](decode.FloatOf[float32]{})
	case reflect.Float64:
		d = decode.Erase[float64](decode.FloatOf[float64]{})
	case reflect.String:
		d = decode.Erase[string](symbolOrString{})
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			return nil, false
		}
		d = decode.Erase[[]byte](decode.ByteSlice{})
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return nil, false
		}
		return nativeDecoder{}, true
	default:
		return nil, false
	}
	return converted{inner: d, to: t}, true
}

// symbolOrString decodes strings and enum symbols, so that named string
// types can hold enums.
type symbolOrString struct{ decode.Str }

func (d symbolOrString) UnionBranch(b decode.UnionBranch) (string, error) {
	return decode.DecodeField[string](b.Value, d)
}
func (symbolOrString) EnumVariant(_ int, symbol string) (string, error) { return symbol, nil }

// nativeDecoder decodes any datum into plain Go values for interface{}
// targets.
type nativeDecoder struct{}

func (nativeDecoder) wrap(v decode.Value, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return decode.Native(v), nil
}

func (n nativeDecoder) Record(a decode.RecordAccess) (any, error) {
	return n.wrap(decode.ValueDecoder{}.Record(a))
}
func (n nativeDecoder) UnionBranch(b decode.UnionBranch) (any, error) {
	return n.wrap(decode.ValueDecoder{}.UnionBranch(b))
}
func (n nativeDecoder) Array(a decode.ArrayAccess) (any, error) {
	return n.wrap(decode.ValueDecoder{}.Array(a))
}
func (n nativeDecoder) Map(a decode.MapAccess) (any, error) {
	return n.wrap(decode.ValueDecoder{}.Map(a))
}
func (n nativeDecoder) EnumVariant(i int, s string) (any, error) {
	return n.wrap(decode.ValueDecoder{}.EnumVariant(i, s))
}
func (n nativeDecoder) Scalar(s decode.Scalar) (any, error) {
	return n.wrap(decode.ValueDecoder{}.Scalar(s))
}
func (n nativeDecoder) Decimal(d decode.Decimal) (any, error) {
	return n.wrap(decode.ValueDecoder{}.Decimal(d))
}
func (n nativeDecoder) Bytes(b []byte) (any, error) {
	return n.wrap(decode.ValueDecoder{}.Bytes(b))
}
func (n nativeDecoder) String(s string) (any, error) {
	return n.wrap(decode.ValueDecoder{}.String(s))
}
func (n nativeDecoder) UUID(u uuid.UUID) (any, error) {
	return n.wrap(decode.ValueDecoder{}.UUID(u))
}
func (n nativeDecoder) Fixed(b []byte) (any, error) {
	return n.wrap(decode.ValueDecoder{}.Fixed(b))
}

// converted converts every result of inner to type to.
type converted struct {
	inner decode.Decoder[any]
	to    reflect.Type
}

func (c converted) conv(v any, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return valueOf(v, c.to).Interface(), nil
}

func (c converted) Record(a decode.RecordAccess) (any, error)     { return c.conv(c.inner.Record(a)) }
func (c converted) UnionBranch(b decode.UnionBranch) (any, error) { return c.conv(c.inner.UnionBranch(b)) }
func (c converted) Array(a decode.ArrayAccess) (any, error)       { return c.conv(c.inner.Array(a)) }
func (c converted) Map(a decode.MapAccess) (any, error)           { return c.conv(c.inner.Map(a)) }
func (c converted) EnumVariant(i int, s string) (any, error) {
	return c.conv(c.inner.EnumVariant(i, s))
}
func (c converted) Scalar(s decode.Scalar) (any, error)   { return c.conv(c.inner.Scalar(s)) }
func (c converted) Decimal(d decode.Decimal) (any, error) { return c.conv(c.inner.Decimal(d)) }
func (c converted) Bytes(b []byte) (any, error)           { return c.conv(c.inner.Bytes(b)) }
func (c converted) String(s string) (any, error)          { return c.conv(c.inner.String(s)) }
func (c converted) UUID(u uuid.UUID) (any, error)         { return c.conv(c.inner.UUID(u)) }
func (c converted) Fixed(b []byte) (any, error)           { return c.conv(c.inner.Fixed(b)) }

// pointerDecoder decodes a null union branch as a nil pointer and anything
// else with elem.
type pointerDecoder struct {
	elem decode.Decoder[any]
	typ  reflect.Type
}

func (p pointerDecoder) box(v any, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(p.typ.Elem())
	ptr.Elem().Set(valueOf(v, p.typ.Elem()))
	return ptr.Interface(), nil
}

func (p pointerDecoder) nilPtr() any { return reflect.Zero(p.typ).Interface() }

func (p pointerDecoder) UnionBranch(b decode.UnionBranch) (any, error) {
	if b.IsNull() {
		return p.nilPtr(), b.Value.Skip()
	}
	return p.box(decode.DecodeField(b.Value, p.elem))
}

func (p pointerDecoder) Scalar(s decode.Scalar) (any, error) {
	if _, ok := s.(decode.Null); ok {
		return p.nilPtr(), nil
	}
	return p.box(p.elem.Scalar(s))
}

func (p pointerDecoder) Record(a decode.RecordAccess) (any, error) { return p.box(p.elem.Record(a)) }
func (p pointerDecoder) Array(a decode.ArrayAccess) (any, error)   { return p.box(p.elem.Array(a)) }
func (p pointerDecoder) Map(a decode.MapAccess) (any, error)       { return p.box(p.elem.Map(a)) }
func (p pointerDecoder) EnumVariant(i int, s string) (any, error) {
	return p.box(p.elem.EnumVariant(i, s))
}
func (p pointerDecoder) Decimal(d decode.Decimal) (any, error) { return p.box(p.elem.Decimal(d)) }
func (p pointerDecoder) Bytes(b []byte) (any, error)           { return p.box(p.elem.Bytes(b)) }
func (p pointerDecoder) String(s string) (any, error)          { return p.box(p.elem.String(s)) }
func (p pointerDecoder) UUID(u uuid.UUID) (any, error)         { return p.box(p.elem.UUID(u)) }
func (p pointerDecoder) Fixed(b []byte) (any, error)           { return p.box(p.elem.Fixed(b)) }

// sliceDecoder decodes arrays item by item with elem.
type sliceDecoder struct {
	decode.Unexpected[any]
	elem decode.Decoder[any]
	typ  reflect.Type
}

func (s sliceDecoder) UnionBranch(b decode.UnionBranch) (any, error) {
	return decode.DecodeField[any](b.Value, s)
}

func (s sliceDecoder) Array(a decode.ArrayAccess) (any, error) {
	out := reflect.MakeSlice(s.typ, 0, 0)
	for {
		f, ok, err := a.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out.Interface(), nil
		}
		v, err := decode.DecodeField(f, s.elem)
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, valueOf(v, s.typ.Elem()))
	}
}

// mapDecoder decodes maps value by value with elem.
type mapDecoder struct {
	decode.Unexpected[any]
	elem decode.Decoder[any]
	typ  reflect.Type
}

func (m mapDecoder) UnionBranch(b decode.UnionBranch) (any, error) {
	return decode.DecodeField[any](b.Value, m)
}

func (m mapDecoder) Map(a decode.MapAccess) (any, error) {
	out := reflect.MakeMap(m.typ)
	for {
		k, f, ok, err := a.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out.Interface(), nil
		}
		v, err := decode.DecodeField(f, m.elem)
		if err != nil {
			return nil, err
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(m.typ.Key()), valueOf(v, m.typ.Elem()))
	}
}

// valueOf returns v as a reflect.Value of type t. Nil becomes the zero
// value; a convertible dynamic type is converted.
func valueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t || rv.Type().AssignableTo(t) {
		return rv
	}
	return rv.Convert(t)
}
