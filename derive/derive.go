package derive

import (
	"reflect"

	"github.com/wippyai/avro-derive/decode"
	"github.com/wippyai/avro-derive/schema"
)

// DecoderFor returns a decoder for T built by c with the given decode state.
// A nil state means Unit, or the zero value of T's state type.
func DecoderFor[T any](c *Compiler, state any) (decode.Decoder[T], error) {
	r, err := c.resolution(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	state, err = checkState(r.state, state)
	if err != nil {
		return nil, err
	}
	d, err := r.make(state)
	if err != nil {
		return nil, err
	}
	return decode.Typed[T](d), nil
}

// StateTypeFor reports the decode state type T's decoder expects.
func StateTypeFor[T any](c *Compiler) (reflect.Type, error) {
	r, err := c.resolution(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return r.state, nil
}

func (c *Compiler) resolution(t reflect.Type) (*resolution, error) {
	if cached, ok := c.resolved.Load(t); ok {
		return cached.(*resolution), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var r *resolution
	_, err := c.session(func() (*Plan, error) {
		var err error
		r, err = c.resolve(t, nil)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	c.resolved.Store(t, r)
	return r, nil
}

// NewDecoder returns a decoder for T from the Default compiler.
func NewDecoder[T any](state any) (decode.Decoder[T], error) {
	return DecoderFor[T](Default, state)
}

// Decode decodes one datum written with schema s into a T.
func Decode[T any](data []byte, s schema.Schema, state any) (T, error) {
	d, err := NewDecoder[T](state)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode.Decode(data, s, d)
}

// DecodeValue decodes a materialized value into a T.
func DecodeValue[T any](v decode.Value, state any) (T, error) {
	d, err := NewDecoder[T](state)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode.DecodeValue(v, d)
}
