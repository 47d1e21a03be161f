package derive

import (
	"reflect"
	"sync"

	"github.com/wippyai/avro-derive/decode"
)

type factoryEntry struct {
	typ reflect.Type
	fn  func(*decode.Field) (any, error)
}

type stateFuncEntry struct {
	param  reflect.Type
	result reflect.Type
	fn     func(any) (any, error)
}

type decodableEntry struct {
	state reflect.Type
	make  func(state any) (decode.Decoder[any], error)
}

type registry struct {
	mu         sync.RWMutex
	factories  map[string]factoryEntry
	stateFuncs map[string]stateFuncEntry
	decodables map[reflect.Type]decodableEntry
}

func newRegistry() *registry {
	return &registry{
		factories:  make(map[string]factoryEntry),
		stateFuncs: make(map[string]stateFuncEntry),
		decodables: make(map[reflect.Type]decodableEntry),
	}
}

func (r *registry) factory(name string) (factoryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.factories[name]
	return e, ok
}

func (r *registry) stateFunc(name string) (stateFuncEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stateFuncs[name]
	return e, ok
}

func (r *registry) decodable(t reflect.Type) (decodableEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.decodables[t]
	return e, ok
}

// RegisterFactory registers a field decoder factory under name, for use as
// factory=<name> on fields of type T or a type T is assignable to.
func RegisterFactory[T any](c *Compiler, name string, fn func(*decode.Field) (T, error)) {
	c.reg.mu.Lock()
	c.reg.factories[name] = factoryEntry{
		typ: reflect.TypeFor[T](),
		fn: func(f *decode.Field) (any, error) {
			v, err := fn(f)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
	c.reg.mu.Unlock()
	c.invalidate()
}

// RegisterStateFunc registers a state derivation under name, for use as
// state=<name>. It receives the parent record's state and returns the
// state handed to the field's decoder.
func RegisterStateFunc[P, C any](c *Compiler, name string, fn func(P) C) {
	c.reg.mu.Lock()
	c.reg.stateFuncs[name] = stateFuncEntry{
		param:  reflect.TypeFor[P](),
		result: reflect.TypeFor[C](),
		fn: func(parent any) (any, error) {
			p, err := stateAs[P](parent)
			if err != nil {
				return nil, err
			}
			return fn(p), nil
		},
	}
	c.reg.mu.Unlock()
	c.invalidate()
}

// RegisterDecodable makes T decodable through the recursive protocol with
// decoders built by newDecoder from a state of type S. Registered decoders
// take precedence over built-in and derived ones. Generated code registers
// every derived type this way.
func RegisterDecodable[S, T any](c *Compiler, newDecoder func(S) decode.Decoder[T]) {
	c.reg.mu.Lock()
	c.reg.decodables[reflect.TypeFor[T]()] = decodableEntry{
		state: reflect.TypeFor[S](),
		make: func(state any) (decode.Decoder[any], error) {
			s, err := stateAs[S](state)
			if err != nil {
				return nil, err
			}
			return decode.Erase(newDecoder(s)), nil
		},
	}
	c.reg.mu.Unlock()
	c.invalidate()
}
