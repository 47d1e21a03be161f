package derive

import (
	"reflect"

	"github.com/wippyai/avro-derive/decode"
)

// Strategy is how a record field is decoded.
type Strategy uint8

const (
	// StrategyFactory hands the raw field to a registered factory.
	StrategyFactory Strategy = iota + 1
	// StrategyString decodes the field as an Avro string.
	StrategyString
	// StrategyRecursive decodes the field with its type's own decoder,
	// constructed with the field's derived state.
	StrategyRecursive
)

func (s Strategy) String() string {
	switch s {
	case StrategyFactory:
		return "factory"
	case StrategyString:
		return "string"
	case StrategyRecursive:
		return "recursive"
	}
	return "unknown"
}

// Plan is the decoder plan of one record type. It is immutable once
// compiled and shared by every decoder built from it.
type Plan struct {
	Type        reflect.Type
	StateType   reflect.Type
	DecoderName string
	Fields      []FieldPlan

	byName map[string]int
}

// Field returns the plan entry for a wire field name.
func (p *Plan) Field(name string) (*FieldPlan, bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return &p.Fields[i], true
}

// FieldPlan describes one record field.
type FieldPlan struct {
	Type reflect.Type

	// Name is the wire name, GoName the struct field name.
	Name   string
	GoName string

	Strategy Strategy

	// Factory and StateFunc are the registered names from the field tag.
	Factory   string
	StateFunc string

	index   int
	factory func(*decode.Field) (any, error)
	stateFn func(any) (any, error)
	child   func(state any) (decode.Decoder[any], error)
}
