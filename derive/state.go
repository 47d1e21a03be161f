package derive

import "reflect"

// Unit is the empty decode state. Records without a State marker decode
// with Unit, and fields without state= hand Unit to their decoder.
type Unit struct{}

// State declares the decode state type of the enclosing record:
//
//	type Order struct {
//		_     derive.State[Limits]
//		Items []Item `avro:"items,state=itemLimits"`
//	}
type State[S any] struct{}

func (State[S]) stateType() reflect.Type { return reflect.TypeFor[S]() }

type stateMarker interface {
	stateType() reflect.Type
}

var (
	unitType   = reflect.TypeFor[Unit]()
	markerType = reflect.TypeFor[stateMarker]()
)

// markerState returns S if t is State[S].
func markerState(t reflect.Type) (reflect.Type, bool) {
	if !t.Implements(markerType) {
		return nil, false
	}
	return reflect.Zero(t).Interface().(stateMarker).stateType(), true
}
