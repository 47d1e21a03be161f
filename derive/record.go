package derive

import (
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/wippyai/avro-derive/decode"
	"github.com/wippyai/avro-derive/errors"
)

type phase uint8

const (
	phaseReading phase = iota
	phaseValidating
	phaseAssembled
	phaseFailed
)

type slot struct {
	v   any
	set bool
}

// RecordDecoder decodes one record according to a Plan. It owns one slot
// per planned field and its decode state, and is used for a single decode.
//
// Wire fields are matched to the plan by name in any order. A field seen
// twice fails with field_duplicate, an unplanned field is skipped, and
// once the record ends every slot must be filled or the decode fails with
// field_missing. The result is a value of Plan.Type assembled in struct
// field order.
type RecordDecoder struct {
	decode.Unexpected[any]
	plan  *Plan
	state any
	slots []slot
	phase phase
}

func newRecordDecoder(p *Plan, state any) *RecordDecoder {
	return &RecordDecoder{
		plan:  p,
		state: state,
		slots: make([]slot, len(p.Fields)),
	}
}

// Plan returns the plan the decoder executes.
func (d *RecordDecoder) Plan() *Plan { return d.plan }

// Record implements decode.Decoder.
func (d *RecordDecoder) Record(a decode.RecordAccess) (any, error) {
	if d.phase != phaseReading {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			GoType(d.plan.Type.String()).
			Detail("%s is single-use", d.plan.DecoderName).
			Build()
	}
	v, err := d.run(a)
	if err != nil {
		d.phase = phaseFailed
		return nil, err
	}
	d.phase = phaseAssembled
	return v, nil
}

// UnionBranch decodes the selected branch, so that records wrapped in a
// single-branch union still decode.
func (d *RecordDecoder) UnionBranch(b decode.UnionBranch) (any, error) {
	return decode.DecodeField[any](b.Value, d)
}

func (d *RecordDecoder) run(a decode.RecordAccess) (any, error) {
	for {
		f, ok, err := a.NextField()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		i, known := d.plan.byName[f.Name()]
		if !known {
			if err := f.Skip(); err != nil {
				return nil, err
			}
			continue
		}
		fp := &d.plan.Fields[i]
		if d.slots[i].set {
			return nil, DuplicateField(a.Path(), fp.Name)
		}
		v, err := d.decodeField(fp, f)
		if err != nil {
			return nil, err
		}
		d.slots[i] = slot{v: v, set: true}
	}

	d.phase = phaseValidating
	out := reflect.New(d.plan.Type).Elem()
	for i := range d.plan.Fields {
		fp := &d.plan.Fields[i]
		s := d.slots[i]
		d.slots[i] = slot{}
		if !s.set {
			return nil, MissingField(a.Path(), fp.Name)
		}
		out.Field(fp.index).Set(valueOf(s.v, fp.Type))
	}
	return out.Interface(), nil
}

func (d *RecordDecoder) decodeField(fp *FieldPlan, f *decode.Field) (any, error) {
	switch fp.Strategy {
	case StrategyFactory:
		return fp.factory(f)
	case StrategyString:
		return DecodeString(f)
	}

	var state any = Unit{}
	if fp.stateFn != nil {
		var err error
		if state, err = fp.stateFn(d.state); err != nil {
			return nil, err
		}
	}
	child, err := fp.child(state)
	if err != nil {
		return nil, err
	}
	return decode.DecodeField(f, child)
}

// DecodeString decodes f as an Avro string. Any other datum fails with a
// type_mismatch error; a union is unwrapped to its selected branch.
func DecodeString(f *decode.Field) (string, error) {
	return decode.DecodeField[string](f, stringField{})
}

type stringField struct{}

func (stringField) mismatch(avroType string) (string, error) {
	return "", errors.TypeMismatch(errors.PhaseDecode, nil, "string", avroType)
}

func (d stringField) UnionBranch(b decode.UnionBranch) (string, error) {
	return decode.DecodeField[string](b.Value, d)
}
func (stringField) String(s string) (string, error) { return s, nil }

func (d stringField) Record(decode.RecordAccess) (string, error) { return d.mismatch("record") }
func (d stringField) Array(decode.ArrayAccess) (string, error)   { return d.mismatch("array") }
func (d stringField) Map(decode.MapAccess) (string, error)       { return d.mismatch("map") }
func (d stringField) EnumVariant(int, string) (string, error)    { return d.mismatch("enum") }
func (d stringField) Scalar(s decode.Scalar) (string, error) {
	return d.mismatch(decode.AvroType(s))
}
func (d stringField) Decimal(decode.Decimal) (string, error) { return d.mismatch("decimal") }
func (d stringField) Bytes([]byte) (string, error)           { return d.mismatch("bytes") }
func (d stringField) UUID(uuid.UUID) (string, error)         { return d.mismatch("uuid") }
func (d stringField) Fixed([]byte) (string, error)           { return d.mismatch("fixed") }

// Slot holds one field value during a generated decode.
type Slot[T any] struct {
	v   T
	set bool
}

// Filled reports whether the slot holds a value.
func (s *Slot[T]) Filled() bool { return s.set }

// Set stores v. Callers check Filled first and report DuplicateField.
func (s *Slot[T]) Set(v T) {
	s.v = v
	s.set = true
}

// Take drains the slot, reporting whether it was filled.
func (s *Slot[T]) Take() (T, bool) {
	v, ok := s.v, s.set
	var zero T
	s.v, s.set = zero, false
	return v, ok
}

// StateOf returns s. Generated code passes state expressions through it so
// that the compiler checks them against the state type a field needs.
func StateOf[S any](s S) S { return s }

// DuplicateField is the error for a wire field that appears twice in the
// record at path.
func DuplicateField(path []string, name string) error {
	return errors.FieldDuplicate(errors.PhaseDecode, slices.Clone(path), name)
}

// MissingField is the error for a planned field absent from the record at
// path.
func MissingField(path []string, name string) error {
	return errors.FieldMissing(errors.PhaseDecode, slices.Clone(path), name)
}
