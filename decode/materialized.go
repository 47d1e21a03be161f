package decode

import (
	"bytes"

	"github.com/google/uuid"

	"github.com/wippyai/avro-derive/errors"
)

// DecodeValue drives d with a materialized value. Records are presented in
// field order, including repeated or unknown names, which makes it the
// natural source for exercising record decoders against arbitrary input.
func DecodeValue[T any](v Value, d Decoder[T]) (T, error) {
	return decodeValue(v, d, nil)
}

func decodeValue[T any](v Value, d Decoder[T], path []string) (T, error) {
	switch t := v.(type) {
	case Scalar:
		return d.Scalar(t)
	case Decimal:
		return d.Decimal(t)
	case Bytes:
		return d.Bytes(bytes.Clone(t))
	case String:
		return d.String(string(t))
	case UUID:
		return d.UUID(uuid.UUID(t))
	case Fixed:
		return d.Fixed(bytes.Clone(t))
	case Enum:
		return d.EnumVariant(t.Index, t.Symbol)
	case Union:
		null := -1
		if _, ok := t.Value.(Null); ok || t.Value == nil {
			null = t.Index
		}
		return d.UnionBranch(UnionBranch{
			Value:       &Field{v: t.Value, index: t.Index, path: path},
			Index:       t.Index,
			NullVariant: null,
		})
	case Array:
		return d.Array(&valueArray{items: t, path: path})
	case Map:
		return d.Map(newValueMap(t, path))
	case Record:
		return d.Record(&valueRecord{rec: t, path: path})
	case nil:
		return d.Scalar(Null{})
	}

	var zero T
	return zero, errors.New(errors.PhaseDecode, errors.KindUnsupported).
		Path(path...).
		Detail("value of type %T", v).
		Build()
}
