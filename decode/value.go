package decode

import (
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Value is a materialized Avro datum. The concrete types are Null, Boolean,
// Int, Long, Float, Double, Date, TimeMillis, TimeMicros, Timestamp, Decimal,
// Bytes, String, UUID, Fixed, Enum, Union, Array, Map and Record.
type Value interface {
	avroType() string
}

// Scalar is a Value delivered through Decoder.Scalar.
type Scalar interface {
	Value
	scalar()
}

type (
	Null       struct{}
	Boolean    bool
	Int        int32
	Long       int64
	Float      float32
	Double     float64
	Date       int32 // days since the Unix epoch
	TimeMillis int32 // milliseconds after midnight
	TimeMicros int64 // microseconds after midnight
	Bytes      []byte
	String     string
	Fixed      []byte
	UUID       uuid.UUID
	Array      []Value
	Map        map[string]Value
)

// TimeUnit is the precision of a Timestamp.
type TimeUnit uint8

const (
	Millis TimeUnit = iota
	Micros
)

// Timestamp is a timestamp-* or local-timestamp-* value.
type Timestamp struct {
	Value int64
	Unit  TimeUnit
	Local bool
}

// Time converts t to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	if t.Unit == Micros {
		return time.UnixMicro(t.Value).UTC()
	}
	return time.UnixMilli(t.Value).UTC()
}

// Time converts d to midnight UTC of that day.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

func (t TimeMillis) Duration() time.Duration { return time.Duration(t) * time.Millisecond }
func (t TimeMicros) Duration() time.Duration { return time.Duration(t) * time.Microsecond }

// Decimal is an arbitrary-precision decimal: Unscaled * 10^-Scale.
type Decimal struct {
	Unscaled  *big.Int
	Scale     int
	Precision int
}

// Rat returns the exact value of d.
func (d Decimal) Rat() *big.Rat {
	r := new(big.Rat).SetInt(d.unscaled())
	if d.Scale > 0 {
		den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale)), nil)
		r.Quo(r, new(big.Rat).SetInt(den))
	}
	return r
}

// String formats d in plain decimal notation.
func (d Decimal) String() string {
	u := d.unscaled()
	digits := new(big.Int).Abs(u).String()
	sign := ""
	if u.Sign() < 0 {
		sign = "-"
	}
	if d.Scale <= 0 {
		return sign + digits
	}
	if len(digits) <= d.Scale {
		digits = strings.Repeat("0", d.Scale-len(digits)+1) + digits
	}
	point := len(digits) - d.Scale
	return sign + digits[:point] + "." + digits[point:]
}

func (d Decimal) unscaled() *big.Int {
	if d.Unscaled == nil {
		return new(big.Int)
	}
	return d.Unscaled
}

// decimalFromBytes interprets b as a big-endian two's-complement integer.
func decimalFromBytes(b []byte, precision, scale int) Decimal {
	u := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		u.Sub(u, new(big.Int).Lsh(big.NewInt(1), uint(8*len(b))))
	}
	return Decimal{Unscaled: u, Scale: scale, Precision: precision}
}

// Enum is an enum symbol together with its index in the schema.
type Enum struct {
	Symbol string
	Index  int
}

// Union is the selected branch of a union.
type Union struct {
	Value Value
	Index int
}

// NamedValue is one field of a materialized Record.
type NamedValue struct {
	Value Value
	Name  string
}

// Record is a materialized record. Fields keep their given order and may
// repeat names or carry names unknown to any schema.
type Record struct {
	Name   string
	Fields []NamedValue
}

// RecordOf builds an anonymous Record from fields, in order.
func RecordOf(fields ...NamedValue) Record {
	return Record{Fields: fields}
}

func (Null) avroType() string       { return "null" }
func (Boolean) avroType() string    { return "boolean" }
func (Int) avroType() string        { return "int" }
func (Long) avroType() string       { return "long" }
func (Float) avroType() string      { return "float" }
func (Double) avroType() string     { return "double" }
func (Date) avroType() string       { return "date" }
func (TimeMillis) avroType() string { return "time-millis" }
func (TimeMicros) avroType() string { return "time-micros" }
func (Timestamp) avroType() string  { return "timestamp" }
func (Decimal) avroType() string    { return "decimal" }
func (Bytes) avroType() string      { return "bytes" }
func (String) avroType() string     { return "string" }
func (Fixed) avroType() string      { return "fixed" }
func (UUID) avroType() string       { return "uuid" }
func (Enum) avroType() string       { return "enum" }
func (Union) avroType() string      { return "union" }
func (Array) avroType() string      { return "array" }
func (Map) avroType() string        { return "map" }
func (Record) avroType() string     { return "record" }

func (Null) scalar()       {}
func (Boolean) scalar()    {}
func (Int) scalar()        {}
func (Long) scalar()       {}
func (Float) scalar()      {}
func (Double) scalar()     {}
func (Date) scalar()       {}
func (TimeMillis) scalar() {}
func (TimeMicros) scalar() {}
func (Timestamp) scalar()  {}

// Native converts v to plain Go values suitable for JSON, YAML or CBOR
// encoding. Records become map[string]any, enums their symbol, unions
// their selected value, and logical types their conventional text form.
func Native(v Value) any {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case Boolean:
		return bool(t)
	case Int:
		return int32(t)
	case Long:
		return int64(t)
	case Float:
		return float32(t)
	case Double:
		return float64(t)
	case Date:
		return t.Time().Format(time.DateOnly)
	case TimeMillis:
		return t.Duration().String()
	case TimeMicros:
		return t.Duration().String()
	case Timestamp:
		return t.Time()
	case Decimal:
		return t.String()
	case Bytes:
		return []byte(t)
	case String:
		return string(t)
	case Fixed:
		return []byte(t)
	case UUID:
		return uuid.UUID(t).String()
	case Enum:
		return t.Symbol
	case Union:
		return Native(t.Value)
	case Array:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Native(item)
		}
		return out
	case Map:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Native(item)
		}
		return out
	case Record:
		out := make(map[string]any, len(t.Fields))
		for _, f := range t.Fields {
			out[f.Name] = Native(f.Value)
		}
		return out
	}
	return nil
}

// AvroType names the Avro type of v, using the logical type name where one
// applies.
func AvroType(v Value) string {
	if v == nil {
		return "null"
	}
	return v.avroType()
}
