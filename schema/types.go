package schema

import (
	"encoding/json"
	"strings"
)

// Kind identifies the physical wire shape of a schema.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBytes
	KindString
	KindRecord
	KindEnum
	KindArray
	KindMap
	KindUnion
	KindFixed
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBoolean: "boolean",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBytes:   "bytes",
	KindString:  "string",
	KindRecord:  "record",
	KindEnum:    "enum",
	KindArray:   "array",
	KindMap:     "map",
	KindUnion:   "union",
	KindFixed:   "fixed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k has no nested schema and no name.
func (k Kind) IsPrimitive() bool {
	return k <= KindString
}

// Logical type names.
const (
	LogicalDecimal              = "decimal"
	LogicalUUID                 = "uuid"
	LogicalDate                 = "date"
	LogicalTimeMillis           = "time-millis"
	LogicalTimeMicros           = "time-micros"
	LogicalTimestampMillis      = "timestamp-millis"
	LogicalTimestampMicros      = "timestamp-micros"
	LogicalLocalTimestampMillis = "local-timestamp-millis"
	LogicalLocalTimestampMicros = "local-timestamp-micros"
	LogicalDuration             = "duration"
)

// Logical annotates a primitive or fixed schema with a higher-level
// interpretation. The zero value means no logical type.
type Logical struct {
	Name      string
	Precision int
	Scale     int
}

// Schema is an Avro schema node.
type Schema interface {
	Kind() Kind
	// String returns the Parsing Canonical Form.
	String() string
}

// Named is implemented by records, enums and fixed schemas.
type Named interface {
	Schema
	FullName() string
}

// Primitive is one of null, boolean, int, long, float, double, bytes, string.
type Primitive struct {
	Logical Logical
	K       Kind
}

func (p *Primitive) Kind() Kind     { return p.K }
func (p *Primitive) String() string { return Canonical(p) }

// Field is a single record field.
type Field struct {
	Type    Schema
	Name    string
	Doc     string
	Default json.RawMessage
	Aliases []string
	Index   int
}

// Record is a named sequence of fields.
type Record struct {
	index     map[string]int
	Name      string
	Namespace string
	Doc       string
	Aliases   []string
	Fields    []*Field
}

func (r *Record) Kind() Kind       { return KindRecord }
func (r *Record) String() string   { return Canonical(r) }
func (r *Record) FullName() string { return fullName(r.Namespace, r.Name) }

// Field returns the field with the given name.
func (r *Record) Field(name string) (*Field, bool) {
	if r.index != nil {
		i, ok := r.index[name]
		if !ok {
			return nil, false
		}
		return r.Fields[i], true
	}
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Enum is a named set of symbols.
type Enum struct {
	Name      string
	Namespace string
	Doc       string
	Default   string
	Aliases   []string
	Symbols   []string
}

func (e *Enum) Kind() Kind       { return KindEnum }
func (e *Enum) String() string   { return Canonical(e) }
func (e *Enum) FullName() string { return fullName(e.Namespace, e.Name) }

// Array is a sequence of items of a single schema.
type Array struct {
	Items Schema
}

func (a *Array) Kind() Kind     { return KindArray }
func (a *Array) String() string { return Canonical(a) }

// Map is a string-keyed map of values of a single schema.
type Map struct {
	Values Schema
}

func (m *Map) Kind() Kind     { return KindMap }
func (m *Map) String() string { return Canonical(m) }

// Union is an ordered choice between branch schemas.
type Union struct {
	Branches []Schema
}

func (u *Union) Kind() Kind     { return KindUnion }
func (u *Union) String() string { return Canonical(u) }

// NullIndex returns the index of the null branch, or -1.
func (u *Union) NullIndex() int {
	for i, b := range u.Branches {
		if b.Kind() == KindNull {
			return i
		}
	}
	return -1
}

// Fixed is a named byte sequence of constant size.
type Fixed struct {
	Logical   Logical
	Name      string
	Namespace string
	Aliases   []string
	Size      int
}

func (f *Fixed) Kind() Kind       { return KindFixed }
func (f *Fixed) String() string   { return Canonical(f) }
func (f *Fixed) FullName() string { return fullName(f.Namespace, f.Name) }

// LogicalOf returns the logical annotation of s, if any.
func LogicalOf(s Schema) Logical {
	switch t := s.(type) {
	case *Primitive:
		return t.Logical
	case *Fixed:
		return t.Logical
	}
	return Logical{}
}

func fullName(namespace, name string) string {
	if namespace == "" || strings.Contains(name, ".") {
		return name
	}
	return namespace + "." + name
}
