package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/wippyai/avro-derive/errors"
)

var primitives = map[string]Kind{
	"null":    KindNull,
	"boolean": KindBoolean,
	"int":     KindInt,
	"long":    KindLong,
	"float":   KindFloat,
	"double":  KindDouble,
	"bytes":   KindBytes,
	"string":  KindString,
}

// Parse parses an Avro schema from its JSON form. Comments and trailing
// commas are tolerated. Named types may refer to themselves recursively but
// must otherwise be defined before use.
func Parse(data []byte) (Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, "decode schema JSON")
	}

	p := &parser{named: make(map[string]Named)}
	return p.parse(raw, "", nil)
}

// MustParse is like Parse but panics on error. Intended for schemas
// embedded in source code.
func MustParse(data string) Schema {
	s, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return s
}

// ParseFile reads and parses an .avsc file.
func ParseFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindNotFound, err, "read schema file "+path)
	}
	return Parse(data)
}

type parser struct {
	named map[string]Named
}

func (p *parser) errorf(path []string, format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Path(path...).
		Detail(format, args...).
		Build()
}

func (p *parser) parse(node any, ns string, path []string) (Schema, error) {
	switch v := node.(type) {
	case string:
		return p.parseRef(v, ns, path)
	case []any:
		return p.parseUnion(v, ns, path)
	case map[string]any:
		return p.parseObject(v, ns, path)
	default:
		return nil, p.errorf(path, "unexpected JSON value %v in schema", node)
	}
}

func (p *parser) parseRef(name, ns string, path []string) (Schema, error) {
	if k, ok := primitives[name]; ok {
		return &Primitive{K: k}, nil
	}
	if !strings.Contains(name, ".") && ns != "" {
		if n, ok := p.named[ns+"."+name]; ok {
			return n, nil
		}
	}
	if n, ok := p.named[name]; ok {
		return n, nil
	}
	return nil, errors.New(errors.PhaseParse, errors.KindNotFound).
		Path(path...).
		Detail("unknown type %q", name).
		Value(name).
		Build()
}

func (p *parser) parseUnion(branches []any, ns string, path []string) (Schema, error) {
	u := &Union{Branches: make([]Schema, 0, len(branches))}
	seen := make(map[string]bool, len(branches))

	for i, raw := range branches {
		b, err := p.parse(raw, ns, path)
		if err != nil {
			return nil, err
		}
		if b.Kind() == KindUnion {
			return nil, p.errorf(path, "union branch %d is itself a union", i)
		}
		key := b.Kind().String()
		if n, ok := b.(Named); ok {
			key = n.FullName()
		}
		if seen[key] {
			return nil, p.errorf(path, "union contains %s more than once", key)
		}
		seen[key] = true
		u.Branches = append(u.Branches, b)
	}
	return u, nil
}

func (p *parser) parseObject(obj map[string]any, ns string, path []string) (Schema, error) {
	t, ok := obj["type"]
	if !ok {
		return nil, p.errorf(path, "schema object has no type")
	}

	name, isName := t.(string)
	if !isName {
		// {"type": {...}} and {"type": [...]} wrap another schema.
		return p.parse(t, ns, path)
	}

	switch name {
	case "record", "error":
		return p.parseRecord(obj, ns, path)
	case "enum":
		return p.parseEnum(obj, ns, path)
	case "array":
		items, ok := obj["items"]
		if !ok {
			return nil, p.errorf(path, "array schema has no items")
		}
		s, err := p.parse(items, ns, appendPath(path, "[items]"))
		if err != nil {
			return nil, err
		}
		return &Array{Items: s}, nil
	case "map":
		values, ok := obj["values"]
		if !ok {
			return nil, p.errorf(path, "map schema has no values")
		}
		s, err := p.parse(values, ns, appendPath(path, "[values]"))
		if err != nil {
			return nil, err
		}
		return &Map{Values: s}, nil
	case "fixed":
		return p.parseFixed(obj, ns, path)
	}

	if k, ok := primitives[name]; ok {
		return &Primitive{K: k, Logical: primitiveLogical(k, obj)}, nil
	}
	return p.parseRef(name, ns, path)
}

func (p *parser) parseRecord(obj map[string]any, ns string, path []string) (Schema, error) {
	name, namespace, err := p.names(obj, ns, path)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		Name:      name,
		Namespace: namespace,
		Doc:       stringAttr(obj, "doc"),
		Aliases:   stringsAttr(obj, "aliases"),
	}
	path = appendPath(path, rec.FullName())
	if err := p.define(rec, path); err != nil {
		return nil, err
	}

	rawFields, ok := obj["fields"].([]any)
	if !ok {
		return nil, p.errorf(path, "record requires a fields array")
	}

	rec.Fields = make([]*Field, 0, len(rawFields))
	rec.index = make(map[string]int, len(rawFields))
	for i, raw := range rawFields {
		fo, ok := raw.(map[string]any)
		if !ok {
			return nil, p.errorf(path, "field %d is not an object", i)
		}
		fname, _ := fo["name"].(string)
		if !validName(fname) {
			return nil, p.errorf(path, "field %d has invalid name %q", i, fname)
		}
		if _, dup := rec.index[fname]; dup {
			return nil, p.errorf(path, "duplicate field %q", fname)
		}
		ft, ok := fo["type"]
		if !ok {
			return nil, p.errorf(appendPath(path, fname), "field has no type")
		}
		fs, err := p.parse(ft, namespace, appendPath(path, fname))
		if err != nil {
			return nil, err
		}

		field := &Field{
			Type:    fs,
			Name:    fname,
			Doc:     stringAttr(fo, "doc"),
			Aliases: stringsAttr(fo, "aliases"),
			Index:   i,
		}
		if def, ok := fo["default"]; ok {
			field.Default, err = json.Marshal(def)
			if err != nil {
				return nil, p.errorf(appendPath(path, fname), "invalid default: %v", err)
			}
		}
		rec.index[fname] = i
		rec.Fields = append(rec.Fields, field)
	}
	return rec, nil
}

func (p *parser) parseEnum(obj map[string]any, ns string, path []string) (Schema, error) {
	name, namespace, err := p.names(obj, ns, path)
	if err != nil {
		return nil, err
	}
	e := &Enum{
		Name:      name,
		Namespace: namespace,
		Doc:       stringAttr(obj, "doc"),
		Aliases:   stringsAttr(obj, "aliases"),
	}
	path = appendPath(path, e.FullName())

	rawSymbols, ok := obj["symbols"].([]any)
	if !ok {
		return nil, p.errorf(path, "enum requires a symbols array")
	}
	seen := make(map[string]bool, len(rawSymbols))
	for _, raw := range rawSymbols {
		sym, _ := raw.(string)
		if !validName(sym) {
			return nil, p.errorf(path, "invalid enum symbol %v", raw)
		}
		if seen[sym] {
			return nil, p.errorf(path, "duplicate enum symbol %q", sym)
		}
		seen[sym] = true
		e.Symbols = append(e.Symbols, sym)
	}

	if def, ok := obj["default"].(string); ok {
		if !seen[def] {
			return nil, p.errorf(path, "enum default %q is not a symbol", def)
		}
		e.Default = def
	}

	if err := p.define(e, path); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) parseFixed(obj map[string]any, ns string, path []string) (Schema, error) {
	name, namespace, err := p.names(obj, ns, path)
	if err != nil {
		return nil, err
	}
	f := &Fixed{
		Name:      name,
		Namespace: namespace,
		Aliases:   stringsAttr(obj, "aliases"),
	}
	path = appendPath(path, f.FullName())

	size, ok := intAttr(obj, "size")
	if !ok || size < 0 {
		return nil, p.errorf(path, "fixed requires a non-negative size")
	}
	f.Size = size
	f.Logical = fixedLogical(size, obj)

	if err := p.define(f, path); err != nil {
		return nil, err
	}
	return f, nil
}

// names resolves the name and namespace of a named schema. A dotted name
// carries its own namespace; otherwise an explicit namespace attribute wins
// over the enclosing one.
func (p *parser) names(obj map[string]any, ns string, path []string) (string, string, error) {
	name, _ := obj["name"].(string)
	namespace := ns
	if explicit, ok := obj["namespace"].(string); ok {
		namespace = explicit
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		namespace, name = name[:i], name[i+1:]
	}

	if !validName(name) {
		return "", "", p.errorf(path, "invalid name %q", name)
	}
	if namespace != "" {
		for _, part := range strings.Split(namespace, ".") {
			if !validName(part) {
				return "", "", p.errorf(path, "invalid namespace %q", namespace)
			}
		}
	}
	return name, namespace, nil
}

func (p *parser) define(n Named, path []string) error {
	full := n.FullName()
	if _, ok := primitives[full]; ok {
		return p.errorf(path, "cannot redefine primitive type %q", full)
	}
	if _, ok := p.named[full]; ok {
		return p.errorf(path, "type %q defined more than once", full)
	}
	p.named[full] = n
	return nil
}

func primitiveLogical(k Kind, obj map[string]any) Logical {
	name := stringAttr(obj, "logicalType")
	switch {
	case name == LogicalDecimal && k == KindBytes:
		return decimalLogical(obj, math.MaxInt32)
	case name == LogicalUUID && k == KindString:
		return Logical{Name: name}
	case (name == LogicalDate || name == LogicalTimeMillis) && k == KindInt:
		return Logical{Name: name}
	case (name == LogicalTimeMicros || name == LogicalTimestampMillis || name == LogicalTimestampMicros ||
		name == LogicalLocalTimestampMillis || name == LogicalLocalTimestampMicros) && k == KindLong:
		return Logical{Name: name}
	}
	// Unknown or misplaced logical types degrade to the underlying type.
	return Logical{}
}

func fixedLogical(size int, obj map[string]any) Logical {
	name := stringAttr(obj, "logicalType")
	switch {
	case name == LogicalDecimal:
		return decimalLogical(obj, maxDecimalPrecision(size))
	case name == LogicalDuration && size == 12:
		return Logical{Name: name}
	case name == LogicalUUID && size == 16:
		return Logical{Name: name}
	}
	return Logical{}
}

func decimalLogical(obj map[string]any, maxPrecision int) Logical {
	precision, ok := intAttr(obj, "precision")
	if !ok || precision <= 0 || precision > maxPrecision {
		return Logical{}
	}
	scale, ok := intAttr(obj, "scale")
	if !ok {
		scale = 0
	}
	if scale < 0 || scale > precision {
		return Logical{}
	}
	return Logical{Name: LogicalDecimal, Precision: precision, Scale: scale}
}

// maxDecimalPrecision is floor(log10(2^(8*size-1) - 1)).
func maxDecimalPrecision(size int) int {
	if size <= 0 {
		return 0
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(8*size-1))
	limit.Sub(limit, big.NewInt(1))
	return len(limit.String()) - 1
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func stringAttr(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func stringsAttr(obj map[string]any, key string) []string {
	raw, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intAttr(obj map[string]any, key string) (int, bool) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	if err != nil || v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return int(v), true
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}
