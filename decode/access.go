package decode

import (
	"maps"
	"slices"
	"strconv"

	"github.com/wippyai/avro-derive/errors"
	"github.com/wippyai/avro-derive/internal/binary"
	"github.com/wippyai/avro-derive/schema"
)

// RecordAccess yields the fields of a record one at a time.
type RecordAccess interface {
	// Name is the full name of the record schema, or "" if unknown.
	Name() string

	// Path locates the record within the top-level value.
	Path() []string

	// NextField returns the next field, or ok=false at the end of the
	// record. A field the caller did not consume is skipped first.
	NextField() (f *Field, ok bool, err error)
}

// ArrayAccess yields array items one at a time.
type ArrayAccess interface {
	Next() (item *Field, ok bool, err error)
}

// MapAccess yields map entries one at a time.
type MapAccess interface {
	Next() (key string, value *Field, ok bool, err error)
}

// UnionBranch describes the selected branch of a union.
type UnionBranch struct {
	// Value is the branch datum.
	Value *Field
	// Variants are the union branch schemas; nil for materialized values.
	Variants []schema.Schema
	// Index of the selected branch.
	Index int
	// NullVariant is the index of the null branch, or -1.
	NullVariant int
}

// IsNull reports whether the null branch was selected.
func (b UnionBranch) IsNull() bool {
	return b.Index == b.NullVariant
}

// Field is a lazily decodable datum: a record field, array item, map value
// or union branch. It can be consumed once, by DecodeField or Skip.
type Field struct {
	// wire source
	r *binary.Reader
	s schema.Schema

	// materialized source
	v Value

	name     string
	path     []string
	index    int
	consumed bool
}

// Name is the field name, the map key for map values, and "" otherwise.
func (f *Field) Name() string { return f.name }

// Index is the schema field index, the item position, or the union branch.
func (f *Field) Index() int { return f.index }

// Schema is the writer schema of the datum; nil for materialized values.
func (f *Field) Schema() schema.Schema { return f.s }

// Path locates the datum within the top-level value.
func (f *Field) Path() []string { return f.path }

// Consumed reports whether the datum was already decoded or skipped.
func (f *Field) Consumed() bool { return f.consumed }

// Skip consumes the datum with the Trivial decoder.
func (f *Field) Skip() error {
	_, err := DecodeField[struct{}](f, Trivial{})
	return err
}

// DecodeField decodes f with d. The nested value is consumed completely
// even if d leaves part of it unread.
func DecodeField[T any](f *Field, d Decoder[T]) (T, error) {
	if f.consumed {
		var zero T
		return zero, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Path(f.path...).
			Detail("datum already consumed").
			Build()
	}
	f.consumed = true
	if f.r != nil {
		return decodeWire(f.r, f.s, d, f.path)
	}
	return decodeValue(f.v, d, f.path)
}

type wireRecord struct {
	r    *binary.Reader
	rec  *schema.Record
	cur  *Field
	path []string
	next int
}

func (a *wireRecord) Name() string   { return a.rec.FullName() }
func (a *wireRecord) Path() []string { return a.path }

func (a *wireRecord) NextField() (*Field, bool, error) {
	if err := skipPending(a.cur); err != nil {
		return nil, false, err
	}
	a.cur = nil
	if a.next >= len(a.rec.Fields) {
		return nil, false, nil
	}
	sf := a.rec.Fields[a.next]
	a.next++
	a.cur = &Field{r: a.r, s: sf.Type, name: sf.Name, index: sf.Index, path: appendPath(a.path, sf.Name)}
	return a.cur, true, nil
}

// wireBlocks tracks Avro blocked encoding shared by arrays and maps.
type wireBlocks struct {
	r         *binary.Reader
	cur       *Field
	path      []string
	remaining int64
	n         int
	done      bool
}

// advance reports whether another entry follows, reading a block header
// when the current block is exhausted.
func (b *wireBlocks) advance() (bool, error) {
	if err := skipPending(b.cur); err != nil {
		return false, err
	}
	b.cur = nil
	if b.done {
		return false, nil
	}
	for b.remaining == 0 {
		count, err := b.r.ReadLong()
		if err != nil {
			return false, wireError(b.path, err)
		}
		if count == 0 {
			b.done = true
			return false, nil
		}
		if count < 0 {
			if count == -count {
				return false, errors.InvalidData(errors.PhaseDecode, b.path, "block count overflows")
			}
			count = -count
			// Negative counts are followed by the block size in bytes.
			if _, err := b.r.ReadLong(); err != nil {
				return false, wireError(b.path, err)
			}
		}
		b.remaining = count
	}
	b.remaining--
	return true, nil
}

type wireArray struct {
	wireBlocks
	items schema.Schema
}

func (a *wireArray) Next() (*Field, bool, error) {
	ok, err := a.advance()
	if !ok || err != nil {
		return nil, false, err
	}
	a.cur = &Field{r: a.r, s: a.items, index: a.n, path: appendPath(a.path, "["+strconv.Itoa(a.n)+"]")}
	a.n++
	return a.cur, true, nil
}

type wireMap struct {
	wireBlocks
	values schema.Schema
}

func (a *wireMap) Next() (string, *Field, bool, error) {
	ok, err := a.advance()
	if !ok || err != nil {
		return "", nil, false, err
	}
	key, err := a.r.ReadString()
	if err != nil {
		return "", nil, false, wireError(a.path, err)
	}
	a.cur = &Field{r: a.r, s: a.values, name: key, index: a.n, path: appendPath(a.path, key)}
	a.n++
	return key, a.cur, true, nil
}

type valueRecord struct {
	rec  Record
	cur  *Field
	path []string
	next int
}

func (a *valueRecord) Name() string   { return a.rec.Name }
func (a *valueRecord) Path() []string { return a.path }

func (a *valueRecord) NextField() (*Field, bool, error) {
	if err := skipPending(a.cur); err != nil {
		return nil, false, err
	}
	a.cur = nil
	if a.next >= len(a.rec.Fields) {
		return nil, false, nil
	}
	nv := a.rec.Fields[a.next]
	a.cur = &Field{v: nv.Value, name: nv.Name, index: a.next, path: appendPath(a.path, nv.Name)}
	a.next++
	return a.cur, true, nil
}

type valueArray struct {
	items Array
	path  []string
	next  int
}

func (a *valueArray) Next() (*Field, bool, error) {
	if a.next >= len(a.items) {
		return nil, false, nil
	}
	f := &Field{v: a.items[a.next], index: a.next, path: appendPath(a.path, "["+strconv.Itoa(a.next)+"]")}
	a.next++
	return f, true, nil
}

type valueMap struct {
	m    Map
	keys []string
	path []string
	next int
}

func newValueMap(m Map, path []string) *valueMap {
	return &valueMap{m: m, keys: slices.Sorted(maps.Keys(m)), path: path}
}

func (a *valueMap) Next() (string, *Field, bool, error) {
	if a.next >= len(a.keys) {
		return "", nil, false, nil
	}
	key := a.keys[a.next]
	f := &Field{v: a.m[key], name: key, index: a.next, path: appendPath(a.path, key)}
	a.next++
	return key, f, true, nil
}

func skipPending(f *Field) error {
	if f == nil || f.consumed {
		return nil
	}
	return f.Skip()
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}
