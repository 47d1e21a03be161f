package decode

import (
	stderrors "errors"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wippyai/avro-derive/errors"
	"github.com/wippyai/avro-derive/internal/binary"
	"github.com/wippyai/avro-derive/schema"
)

const pointSchema = `{
	"type": "record",
	"name": "Point",
	"fields": [
		{"name": "x", "type": "int"},
		{"name": "tags", "type": {"type": "array", "items": "string"}},
		{"name": "y", "type": "long"}
	]
}`

type point struct {
	X int32
	Y int64
}

// pointDecoder reads x and y and ignores everything else.
type pointDecoder struct{ Unexpected[point] }

func (pointDecoder) Record(a RecordAccess) (point, error) {
	var p point
	for {
		f, ok, err := a.NextField()
		if err != nil {
			return point{}, err
		}
		if !ok {
			return p, nil
		}
		switch f.Name() {
		case "x":
			if p.X, err = DecodeField[int32](f, Integer[int32]{}); err != nil {
				return point{}, err
			}
		case "y":
			if p.Y, err = DecodeField[int64](f, Integer[int64]{}); err != nil {
				return point{}, err
			}
		}
	}
}

func encodePoint(x int32, tags []string, y int64) []byte {
	w := binary.NewWriter()
	w.WriteInt(x)
	if len(tags) > 0 {
		w.WriteLong(int64(len(tags)))
		for _, t := range tags {
			w.WriteString(t)
		}
	}
	w.WriteLong(0)
	w.WriteLong(y)
	return w.Bytes()
}

func TestDecodeRecordSkipsUnreadFields(t *testing.T) {
	s := schema.MustParse(pointSchema)
	data := encodePoint(3, []string{"a", "bb"}, 7)

	got, err := Decode[point](data, s, pointDecoder{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != (point{X: 3, Y: 7}) {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	s := schema.MustParse(pointSchema)
	data := append(encodePoint(1, nil, 2), 0x00)

	_, err := Decode[point](data, s, pointDecoder{})
	if err == nil {
		t.Fatal("expected error for trailing bytes")
	}
}

func TestDatumReader(t *testing.T) {
	s := schema.MustParse(pointSchema)
	var data []byte
	data = append(data, encodePoint(1, []string{"x"}, 10)...)
	data = append(data, encodePoint(2, nil, 20)...)
	data = append(data, encodePoint(3, []string{"y", "z"}, 30)...)

	dr := NewDatumReader(data, s)
	if err := dr.SkipNext(); err != nil {
		t.Fatalf("SkipNext: %v", err)
	}

	var got []point
	for dr.More() {
		p, err := ReadNext[point](dr, pointDecoder{})
		if err != nil {
			t.Fatalf("ReadNext: %v", err)
		}
		got = append(got, p)
	}
	want := []point{{2, 20}, {3, 30}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestValueDecoderWire(t *testing.T) {
	s := schema.MustParse(`{
		"type": "record",
		"name": "All",
		"fields": [
			{"name": "n", "type": "null"},
			{"name": "b", "type": "boolean"},
			{"name": "f", "type": "float"},
			{"name": "d", "type": "double"},
			{"name": "raw", "type": "bytes"},
			{"name": "color", "type": {"type": "enum", "name": "Color", "symbols": ["RED", "GREEN"]}},
			{"name": "opt", "type": ["null", "string"]},
			{"name": "counts", "type": {"type": "map", "values": "int"}},
			{"name": "hash", "type": {"type": "fixed", "name": "Hash", "size": 2}}
		]
	}`)

	w := binary.NewWriter()
	w.WriteBoolean(true)
	w.WriteFloat(1.5)
	w.WriteDouble(-0.25)
	w.WriteBytes([]byte{0xca, 0xfe})
	w.WriteInt(1)
	w.WriteLong(1)
	w.WriteString("hi")
	w.WriteLong(1)
	w.WriteString("k")
	w.WriteInt(42)
	w.WriteLong(0)
	w.WriteFixed([]byte{0xab, 0xcd})

	v, err := Decode[Value](w.Bytes(), s, ValueDecoder{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := Record{Name: "All", Fields: []NamedValue{
		{Name: "n", Value: Null{}},
		{Name: "b", Value: Boolean(true)},
		{Name: "f", Value: Float(1.5)},
		{Name: "d", Value: Double(-0.25)},
		{Name: "raw", Value: Bytes{0xca, 0xfe}},
		{Name: "color", Value: Enum{Index: 1, Symbol: "GREEN"}},
		{Name: "opt", Value: Union{Index: 1, Value: String("hi")}},
		{Name: "counts", Value: Map{"k": Int(42)}},
		{Name: "hash", Value: Fixed{0xab, 0xcd}},
	}}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("got %#v\nwant %#v", v, want)
	}

	native := Native(v).(map[string]any)
	if native["color"] != "GREEN" || native["opt"] != "hi" || native["n"] != nil {
		t.Errorf("Native: %#v", native)
	}
}

func TestDecodeLogicalTypes(t *testing.T) {
	s := schema.MustParse(`{
		"type": "record",
		"name": "L",
		"fields": [
			{"name": "day", "type": {"type": "int", "logicalType": "date"}},
			{"name": "at", "type": {"type": "long", "logicalType": "timestamp-millis"}},
			{"name": "id", "type": {"type": "string", "logicalType": "uuid"}},
			{"name": "price", "type": {"type": "bytes", "logicalType": "decimal", "precision": 6, "scale": 2}},
			{"name": "elapsed", "type": {"type": "long", "logicalType": "time-micros"}}
		]
	}`)

	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	w := binary.NewWriter()
	w.WriteInt(19000)
	w.WriteLong(1_700_000_000_123)
	w.WriteString(id.String())
	w.WriteBytes([]byte{0xfb, 0x2e}) // -1234
	w.WriteLong(1_500_000)

	v, err := Decode[Value](w.Bytes(), s, ValueDecoder{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rec := v.(Record)

	if got := rec.Fields[0].Value.(Date).Time(); !got.Equal(time.Date(2022, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date: got %v", got)
	}
	if got := rec.Fields[1].Value.(Timestamp).Time(); got.UnixMilli() != 1_700_000_000_123 {
		t.Errorf("timestamp: got %v", got)
	}
	if got := uuid.UUID(rec.Fields[2].Value.(UUID)); got != id {
		t.Errorf("uuid: got %v", got)
	}
	dec := rec.Fields[3].Value.(Decimal)
	if dec.String() != "-12.34" || dec.Scale != 2 || dec.Precision != 6 {
		t.Errorf("decimal: got %s (scale %d precision %d)", dec, dec.Scale, dec.Precision)
	}
	if got := rec.Fields[4].Value.(TimeMicros).Duration(); got != 1500*time.Millisecond {
		t.Errorf("time-micros: got %v", got)
	}
}

func TestDecimalString(t *testing.T) {
	tests := []struct {
		unscaled int64
		scale    int
		want     string
	}{
		{0, 0, "0"},
		{5, 2, "0.05"},
		{-5, 3, "-0.005"},
		{12345, 2, "123.45"},
		{100, 0, "100"},
	}
	for _, tt := range tests {
		d := Decimal{Unscaled: big.NewInt(tt.unscaled), Scale: tt.scale}
		if got := d.String(); got != tt.want {
			t.Errorf("Decimal(%d, %d): got %q, want %q", tt.unscaled, tt.scale, got, tt.want)
		}
	}
	if got := (Decimal{Unscaled: big.NewInt(125), Scale: 2}).Rat().FloatString(2); got != "1.25" {
		t.Errorf("Rat: got %s", got)
	}
}

func TestNegativeBlockCounts(t *testing.T) {
	s := schema.MustParse(`{"type": "array", "items": "int"}`)

	w := binary.NewWriter()
	w.WriteLong(-2)
	w.WriteLong(2) // byte size of the block
	w.WriteInt(1)
	w.WriteInt(-1)
	w.WriteLong(1)
	w.WriteInt(5)
	w.WriteLong(0)

	got, err := Decode[[]int](w.Bytes(), s, List[int]{Elem: Integer[int]{}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, []int{1, -1, 5}) {
		t.Errorf("got %v", got)
	}

	// The skipper uses the block size instead of walking items.
	dr := NewDatumReader(w.Bytes(), s)
	if err := dr.SkipNext(); err != nil {
		t.Fatalf("SkipNext: %v", err)
	}
	if dr.More() {
		t.Errorf("remaining after skip: %d", dr.Remaining())
	}
}

func TestIntegerOverflow(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"int8 from 300", func() error {
			_, err := DecodeValue[int8](Int(300), Integer[int8]{})
			return err
		}},
		{"uint from -1", func() error {
			_, err := DecodeValue[uint](Long(-1), Integer[uint]{})
			return err
		}},
		{"int32 from max long", func() error {
			_, err := DecodeValue[int32](Long(math.MaxInt64), Integer[int32]{})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindOverflow {
				t.Errorf("expected overflow error, got %v", err)
			}
		})
	}

	v, err := DecodeValue[uint16](Int(65535), Integer[uint16]{})
	if err != nil || v != 65535 {
		t.Errorf("uint16: got %d, %v", v, err)
	}
}

func TestBuiltinsUnwrapUnions(t *testing.T) {
	s, err := DecodeValue[string](Union{Index: 1, Value: String("x")}, Str{})
	if err != nil || s != "x" {
		t.Errorf("Str: got %q, %v", s, err)
	}

	f, err := DecodeValue[float64](Union{Index: 0, Value: Int(2)}, FloatOf[float64]{})
	if err != nil || f != 2 {
		t.Errorf("FloatOf: got %v, %v", f, err)
	}

	_, err = DecodeValue[bool](Union{Index: 0, Value: Null{}}, Bool{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Errorf("Bool on null: got %v", err)
	}
}

func TestOptional(t *testing.T) {
	opt := Optional[string]{Elem: Str{}}

	p, err := DecodeValue[*string](Union{Index: 0, Value: Null{}}, opt)
	if err != nil || p != nil {
		t.Errorf("null branch: got %v, %v", p, err)
	}

	p, err = DecodeValue[*string](Union{Index: 1, Value: String("v")}, opt)
	if err != nil || p == nil || *p != "v" {
		t.Errorf("string branch: got %v, %v", p, err)
	}

	p, err = DecodeValue[*string](String("plain"), opt)
	if err != nil || p == nil || *p != "plain" {
		t.Errorf("plain string: got %v, %v", p, err)
	}
}

func TestMapOf(t *testing.T) {
	m, err := DecodeValue[map[string]int64](Map{"a": Long(1), "b": Int(2)}, MapOf[int64]{Elem: Integer[int64]{}})
	if err != nil {
		t.Fatalf("MapOf: %v", err)
	}
	if !reflect.DeepEqual(m, map[string]int64{"a": 1, "b": 2}) {
		t.Errorf("got %v", m)
	}
}

func TestUnexpectedShape(t *testing.T) {
	_, err := DecodeValue[point](Int(1), pointDecoder{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindUnexpectedShape {
		t.Fatalf("expected unexpected_shape, got %v", err)
	}
}

func TestFieldConsumedOnce(t *testing.T) {
	f := &Field{v: Int(1), name: "x"}
	if _, err := DecodeField[int](f, Integer[int]{}); err != nil {
		t.Fatalf("first decode: %v", err)
	}
	if _, err := DecodeField[int](f, Integer[int]{}); err == nil {
		t.Error("second decode should fail")
	}
	if !f.Consumed() {
		t.Error("field should report consumed")
	}
}

func TestMaterializedRecordOrder(t *testing.T) {
	rec := RecordOf(
		NamedValue{Name: "y", Value: Long(7)},
		NamedValue{Name: "extra", Value: Array{Int(1), Int(2)}},
		NamedValue{Name: "x", Value: Int(3)},
	)
	got, err := DecodeValue[point](rec, pointDecoder{})
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if got != (point{X: 3, Y: 7}) {
		t.Errorf("got %+v", got)
	}
}

func TestInvalidEnumIndex(t *testing.T) {
	s := schema.MustParse(`{"type": "enum", "name": "E", "symbols": ["A"]}`)
	w := binary.NewWriter()
	w.WriteInt(3)

	_, err := Decode[Value](w.Bytes(), s, ValueDecoder{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseDecode {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestTruncatedInput(t *testing.T) {
	s := schema.MustParse(pointSchema)
	data := encodePoint(1, []string{"abc"}, 2)

	_, err := Decode[point](data[:3], s, pointDecoder{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidData {
		t.Errorf("expected invalid_data, got %v", err)
	}
}

func TestInvalidUTF8String(t *testing.T) {
	w := binary.NewWriter()
	w.WriteBytes([]byte{'o', 0xff, 'k'})

	_, err := Decode[string](w.Bytes(), schema.MustParse(`"string"`), Str{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidUTF8 {
		t.Fatalf("expected invalid_utf8, got %v", err)
	}
	if !stderrors.Is(err, binary.ErrInvalidUTF8) {
		t.Errorf("cause is lost: %v", err)
	}
	if e.Detail != "invalid UTF-8 sequence: 6fff6b" {
		t.Errorf("detail = %q", e.Detail)
	}
}

func TestEraseTyped(t *testing.T) {
	erased := Erase[int32](Integer[int32]{})
	v, err := DecodeValue[any](Int(5), erased)
	if err != nil || v != int32(5) {
		t.Errorf("erased: got %v, %v", v, err)
	}

	back := Typed[int32](erased)
	if _, ok := back.(Integer[int32]); !ok {
		t.Errorf("Typed should unwrap Erase, got %T", back)
	}

	wrong := Typed[string](erased)
	_, err = DecodeValue[string](Int(5), wrong)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Errorf("expected type mismatch, got %v", err)
	}
}
