package binary

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	if r.Remaining() != 0 {
		t.Errorf("remaining: got %d, want 0", r.Remaining())
	}

	_, err := r.ReadByte()
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestReaderReadInt(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, -1},
		{[]byte{0x02}, 1},
		{[]byte{0x03}, -2},
		{[]byte{0x7f}, -64},
		{[]byte{0x80, 0x01}, 64},
		{[]byte{0xfe, 0xff, 0xff, 0xff, 0x0f}, math.MaxInt32},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, math.MinInt32},
	}

	for _, tt := range tests {
		r := NewReader(tt.encoded)
		got, err := r.ReadInt()
		if err != nil {
			t.Errorf("ReadInt(%v): %v", tt.encoded, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadInt(%v): got %d, want %d", tt.encoded, got, tt.want)
		}
	}
}

func TestReaderReadIntOverflow(t *testing.T) {
	data := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}
	r := NewReader(data)
	_, err := r.ReadInt()
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestVarintFinalByte(t *testing.T) {
	ff := func(n int, last byte) []byte {
		return append(bytes.Repeat([]byte{0xff}, n), last)
	}

	intTests := []struct {
		encoded  []byte
		want     int32
		overflow bool
	}{
		{ff(4, 0x0f), math.MinInt32, false},
		{ff(4, 0x10), 0, true},
		{ff(4, 0x7f), 0, true},
	}
	for _, tt := range intTests {
		got, err := NewReader(tt.encoded).ReadInt()
		if tt.overflow {
			if !errors.Is(err, ErrOverflow) {
				t.Errorf("ReadInt(%x): expected ErrOverflow, got %d, %v", tt.encoded, got, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ReadInt(%x) = %d, %v; want %d", tt.encoded, got, err, tt.want)
		}
	}

	longTests := []struct {
		encoded  []byte
		want     int64
		overflow bool
	}{
		{ff(9, 0x01), math.MinInt64, false},
		{ff(9, 0x02), 0, true},
		{ff(9, 0x81), 0, true},
	}
	for _, tt := range longTests {
		got, err := NewReader(tt.encoded).ReadLong()
		streamed, serr := ReadLongFrom(bytes.NewReader(tt.encoded))
		if tt.overflow {
			if !errors.Is(err, ErrOverflow) || !errors.Is(serr, ErrOverflow) {
				t.Errorf("long %x: expected ErrOverflow, got %v and %v", tt.encoded, err, serr)
			}
			continue
		}
		if err != nil || got != tt.want || serr != nil || streamed != tt.want {
			t.Errorf("long %x = %d, %v / %d, %v; want %d", tt.encoded, got, err, streamed, serr, tt.want)
		}
	}
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{0x80})
	_, err := r.ReadLong()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}

	r = NewReader([]byte{0x0a, 'a', 'b'})
	_, err = r.ReadString()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF for short string, got %v", err)
	}
}

func TestReaderNegativeLength(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.ReadBytes()
	if !errors.Is(err, ErrNegativeLength) {
		t.Errorf("expected ErrNegativeLength, got %v", err)
	}
}

func TestReaderInvalidUTF8(t *testing.T) {
	r := NewReader([]byte{0x04, 0xff, 0xfe})
	_, err := r.ReadString()
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
	var ue *UTF8Error
	if !errors.As(err, &ue) || !bytes.Equal(ue.Data, []byte{0xff, 0xfe}) {
		t.Errorf("expected UTF8Error with the string data, got %v", err)
	}
}

func TestReaderBoolean(t *testing.T) {
	r := NewReader([]byte{0x00, 0x01, 0x02})
	if v, err := r.ReadBoolean(); err != nil || v {
		t.Errorf("first boolean: %v, %v", v, err)
	}
	if v, err := r.ReadBoolean(); err != nil || !v {
		t.Errorf("second boolean: %v, %v", v, err)
	}
	if _, err := r.ReadBoolean(); err == nil {
		t.Error("expected error for boolean byte 0x02")
	}
}

func TestRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBoolean(true)
	w.WriteInt(-12345)
	w.WriteLong(math.MinInt64)
	w.WriteLong(math.MaxInt64)
	w.WriteFloat(3.5)
	w.WriteDouble(-2.25)
	w.WriteString("héllo")
	w.WriteBytes([]byte{1, 2, 3})
	w.WriteFixed([]byte{9, 9})

	r := NewReader(w.Bytes())
	if v, err := r.ReadBoolean(); err != nil || !v {
		t.Fatalf("ReadBoolean: %v, %v", v, err)
	}
	if v, err := r.ReadInt(); err != nil || v != -12345 {
		t.Fatalf("ReadInt: %v, %v", v, err)
	}
	if v, err := r.ReadLong(); err != nil || v != math.MinInt64 {
		t.Fatalf("ReadLong min: %v, %v", v, err)
	}
	if v, err := r.ReadLong(); err != nil || v != math.MaxInt64 {
		t.Fatalf("ReadLong max: %v, %v", v, err)
	}
	if v, err := r.ReadFloat(); err != nil || v != 3.5 {
		t.Fatalf("ReadFloat: %v, %v", v, err)
	}
	if v, err := r.ReadDouble(); err != nil || v != -2.25 {
		t.Fatalf("ReadDouble: %v, %v", v, err)
	}
	if v, err := r.ReadString(); err != nil || v != "héllo" {
		t.Fatalf("ReadString: %q, %v", v, err)
	}
	if v, err := r.ReadBytes(); err != nil || !bytes.Equal(v, []byte{1, 2, 3}) {
		t.Fatalf("ReadBytes: %v, %v", v, err)
	}
	if v, err := r.ReadFixed(2); err != nil || !bytes.Equal(v, []byte{9, 9}) {
		t.Fatalf("ReadFixed: %v, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("remaining: got %d, want 0", r.Remaining())
	}
}

func TestParseError(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	_, _ = r.ReadByte()
	err := r.WrapError("header", io.ErrUnexpectedEOF)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Position != 1 || pe.Section != "header" {
		t.Errorf("got position %d section %q", pe.Position, pe.Section)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("ParseError should unwrap to cause")
	}
}

func TestReadLongFrom(t *testing.T) {
	w := NewWriter()
	w.WriteLong(-300)
	w.WriteLong(1 << 40)

	r := bytes.NewReader(w.Bytes())
	if v, err := ReadLongFrom(r); err != nil || v != -300 {
		t.Fatalf("first: %d, %v", v, err)
	}
	if v, err := ReadLongFrom(r); err != nil || v != 1<<40 {
		t.Fatalf("second: %d, %v", v, err)
	}
	if _, err := ReadLongFrom(r); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}

	_, err := ReadLongFrom(bytes.NewReader([]byte{0x80}))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}
