package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseDecode,
				Kind:     KindTypeMismatch,
				Path:     []string{"user", "address", "zip"},
				GoType:   "string",
				AvroType: "int",
				Detail:   "cannot convert",
			},
			contains: []string{"[decode]", "type_mismatch", "user.address.zip", "string", "Avro type int", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseContainer,
				Kind:   KindInvalidData,
				Detail: "bad block",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[container]", "invalid_data", "bad block", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindFieldDuplicate,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindFieldDuplicate}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseCompile, Kind: KindFieldDuplicate}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindFieldMissing}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseDecode, Kind: KindFieldDuplicate}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseCompile, KindTypeMismatch).
		Path("user", "name").
		GoType("string").
		AvroType("int").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseCompile {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCompile)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.AvroType != "int" {
		t.Errorf("AvroType = %v, want 'int'", err.AvroType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v, want 'expected string, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("FieldMissing", func(t *testing.T) {
		err := FieldMissing(PhaseDecode, nil, "y")
		if err.Kind != KindFieldMissing {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldMissing)
		}
		if err.Detail != "field `y` not found" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("FieldDuplicate", func(t *testing.T) {
		err := FieldDuplicate(PhaseDecode, nil, "x")
		if err.Kind != KindFieldDuplicate {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldDuplicate)
		}
		if err.Detail != "field `x` found twice" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("InvalidAnnotation", func(t *testing.T) {
		err := InvalidAnnotation(PhaseCompile, []string{"Point", "X"}, "unknown key %q", "bogus")
		if err.Kind != KindInvalidAnnotation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidAnnotation)
		}
		if !strings.Contains(err.Error(), `unknown key "bogus"`) {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("UnexpectedShape", func(t *testing.T) {
		err := UnexpectedShape(nil, "array", "Point")
		if err.Kind != KindUnexpectedShape || err.Phase != PhaseDecode {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseDecode, []string{"str"}, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
	})

	t.Run("InvalidDiscriminant", func(t *testing.T) {
		err := InvalidDiscriminant(PhaseDecode, []string{"union"}, 5, 3)
		if err.Kind != KindInvalidVariant {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidVariant)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseDecode, []string{"list"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != int64(10) {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseDecode, []string{"val"}, int64(300), "uint8")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != int64(300) {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseCompile, "factory", "makeThing")
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
	})
}

func TestFieldNameHelpers(t *testing.T) {
	dup := fmt.Errorf("decode Point: %w", FieldDuplicate(PhaseDecode, nil, "x"))
	if name, ok := IsFieldDuplicate(dup); !ok || name != "x" {
		t.Errorf("IsFieldDuplicate = %q, %v", name, ok)
	}
	if _, ok := IsFieldMissing(dup); ok {
		t.Error("duplicate error reported as missing")
	}

	missing := FieldMissing(PhaseDecode, nil, "y")
	if name, ok := IsFieldMissing(missing); !ok || name != "y" {
		t.Errorf("IsFieldMissing = %q, %v", name, ok)
	}
	if _, ok := IsFieldMissing(errors.New("plain")); ok {
		t.Error("plain error reported as missing field")
	}
}
