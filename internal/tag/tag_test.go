package tag

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Tag
	}{
		{"", Tag{}},
		{"-", Tag{Skip: true}},
		{"user_id", Tag{Name: "user_id"}},
		{",factory=parseColor", Tag{Factory: "parseColor"}},
		{"limits,state=childLimits", Tag{Name: "limits", State: "childLimits"}},
		{"x, factory=f, state=s", Tag{Name: "x", Factory: "f", State: "s"}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q): got %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"x,factory",
		"x,factory=",
		"x,factory=a,factory=b",
		"x,decoder=f",
		"-,state=s",
	} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}
