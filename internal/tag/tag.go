// Package tag parses avro struct tags.
//
//	avro:"<wire name>[,factory=<name>][,state=<name>]"
//	avro:"-"
package tag

import (
	"fmt"
	"strings"
)

// Key is the struct tag key.
const Key = "avro"

// Tag is a parsed avro struct tag.
type Tag struct {
	Name    string
	Factory string
	State   string
	Skip    bool
}

// Parse parses the value of an avro struct tag. An empty value yields the
// zero Tag.
func Parse(value string) (Tag, error) {
	if value == "-" {
		return Tag{Skip: true}, nil
	}

	parts := strings.Split(value, ",")
	t := Tag{Name: strings.TrimSpace(parts[0])}
	if t.Name == "-" {
		return Tag{}, fmt.Errorf("name %q cannot carry options", t.Name)
	}

	seen := make(map[string]bool, len(parts)-1)
	for _, opt := range parts[1:] {
		key, val, ok := strings.Cut(strings.TrimSpace(opt), "=")
		if !ok {
			return Tag{}, fmt.Errorf("option %q is not key=value", opt)
		}
		if val == "" {
			return Tag{}, fmt.Errorf("option %q has an empty value", key)
		}
		if seen[key] {
			return Tag{}, fmt.Errorf("option %q repeated", key)
		}
		seen[key] = true

		switch key {
		case "factory":
			t.Factory = val
		case "state":
			t.State = val
		default:
			return Tag{}, fmt.Errorf("unknown option %q", key)
		}
	}
	return t, nil
}
