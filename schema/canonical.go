package schema

import (
	"strconv"
	"strings"
)

// Canonical returns the Parsing Canonical Form of s: attributes irrelevant
// to reading data are dropped, names are fully qualified, and each named
// type is written in full once and referenced by name afterwards.
func Canonical(s Schema) string {
	var b strings.Builder
	writeCanonical(&b, s, make(map[string]bool))
	return b.String()
}

func writeCanonical(b *strings.Builder, s Schema, seen map[string]bool) {
	if n, ok := s.(Named); ok {
		if seen[n.FullName()] {
			b.WriteString(strconv.Quote(n.FullName()))
			return
		}
		seen[n.FullName()] = true
	}

	switch t := s.(type) {
	case *Primitive:
		b.WriteString(strconv.Quote(t.K.String()))

	case *Record:
		b.WriteString(`{"name":`)
		b.WriteString(strconv.Quote(t.FullName()))
		b.WriteString(`,"type":"record","fields":[`)
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(`{"name":`)
			b.WriteString(strconv.Quote(f.Name))
			b.WriteString(`,"type":`)
			writeCanonical(b, f.Type, seen)
			b.WriteByte('}')
		}
		b.WriteString("]}")

	case *Enum:
		b.WriteString(`{"name":`)
		b.WriteString(strconv.Quote(t.FullName()))
		b.WriteString(`,"type":"enum","symbols":[`)
		for i, sym := range t.Symbols {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(sym))
		}
		b.WriteString("]}")

	case *Array:
		b.WriteString(`{"type":"array","items":`)
		writeCanonical(b, t.Items, seen)
		b.WriteByte('}')

	case *Map:
		b.WriteString(`{"type":"map","values":`)
		writeCanonical(b, t.Values, seen)
		b.WriteByte('}')

	case *Union:
		b.WriteByte('[')
		for i, br := range t.Branches {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, br, seen)
		}
		b.WriteByte(']')

	case *Fixed:
		b.WriteString(`{"name":`)
		b.WriteString(strconv.Quote(t.FullName()))
		b.WriteString(`,"type":"fixed","size":`)
		b.WriteString(strconv.Itoa(t.Size))
		b.WriteByte('}')
	}
}
