package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/wippyai/avro-derive/schema"
)

func schemaName(s schema.Schema) string {
	if n, ok := s.(schema.Named); ok {
		return n.FullName() + " (" + s.Kind().String() + ")"
	}
	return s.Kind().String()
}

func writeInfo(w io.Writer, src *source) error {
	canonical := schema.Canonical(src.schema)
	sum := schema.FingerprintSHA256(src.schema)

	var b strings.Builder
	fmt.Fprintf(&b, "file:        %s\n", src.name)
	fmt.Fprintf(&b, "codec:       %s\n", src.codec)
	fmt.Fprintf(&b, "schema:      %s\n", schemaName(src.schema))
	fmt.Fprintf(&b, "rabin:       %016x\n", schema.Fingerprint64(src.schema))
	fmt.Fprintf(&b, "sha256:      %s\n", hex.EncodeToString(sum[:]))
	if src.blocks > 0 {
		fmt.Fprintf(&b, "blocks:      %s\n", humanize.Comma(int64(src.blocks)))
	}
	fmt.Fprintf(&b, "datums:      %s\n", humanize.Comma(src.datums))
	fmt.Fprintf(&b, "size:        %s on disk, %s decoded\n",
		humanize.IBytes(uint64(src.diskSize)), humanize.IBytes(uint64(src.dataSize)))

	keys := make([]string, 0, len(src.meta))
	for k := range src.meta {
		if !strings.HasPrefix(k, "avro.") {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "meta:        %s=%q\n", k, src.meta[k])
	}
	fmt.Fprintf(&b, "canonical:   %s\n", canonical)

	_, err := io.WriteString(w, b.String())
	return err
}
