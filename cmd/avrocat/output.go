package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/avro-derive/decode"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatCBOR = "cbor"
)

var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("avrocat: CBOR encoder initialization failed: " + err.Error())
	}
}

// render formats one datum.
func render(v decode.Value, format string, pretty bool) (string, error) {
	native := decode.Native(v)
	switch format {
	case formatYAML:
		out, err := yaml.Marshal(native)
		if err != nil {
			return "", err
		}
		return "---\n" + string(out), nil

	case formatCBOR:
		out, err := cborMode.Marshal(native)
		if err != nil {
			return "", err
		}
		if pretty {
			diag, err := cbor.Diagnose(out)
			if err != nil {
				return "", err
			}
			return diag + "\n", nil
		}
		return hex.EncodeToString(out) + "\n", nil

	default:
		var out []byte
		var err error
		if pretty {
			out, err = json.MarshalIndent(native, "", "  ")
		} else {
			out, err = json.Marshal(native)
		}
		if err != nil {
			return "", err
		}
		return string(out) + "\n", nil
	}
}

func writeAll(w io.Writer, records []decode.Value, format string, pretty bool) error {
	for i, v := range records {
		s, err := render(v, format, pretty)
		if err != nil {
			return fmt.Errorf("datum %d: %w", i, err)
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}
