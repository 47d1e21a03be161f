package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/flate"

	"github.com/wippyai/avro-derive/container"
	"github.com/wippyai/avro-derive/internal/binary"
)

const sensorSchema = `{"type": "record", "name": "Reading", "namespace": "iot", "fields": [
	{"name": "sensor", "type": "string"},
	{"name": "value", "type": "long"}
]}`

type sample struct {
	sensor string
	value  int64
}

var samples = []sample{{"alpha", 1}, {"beta", 2}, {"gamma", 3}}

func datums(ss []sample) []byte {
	w := binary.NewWriter()
	for _, s := range ss {
		w.WriteString(s.sensor)
		w.WriteLong(s.value)
	}
	return w.Bytes()
}

// writeContainer writes samples as a deflate container, one block per
// blockSize datums.
func writeContainer(t *testing.T, dir string, blockSize int) string {
	t.Helper()

	sync := bytes.Repeat([]byte{0xab}, container.SyncSize)
	w := binary.NewWriter()
	w.WriteFixed(container.Magic)
	w.WriteLong(3)
	w.WriteString(container.MetaSchema)
	w.WriteBytes([]byte(sensorSchema))
	w.WriteString(container.MetaCodec)
	w.WriteBytes([]byte(container.CodecDeflate))
	w.WriteString("origin")
	w.WriteBytes([]byte("test"))
	w.WriteLong(0)
	w.WriteFixed(sync)

	for start := 0; start < len(samples); start += blockSize {
		block := samples[start:min(start+blockSize, len(samples))]
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.BestCompression)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(datums(block))
		fw.Close()

		w.WriteLong(int64(len(block)))
		w.WriteLong(int64(buf.Len()))
		w.WriteFixed(buf.Bytes())
		w.WriteFixed(sync)
	}

	path := filepath.Join(dir, "readings.avro")
	if err := os.WriteFile(path, w.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCat(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunFormats(t *testing.T) {
	dir := t.TempDir()
	path := writeContainer(t, dir, 2)

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "json",
			args: []string{path},
			check: func(t *testing.T, out string) {
				want := `{"sensor":"alpha","value":1}` + "\n" +
					`{"sensor":"beta","value":2}` + "\n" +
					`{"sensor":"gamma","value":3}` + "\n"
				if out != want {
					t.Errorf("got:\n%s\nwant:\n%s", out, want)
				}
			},
		},
		{
			name: "json sequential",
			args: []string{"--workers", "1", path},
			check: func(t *testing.T, out string) {
				if strings.Count(out, "\n") != 3 || !strings.HasPrefix(out, `{"sensor":"alpha"`) {
					t.Errorf("got:\n%s", out)
				}
			},
		},
		{
			name: "limit",
			args: []string{"--limit", "2", path},
			check: func(t *testing.T, out string) {
				if strings.Count(out, "\n") != 2 || strings.Contains(out, "gamma") {
					t.Errorf("got:\n%s", out)
				}
			},
		},
		{
			name: "pretty json",
			args: []string{"-p", "-n", "1", path},
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "\n  \"sensor\": \"alpha\"") {
					t.Errorf("got:\n%s", out)
				}
			},
		},
		{
			name: "yaml",
			args: []string{"--format", "yaml", "--limit", "1", path},
			check: func(t *testing.T, out string) {
				if out != "---\nsensor: alpha\nvalue: 1\n" {
					t.Errorf("got:\n%q", out)
				}
			},
		},
		{
			name: "cbor",
			args: []string{"-f", "cbor", "-n", "1", path},
			check: func(t *testing.T, out string) {
				raw, err := hex.DecodeString(strings.TrimSpace(out))
				if err != nil {
					t.Fatalf("not hex: %q", out)
				}
				var m map[string]any
				if err := cbor.Unmarshal(raw, &m); err != nil {
					t.Fatal(err)
				}
				if m["sensor"] != "alpha" {
					t.Errorf("decoded %v", m)
				}
			},
		},
		{
			name: "cbor diagnostic",
			args: []string{"-f", "cbor", "-p", "-n", "1", path},
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, `"sensor"`) || !strings.Contains(out, `"alpha"`) || !strings.HasPrefix(out, "{") {
					t.Errorf("got %q", out)
				}
			},
		},
		{
			name: "info",
			args: []string{"--info", path},
			check: func(t *testing.T, out string) {
				for _, want := range []string{
					"codec:       deflate",
					"schema:      iot.Reading (record)",
					"blocks:      2",
					"datums:      3",
					`meta:        origin="test"`,
					`canonical:   {"name":"iot.Reading","type":"record"`,
					"rabin:",
					"sha256:",
				} {
					if !strings.Contains(out, want) {
						t.Errorf("info lacks %q:\n%s", want, out)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCat(t, tt.args...)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			tt.check(t, out)
		})
	}
}

func TestRunRaw(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "reading.avsc", sensorSchema)
	dataPath := writeFile(t, dir, "readings.bin", string(datums(samples)))

	out, err := runCat(t, "--raw", "--schema", schemaPath, "--limit", "2", dataPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Count(out, "\n") != 2 || !strings.Contains(out, `"beta"`) {
		t.Errorf("got:\n%s", out)
	}

	out, err = runCat(t, "--raw", "--schema", schemaPath, "--info", dataPath)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "datums:      3") || !strings.Contains(out, "codec:       null") {
		t.Errorf("got:\n%s", out)
	}
}

func TestRunConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeContainer(t, dir, 3)
	yamlCfg := writeFile(t, dir, "cat.yaml", "format: yaml\nlimit: 1\n")
	tomlCfg := writeFile(t, dir, "cat.toml", "format = \"json\"\nlimit = 2\nmax_block = \"1 MiB\"\n")

	out, err := runCat(t, "--config", yamlCfg, path)
	if err != nil {
		t.Fatalf("yaml config: %v", err)
	}
	if out != "---\nsensor: alpha\nvalue: 1\n" {
		t.Errorf("yaml config output %q", out)
	}

	out, err = runCat(t, "--config", yamlCfg, "--format", "json", path)
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if out != `{"sensor":"alpha","value":1}`+"\n" {
		t.Errorf("flag did not override config: %q", out)
	}

	out, err = runCat(t, "-c", tomlCfg, path)
	if err != nil {
		t.Fatalf("toml config: %v", err)
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("toml config output %q", out)
	}
}

func TestRunUsageErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeContainer(t, dir, 3)
	badCfg := writeFile(t, dir, "bad.yaml", "max_block: lots\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no file", nil},
		{"two files", []string{path, path}},
		{"raw without schema", []string{"--raw", path}},
		{"unknown format", []string{"--format", "xml", path}},
		{"negative limit", []string{"--limit", "-1", path}},
		{"bad max_block", []string{"--config", badCfg, path}},
		{"interactive without terminal", []string{"-i", path}},
		{"unknown flag", []string{"--nope", path}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCat(t, tt.args...)
			coder, ok := err.(interface{ ExitCode() int })
			if !ok || coder.ExitCode() != 2 {
				t.Errorf("expected usage error, got %v", err)
			}
		})
	}

	if _, err := runCat(t, filepath.Join(dir, "missing.avro")); err == nil {
		t.Error("expected error for a missing file")
	}
	notAvro := writeFile(t, dir, "plain.txt", "hello")
	if _, err := runCat(t, notAvro); err == nil {
		t.Error("expected error for a non-container file")
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowserModel(t *testing.T) {
	dir := t.TempDir()
	src, err := loadContainer(context.Background(), writeContainer(t, dir, 2), loadOptions{workers: 1})
	if err != nil {
		t.Fatal(err)
	}

	m := newBrowserModel(src)
	if m.View() != "Loading..." {
		t.Errorf("view before sizing: %q", m.View())
	}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	if !strings.Contains(m.View(), "datum 1/3") || !strings.Contains(m.View(), "alpha") {
		t.Errorf("initial view:\n%s", m.View())
	}

	m.Update(key("n"))
	m.Update(key("n"))
	m.Update(key("n"))
	if m.current() != 2 {
		t.Errorf("after three next: datum %d", m.current())
	}
	m.Update(key("g"))
	if m.current() != 0 {
		t.Errorf("after first: datum %d", m.current())
	}

	m.Update(key("/"))
	if !m.filter.Focused() {
		t.Fatal("filter not focused")
	}
	for _, r := range "beta" {
		m.Update(key(string(r)))
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.matches) != 1 || m.current() != 1 {
		t.Errorf("filter matches %v, current %d", m.matches, m.current())
	}
	if !strings.Contains(m.View(), "match 1 of 1") {
		t.Errorf("filtered view:\n%s", m.View())
	}

	m.Update(key("/"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.matches) != 3 {
		t.Errorf("esc did not clear the filter: %v", m.matches)
	}

	m.Update(key("/"))
	m.filter.SetValue("nothing like this")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.current() != -1 || !strings.Contains(m.View(), "no matching datums") {
		t.Errorf("empty filter view:\n%s", m.View())
	}

	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("q did not quit")
	}
}
