// Package gen generates Avro record decoders from annotated Go source.
//
// A struct type is selected by a //avro:derive line in its doc comment. Its
// fields follow the same avro struct tag grammar as package derive, except
// that factory= and state= name Go functions in the package:
//
//	factory: func(*decode.Field) (F, error)
//	state:   func(P) C
//
// A field whose type is, or wraps, an annotated record that needs state
// must name a state function. Annotated records generated in the same run
// are constructed directly, so the compiler checks the state expression.
//
// For each source file holding selected types, Generate produces one
// <file>_avro.go defining a decoder type, its constructor, a NewAvroDecoder
// method on the record type and an init function registering the decoder
// with derive.Default.
package gen

import (
	"bytes"
	"cmp"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/tools/imports"

	"github.com/wippyai/avro-derive/derive"
	"github.com/wippyai/avro-derive/errors"
	"github.com/wippyai/avro-derive/internal/tag"
)

// Directive marks a struct type for generation.
const Directive = "//avro:derive"

const (
	decodePath = "github.com/wippyai/avro-derive/decode"
	derivePath = "github.com/wippyai/avro-derive/derive"
)

// Options configures Generate.
type Options struct {
	Logger *zap.Logger
	// Naming maps Go field names to wire names for untagged fields.
	Naming func(goName string) string
	// Dir is the package directory to scan.
	Dir string
	// Suffix replaces ".go" in the generated file names.
	Suffix string
	// Types restricts generation to the named types when not empty.
	Types []string
}

// DefaultOptions returns options for the current directory.
func DefaultOptions() Options {
	return Options{
		Dir:    ".",
		Suffix: "_avro.go",
		Naming: derive.SnakeCase,
	}
}

// File is one generated output file.
type File struct {
	// Source is the path of the annotated file.
	Source string
	// Path is where the output belongs.
	Path    string
	Types   []string
	Content []byte
}

// PosError is an annotation error at a source position.
type PosError struct {
	Err error
	Pos token.Position
}

func (e *PosError) Error() string { return e.Pos.String() + ": " + e.Err.Error() }
func (e *PosError) Unwrap() error { return e.Err }

type recordSpec struct {
	Name   string
	State  string
	Fields []fieldSpec
}

type fieldSpec struct {
	GoName    string
	WireName  string
	Type      string
	Factory   string
	StateFunc string
	Strategy  derive.Strategy

	// Child is set when the field type is an annotated record of this run
	// and its decoder is constructed directly. ChildState, when set, is the
	// state type the field's state expression is checked against.
	Child      string
	ChildState string
}

// qualifiers are the names the source file gives the decode and derive
// packages.
type qualifiers struct {
	decode string
	derive string
}

type parsedFile struct {
	path  string
	ast   *ast.File
	names qualifiers

	// importErr rejects the file's decode or derive import once it holds
	// a selected type.
	importErr error
}

// annotated is an annotated record type seen anywhere in the package.
type annotated struct {
	path  string
	state string
}

type generator struct {
	opts    Options
	fset    *token.FileSet
	logger  *zap.Logger
	types   map[string]bool
	found   map[string]bool
	records map[string]annotated
}

// Generate scans the package in opts.Dir and returns the generated files
// in source file order. Nothing is written.
func Generate(opts Options) ([]File, error) {
	d := DefaultOptions()
	if opts.Dir == "" {
		opts.Dir = d.Dir
	}
	if opts.Suffix == "" {
		opts.Suffix = d.Suffix
	}
	if opts.Naming == nil {
		opts.Naming = d.Naming
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	g := &generator{
		opts:   opts,
		fset:   token.NewFileSet(),
		logger: opts.Logger,
		types:   make(map[string]bool, len(opts.Types)),
		found:   make(map[string]bool),
		records: make(map[string]annotated),
	}
	for _, t := range opts.Types {
		g.types[t] = true
	}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidInput, err, "read package directory")
	}

	var files []parsedFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") ||
			strings.HasSuffix(name, "_test.go") || strings.HasSuffix(name, opts.Suffix) {
			continue
		}
		pf, err := g.parse(filepath.Join(opts.Dir, name))
		if err != nil {
			return nil, err
		}
		files = append(files, pf)
	}
	for _, pf := range files {
		g.collect(pf)
	}

	var out []File
	for _, pf := range files {
		f, ok, err := g.file(pf)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, f)
		}
	}

	for _, t := range opts.Types {
		if !g.found[t] {
			return nil, errors.NotFound(errors.PhaseGenerate, "annotated type", t)
		}
	}
	return out, nil
}

// Write generates and writes every output file.
func Write(opts Options) ([]File, error) {
	files, err := Generate(opts)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := os.WriteFile(f.Path, f.Content, 0o644); err != nil {
			return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidInput, err, "write "+f.Path)
		}
	}
	return files, nil
}

func (g *generator) parse(path string) (parsedFile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return parsedFile{}, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidInput, err, "read "+path)
	}
	af, err := parser.ParseFile(g.fset, path, src, parser.ParseComments)
	if err != nil {
		return parsedFile{}, err
	}
	pf := parsedFile{path: path, ast: af}
	var derr, rerr error
	pf.names.decode, derr = g.importName(af, decodePath)
	pf.names.derive, rerr = g.importName(af, derivePath)
	pf.importErr = cmp.Or(derr, rerr)
	return pf, nil
}

// annotatedTypes calls fn for every type spec carrying the directive.
func annotatedTypes(af *ast.File, fn func(*ast.TypeSpec) error) error {
	for _, decl := range af.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			if !hasDirective(doc) {
				continue
			}
			if err := fn(ts); err != nil {
				return err
			}
		}
	}
	return nil
}

// collect records the state type of every annotated struct in pf.
func (g *generator) collect(pf parsedFile) {
	_ = annotatedTypes(pf.ast, func(ts *ast.TypeSpec) error {
		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return nil
		}
		a := annotated{path: pf.path}
		for _, f := range st.Fields.List {
			if s, ok := stateMarker(f.Type, pf.names.derive); ok {
				a.state = s
				break
			}
		}
		g.records[ts.Name.Name] = a
		return nil
	})
}

func (g *generator) selected(name string) bool {
	return len(g.types) == 0 || g.types[name]
}

func (g *generator) file(pf parsedFile) (File, bool, error) {
	var records []recordSpec
	err := annotatedTypes(pf.ast, func(ts *ast.TypeSpec) error {
		if !g.selected(ts.Name.Name) {
			return nil
		}
		if pf.importErr != nil {
			return pf.importErr
		}
		r, err := g.record(ts, pf)
		if err != nil {
			return err
		}
		g.found[r.Name] = true
		records = append(records, r)
		return nil
	})
	if err != nil {
		return File{}, false, err
	}
	if len(records) == 0 {
		return File{}, false, nil
	}

	path := pf.path
	out := strings.TrimSuffix(path, ".go") + g.opts.Suffix
	content, err := imports.Process(out, emit(pf, records, filepath.Base(path)), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return File{}, false, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, err, "format "+out)
	}

	f := File{Source: path, Path: out, Content: content}
	for _, r := range records {
		f.Types = append(f.Types, r.Name)
	}
	g.logger.Debug("generated decoders",
		zap.String("source", path),
		zap.Strings("types", f.Types))
	return f, true, nil
}

func hasDirective(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, c := range doc.List {
		if strings.TrimSpace(c.Text) == Directive {
			return true
		}
	}
	return false
}

// importName returns the name f uses for the package at path, or its
// default name when f does not import it.
func (g *generator) importName(f *ast.File, path string) (string, error) {
	for _, is := range f.Imports {
		p, _ := strconv.Unquote(is.Path.Value)
		if p != path {
			continue
		}
		if is.Name == nil {
			break
		}
		if n := is.Name.Name; n == "." || n == "_" {
			return "", &PosError{
				Pos: g.fset.Position(is.Pos()),
				Err: errors.InvalidAnnotation(errors.PhaseGenerate, nil, "%s import of %s is not supported", n, path),
			}
		}
		return is.Name.Name, nil
	}
	return filepath.Base(path), nil
}

func (g *generator) errorAt(pos token.Pos, path []string, format string, args ...any) error {
	return &PosError{
		Pos: g.fset.Position(pos),
		Err: errors.InvalidAnnotation(errors.PhaseGenerate, path, format, args...),
	}
}

func (g *generator) record(ts *ast.TypeSpec, pf parsedFile) (recordSpec, error) {
	deriveName := pf.names.derive
	name := ts.Name.Name
	path := []string{name}

	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		return recordSpec{}, g.errorAt(ts.Pos(), path, "%s is not a struct type", name)
	}
	if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
		return recordSpec{}, g.errorAt(ts.Pos(), path, "generic type %s is not supported", name)
	}

	r := recordSpec{Name: name, State: deriveName + ".Unit"}
	marker := false
	for _, f := range st.Fields.List {
		if s, ok := stateMarker(f.Type, deriveName); ok {
			if marker {
				return recordSpec{}, g.errorAt(f.Pos(), path, "more than one State marker")
			}
			marker = true
			r.State = s
		}
	}

	seen := make(map[string]bool)
	for _, f := range st.Fields.List {
		if _, ok := stateMarker(f.Type, deriveName); ok {
			continue
		}

		tg, err := fieldTag(f)
		if err != nil {
			return recordSpec{}, g.errorAt(f.Pos(), path, "%v", err)
		}
		if tg.Skip {
			continue
		}
		if len(f.Names) == 0 {
			return recordSpec{}, g.errorAt(f.Pos(), path,
				"embedded field %s is not supported; name it or tag it avro:\"-\"", types.ExprString(f.Type))
		}

		for _, id := range f.Names {
			if !id.IsExported() {
				continue
			}
			fpath := append(slices.Clone(path), id.Name)
			if len(f.Names) > 1 && tg.Name != "" {
				return recordSpec{}, g.errorAt(id.Pos(), fpath, "wire name %q shared by several fields", tg.Name)
			}

			fs := fieldSpec{
				GoName:    id.Name,
				WireName:  tg.Name,
				Type:      types.ExprString(f.Type),
				Factory:   tg.Factory,
				StateFunc: tg.State,
			}
			if fs.WireName == "" {
				fs.WireName = g.opts.Naming(id.Name)
			}
			if seen[fs.WireName] {
				return recordSpec{}, g.errorAt(id.Pos(), fpath, "wire name %q used by more than one field", fs.WireName)
			}
			seen[fs.WireName] = true

			switch {
			case fs.Factory != "":
				if fs.StateFunc != "" {
					return recordSpec{}, g.errorAt(id.Pos(), fpath, "state= cannot be combined with factory=")
				}
				fs.Strategy = derive.StrategyFactory
			case isString(f.Type):
				if fs.StateFunc != "" {
					return recordSpec{}, g.errorAt(id.Pos(), fpath, "state= cannot be used on a string field")
				}
				fs.Strategy = derive.StrategyString
			default:
				fs.Strategy = derive.StrategyRecursive
				if err := g.child(&fs, f.Type, pf); err != nil {
					return recordSpec{}, g.errorAt(id.Pos(), fpath, "%v", err)
				}
			}
			for _, fn := range []string{fs.Factory, fs.StateFunc} {
				if fn != "" && !token.IsIdentifier(fn) {
					return recordSpec{}, g.errorAt(id.Pos(), fpath, "%q is not a Go identifier", fn)
				}
			}
			r.Fields = append(r.Fields, fs)
		}
	}
	return r, nil
}

// child resolves a recursive field whose type is, or wraps, an annotated
// record of the package. A child that needs state must be given state=;
// the state expression is then checked by the Go compiler, either as the
// argument of the child's constructor or through derive.StateOf when the
// child's state type is spelled in the same file.
func (g *generator) child(fs *fieldSpec, expr ast.Expr, pf parsedFile) error {
	name, direct := recordName(expr)
	a, ok := g.records[name]
	if !ok {
		return nil
	}
	if a.state != "" && fs.StateFunc == "" {
		return fmt.Errorf("%s decodes with state %s; add state=<func>", name, a.state)
	}
	switch {
	case direct && g.selected(name):
		fs.Child = name
	case fs.StateFunc == "":
	case a.state == "":
		fs.ChildState = pf.names.derive + ".Unit"
	case a.path == pf.path:
		fs.ChildState = a.state
	}
	return nil
}

// recordName returns the type name under pointers, slices and maps, and
// whether expr is that name itself.
func recordName(expr ast.Expr) (string, bool) {
	direct := true
	for {
		switch e := expr.(type) {
		case *ast.Ident:
			return e.Name, direct
		case *ast.StarExpr:
			expr = e.X
		case *ast.ArrayType:
			if e.Len != nil {
				return "", false
			}
			expr = e.Elt
		case *ast.MapType:
			expr = e.Value
		default:
			return "", false
		}
		direct = false
	}
}

func fieldTag(f *ast.Field) (tag.Tag, error) {
	if f.Tag == nil {
		return tag.Tag{}, nil
	}
	raw, err := strconv.Unquote(f.Tag.Value)
	if err != nil {
		return tag.Tag{}, err
	}
	return tag.Parse(reflect.StructTag(raw).Get(tag.Key))
}

// stateMarker matches derive.State[S] and returns S.
func stateMarker(expr ast.Expr, deriveName string) (string, bool) {
	ix, ok := expr.(*ast.IndexExpr)
	if !ok || deriveName == "" {
		return "", false
	}
	sel, ok := ix.X.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "State" {
		return "", false
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok || pkg.Name != deriveName {
		return "", false
	}
	return types.ExprString(ix.Index), true
}

func isString(expr ast.Expr) bool {
	id, ok := expr.(*ast.Ident)
	return ok && id.Name == "string"
}

// emit renders the decoders for one source file. Imports of the source
// file are carried over under their own names; unused ones are pruned when
// formatting.
func emit(pf parsedFile, records []recordSpec, sourceName string) []byte {
	e := &emitter{dec: pf.names.decode, der: pf.names.derive}

	e.w("// Code generated by avroderive from %s. DO NOT EDIT.\n\n", sourceName)
	e.w("package %s\n\n", pf.ast.Name.Name)
	e.w("import (\n")
	e.importLine(e.dec, decodePath)
	e.importLine(e.der, derivePath)
	for _, is := range pf.ast.Imports {
		p, _ := strconv.Unquote(is.Path.Value)
		if p == decodePath || p == derivePath {
			continue
		}
		if is.Name != nil {
			e.w("\t%s %s\n", is.Name.Name, is.Path.Value)
		} else {
			e.w("\t%s\n", is.Path.Value)
		}
	}
	e.w(")\n")

	for _, r := range records {
		e.record(r)
	}

	e.w("\nfunc init() {\n")
	for _, r := range records {
		e.w("\t%s.RegisterDecodable(%s.Default, New%sDecoder)\n", e.der, e.der, r.Name)
	}
	e.w("}\n")
	return e.b.Bytes()
}

type emitter struct {
	b   bytes.Buffer
	dec string
	der string
}

func (e *emitter) w(format string, args ...any) { fmt.Fprintf(&e.b, format, args...) }

func (e *emitter) importLine(name, path string) {
	if name == filepath.Base(path) {
		e.w("\t%q\n", path)
		return
	}
	e.w("\t%s %q\n", name, path)
}

func (e *emitter) record(r recordSpec) {
	dec := r.Name + "Decoder"

	e.w("\n// %s decodes %s records. It is single-use.\n", dec, r.Name)
	e.w("type %s struct {\n", dec)
	e.w("\t%s.Unexpected[%s]\n", e.dec, r.Name)
	e.w("\tstate %s\n", r.State)
	for _, f := range r.Fields {
		e.w("\tslot%s %s.Slot[%s]\n", f.GoName, e.der, f.Type)
	}
	e.w("}\n\n")

	e.w("// New%s returns a decoder for one %s record.\n", dec, r.Name)
	e.w("func New%s(state %s) %s.Decoder[%s] {\n", dec, r.State, e.dec, r.Name)
	e.w("\treturn &%s{state: state}\n", dec)
	e.w("}\n\n")

	e.w("// NewAvroDecoder returns a decoder for one %s record.\n", r.Name)
	e.w("func (%s) NewAvroDecoder(state %s) %s.Decoder[%s] {\n", r.Name, r.State, e.dec, r.Name)
	e.w("\treturn New%s(state)\n", dec)
	e.w("}\n\n")

	e.w("func (d *%s) UnionBranch(b %s.UnionBranch) (%s, error) {\n", dec, e.dec, r.Name)
	e.w("\treturn %s.DecodeField[%s](b.Value, d)\n", e.dec, r.Name)
	e.w("}\n\n")

	e.w("func (d *%s) Record(a %s.RecordAccess) (%s, error) {\n", dec, e.dec, r.Name)
	e.w("\tfor {\n")
	e.w("\t\tfield, ok, err := a.NextField()\n")
	e.w("\t\tif err != nil {\n\t\t\treturn %s{}, err\n\t\t}\n", r.Name)
	e.w("\t\tif !ok {\n\t\t\tbreak\n\t\t}\n")
	e.w("\t\tswitch field.Name() {\n")
	for _, f := range r.Fields {
		e.field(r, f)
	}
	e.w("\t\tdefault:\n")
	e.w("\t\t\tif err := field.Skip(); err != nil {\n\t\t\t\treturn %s{}, err\n\t\t\t}\n", r.Name)
	e.w("\t\t}\n")
	e.w("\t}\n\n")

	e.w("\tvar out %s\n", r.Name)
	if len(r.Fields) > 0 {
		e.w("\tvar ok bool\n")
	}
	for _, f := range r.Fields {
		e.w("\tif out.%s, ok = d.slot%s.Take(); !ok {\n", f.GoName, f.GoName)
		e.w("\t\treturn %s{}, %s.MissingField(a.Path(), %q)\n", r.Name, e.der, f.WireName)
		e.w("\t}\n")
	}
	e.w("\treturn out, nil\n")
	e.w("}\n")
}

func (e *emitter) field(r recordSpec, f fieldSpec) {
	e.w("\t\tcase %q:\n", f.WireName)
	e.w("\t\t\tif d.slot%s.Filled() {\n", f.GoName)
	e.w("\t\t\t\treturn %s{}, %s.DuplicateField(a.Path(), %q)\n", r.Name, e.der, f.WireName)
	e.w("\t\t\t}\n")

	switch f.Strategy {
	case derive.StrategyFactory:
		e.w("\t\t\tv, err := %s(field)\n", f.Factory)
	case derive.StrategyString:
		e.w("\t\t\tv, err := %s.DecodeString(field)\n", e.der)
	default:
		state := e.der + ".Unit{}"
		if f.StateFunc != "" {
			state = f.StateFunc + "(d.state)"
		}
		if f.Child != "" {
			e.w("\t\t\tv, err := %s.DecodeField(field, New%sDecoder(%s))\n", e.dec, f.Child, state)
			break
		}
		if f.ChildState != "" {
			state = fmt.Sprintf("%s.StateOf[%s](%s)", e.der, f.ChildState, state)
		}
		e.w("\t\t\tdec, err := %s.DecoderFor[%s](%s.Default, %s)\n", e.der, f.Type, e.der, state)
		e.w("\t\t\tif err != nil {\n\t\t\t\treturn %s{}, err\n\t\t\t}\n", r.Name)
		e.w("\t\t\tv, err := %s.DecodeField(field, dec)\n", e.dec)
	}
	e.w("\t\t\tif err != nil {\n\t\t\t\treturn %s{}, err\n\t\t\t}\n", r.Name)
	e.w("\t\t\td.slot%s.Set(v)\n", f.GoName)
}
