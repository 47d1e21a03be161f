package derive

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/avro-derive/decode"
	"github.com/wippyai/avro-derive/errors"
	"github.com/wippyai/avro-derive/internal/tag"
)

// Options configures a Compiler.
type Options struct {
	// Naming maps Go field names to wire names for fields whose tag does
	// not name them.
	Naming func(goName string) string

	// Logger receives plan compilation events. Nil uses the package logger.
	Logger *zap.Logger
}

// DefaultOptions returns snake_case naming and the package logger.
func DefaultOptions() Options {
	return Options{
		Naming: SnakeCase,
	}
}

// Compiler builds decoder plans for Go types and holds the registry of
// factories, state functions and decodable types they refer to. It is safe
// for concurrent use.
type Compiler struct {
	opts   Options
	logger *zap.Logger
	reg    *registry

	plans     sync.Map // reflect.Type -> *Plan
	resolved  sync.Map // reflect.Type -> *resolution
	mu        sync.Mutex
	building  map[reflect.Type]*Plan
	generated []*Plan
}

// Default is the compiler used by NewDecoder, Decode and generated code.
var Default = NewWithDefaults()

// New creates a Compiler.
func New(opts Options) *Compiler {
	if opts.Naming == nil {
		opts.Naming = SnakeCase
	}
	l := opts.Logger
	if l == nil {
		l = Logger()
	}
	return &Compiler{
		opts:   opts,
		logger: l,
		reg:    newRegistry(),
	}
}

// NewWithDefaults creates a Compiler with DefaultOptions.
func NewWithDefaults() *Compiler {
	return New(DefaultOptions())
}

// Options returns the configuration.
func (c *Compiler) Options() Options {
	return c.opts
}

// invalidate drops cached plans after a registration changed what they
// would resolve to.
func (c *Compiler) invalidate() {
	c.plans.Clear()
	c.resolved.Clear()
}

// Compile returns the plan for struct type t, building and caching it on
// first use. Self-referential types are supported.
func (c *Compiler) Compile(t reflect.Type) (*Plan, error) {
	if t == nil {
		return nil, errors.InvalidInput(errors.PhaseCompile, "type cannot be nil")
	}
	if cached, ok := c.plans.Load(t); ok {
		return cached.(*Plan), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.session(func() (*Plan, error) { return c.plan(t, nil) })
	if err != nil {
		return nil, err
	}
	return p, nil
}

// session runs build with a fresh in-progress set and publishes every plan
// it produced only if build succeeds. c.mu must be held.
func (c *Compiler) session(build func() (*Plan, error)) (*Plan, error) {
	c.building = make(map[reflect.Type]*Plan)
	c.generated = c.generated[:0]
	defer func() {
		c.building = nil
		c.generated = c.generated[:0]
	}()

	p, err := build()
	if err != nil {
		return nil, err
	}
	for _, g := range c.generated {
		c.plans.Store(g.Type, g)
		c.logger.Debug("compiled decoder plan",
			zap.String("type", g.Type.String()),
			zap.String("decoder", g.DecoderName),
			zap.Int("fields", len(g.Fields)),
		)
	}
	return p, nil
}

func (c *Compiler) plan(t reflect.Type, path []string) (*Plan, error) {
	if cached, ok := c.plans.Load(t); ok {
		return cached.(*Plan), nil
	}
	if p, ok := c.building[t]; ok {
		return p, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.TypeMismatch(errors.PhaseCompile, path, t.String(), "record")
	}

	p := &Plan{
		Type:        t,
		StateType:   unitType,
		DecoderName: t.Name() + "Decoder",
		byName:      make(map[string]int),
	}
	c.building[t] = p

	if err := c.compileFields(p, path); err != nil {
		delete(c.building, t)
		return nil, err
	}
	c.generated = append(c.generated, p)
	return p, nil
}

func (c *Compiler) compileFields(p *Plan, path []string) error {
	t := p.Type
	path = appendPath(path, t.String())

	// The state type must be known before any field checks its state func.
	marker := false
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		st, ok := markerState(sf.Type)
		if !ok {
			continue
		}
		if marker {
			return errors.InvalidAnnotation(errors.PhaseCompile, path, "more than one State marker")
		}
		marker = true
		p.StateType = st
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if _, ok := markerState(sf.Type); ok {
			continue
		}

		tg, err := tag.Parse(sf.Tag.Get(tag.Key))
		if err != nil {
			return errors.InvalidAnnotation(errors.PhaseCompile, appendPath(path, sf.Name), "%v", err)
		}
		if tg.Skip {
			continue
		}
		if sf.Anonymous {
			return errors.InvalidAnnotation(errors.PhaseCompile, appendPath(path, sf.Name),
				"embedded field %s is not supported; name it or tag it avro:\"-\"", sf.Name)
		}
		if !sf.IsExported() {
			continue
		}

		fp := FieldPlan{
			Type:      sf.Type,
			Name:      tg.Name,
			GoName:    sf.Name,
			Factory:   tg.Factory,
			StateFunc: tg.State,
			index:     i,
		}
		if fp.Name == "" {
			fp.Name = c.opts.Naming(sf.Name)
		}
		if _, dup := p.byName[fp.Name]; dup {
			return errors.InvalidAnnotation(errors.PhaseCompile, appendPath(path, sf.Name),
				"wire name %q used by more than one field", fp.Name)
		}

		if err := c.compileField(p, &fp, appendPath(path, sf.Name)); err != nil {
			return err
		}
		p.byName[fp.Name] = len(p.Fields)
		p.Fields = append(p.Fields, fp)
	}
	return nil
}

// compileField picks the strategy: factory, then exact string, then
// recursive.
func (c *Compiler) compileField(p *Plan, fp *FieldPlan, path []string) error {
	switch {
	case fp.Factory != "":
		if fp.StateFunc != "" {
			return errors.InvalidAnnotation(errors.PhaseCompile, path, "state= cannot be combined with factory=")
		}
		e, ok := c.reg.factory(fp.Factory)
		if !ok {
			return errors.InvalidAnnotation(errors.PhaseCompile, path, "unknown factory %q", fp.Factory)
		}
		if !e.typ.AssignableTo(fp.Type) {
			return errors.New(errors.PhaseCompile, errors.KindTypeMismatch).
				Path(path...).
				GoType(fp.Type.String()).
				Detail("factory %q returns %s", fp.Factory, e.typ).
				Build()
		}
		fp.Strategy = StrategyFactory
		fp.factory = e.fn
		return nil

	case fp.Type == stringType:
		if fp.StateFunc != "" {
			return errors.InvalidAnnotation(errors.PhaseCompile, path, "state= cannot be used on a string field")
		}
		fp.Strategy = StrategyString
		return nil
	}

	r, err := c.resolve(fp.Type, path)
	if err != nil {
		return err
	}
	fp.Strategy = StrategyRecursive
	fp.child = r.make

	if fp.StateFunc == "" {
		if r.state != unitType {
			return errors.InvalidAnnotation(errors.PhaseCompile, path,
				"%s decodes with state %s; add state=<func>", fp.Type, r.state)
		}
		return nil
	}

	sf, ok := c.reg.stateFunc(fp.StateFunc)
	if !ok {
		return errors.InvalidAnnotation(errors.PhaseCompile, path, "unknown state function %q", fp.StateFunc)
	}
	if !p.StateType.AssignableTo(sf.param) {
		return errors.InvalidAnnotation(errors.PhaseCompile, path,
			"state function %q takes %s, record state is %s", fp.StateFunc, sf.param, p.StateType)
	}
	if !sf.result.AssignableTo(r.state) {
		return errors.InvalidAnnotation(errors.PhaseCompile, path,
			"state function %q returns %s, %s needs %s", fp.StateFunc, sf.result, fp.Type, r.state)
	}
	fp.stateFn = sf.fn
	return nil
}

// NewRecordDecoder creates a single-use decoder for plan p. A nil state is
// accepted for plans whose state type is Unit.
func (c *Compiler) NewRecordDecoder(p *Plan, state any) (*RecordDecoder, error) {
	state, err := checkState(p.StateType, state)
	if err != nil {
		return nil, err
	}
	return newRecordDecoder(p, state), nil
}

func checkState(want reflect.Type, state any) (any, error) {
	if state == nil {
		if want == unitType {
			return Unit{}, nil
		}
		return reflect.Zero(want).Interface(), nil
	}
	rv := reflect.ValueOf(state)
	if !rv.Type().AssignableTo(want) {
		return nil, stateMismatch(want, rv.Type())
	}
	if want.Kind() == reflect.Interface || rv.Type() == want {
		return state, nil
	}
	return rv.Convert(want).Interface(), nil
}

// stateAs returns state as an S. A state of a type merely assignable to S,
// such as a named slice for its unnamed form, is converted.
func stateAs[S any](state any) (S, error) {
	if s, ok := state.(S); ok {
		return s, nil
	}
	var zero S
	if state == nil {
		return zero, nil
	}
	want := reflect.TypeFor[S]()
	rv := reflect.ValueOf(state)
	if !rv.Type().AssignableTo(want) {
		return zero, stateMismatch(want, rv.Type())
	}
	return rv.Convert(want).Interface().(S), nil
}

func stateMismatch(want, got reflect.Type) error {
	return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
		GoType(want.String()).
		Detail("decode state has type %s", got).
		Build()
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

var _ decode.Decoder[any] = (*RecordDecoder)(nil)
