package record

import (
	"context"
	"time"
)

// Normalizer transforms a property name into a canonical key. Implementations
// must be deterministic, total, and side-effect free.
type Normalizer func(name string) string

// Getter replaces the default read for one property. It bypasses storage
// normalization entirely; implementations reach raw storage through
// Store.Raw using the shape's storage normalizer when they need it.
type Getter func(ctx context.Context, s *Store) (any, error)

// Setter replaces the default write for one property. Its result is returned
// verbatim to the caller and no raw write happens; the setter alone decides
// whether (and how) the value is persisted.
type Setter func(ctx context.Context, s *Store, value any) (any, error)

// Validator inspects a candidate value before any write. A non-nil error
// propagates unchanged and the value is never written.
type Validator func(ctx context.Context, s *Store, value any) error

// Override bundles the optional per-property behaviours registered against a
// shape. Missing slots fall through to the default pipeline.
type Override struct {
	Getter    Getter
	Setter    Setter
	Validator Validator
}

// RuleContext carries the inputs available to an expression rule.
type RuleContext struct {
	// Value is the candidate value being validated.
	Value any
	// Property is the normalized property name under validation.
	Property string
	// Record is a snapshot of the raw record, letting rules reference
	// sibling properties.
	Record map[string]any
	Now    *time.Time
	Args   map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Record == nil {
		ctx.Record = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) label() string {
	if ctx.Property != "" {
		return ctx.Property
	}
	return "unknown"
}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ShapeOption configures a Shape during construction.
type ShapeOption func(*shapeConfig)

type shapeConfig struct {
	allowed      []string
	disallowed   []string
	overrides    map[string]Override
	rules        map[string][]string
	defaults     map[string]any
	storageNorm  Normalizer
	serializNorm Normalizer
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       AccessLogger
	concurrent   bool
}

func applyShapeOptions(opts []ShapeOption) shapeConfig {
	cfg := shapeConfig{
		overrides: map[string]Override{},
		rules:     map[string][]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithAllowedProperties restricts writes to the given property names. Names
// are normalized through the shape's storage normalizer before use.
func WithAllowedProperties(names ...string) ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.allowed = append(cfg.allowed, names...)
	}
}

// WithDisallowedProperties rejects writes to the given property names. A
// disallowed name loses against any allowed list that also contains it: the
// disallow check always applies.
func WithDisallowedProperties(names ...string) ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.disallowed = append(cfg.disallowed, names...)
	}
}

// WithGetter registers a getter override for property.
func WithGetter(property string, getter Getter) ShapeOption {
	return func(cfg *shapeConfig) {
		override := cfg.overrides[property]
		override.Getter = getter
		cfg.overrides[property] = override
	}
}

// WithSetter registers a setter override for property.
func WithSetter(property string, setter Setter) ShapeOption {
	return func(cfg *shapeConfig) {
		override := cfg.overrides[property]
		override.Setter = setter
		cfg.overrides[property] = override
	}
}

// WithValidator registers a validator override for property.
func WithValidator(property string, validator Validator) ShapeOption {
	return func(cfg *shapeConfig) {
		override := cfg.overrides[property]
		override.Validator = validator
		cfg.overrides[property] = override
	}
}

// WithRule attaches an expression rule to property. Rules run before any
// validator override registered for the same property; a rule must evaluate
// to a boolean and rejects the write when it yields false.
func WithRule(property, expression string) ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.rules[property] = append(cfg.rules[property], expression)
	}
}

// WithDefaults merges the given record under any constructor data. Explicit
// constructor values win; defaults only fill missing keys.
func WithDefaults(defaults map[string]any) ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.defaults = defaults
	}
}

// WithStorageNormalizer replaces the default storage-key normalizer.
func WithStorageNormalizer(normalizer Normalizer) ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.storageNorm = normalizer
	}
}

// WithSerializationNormalizer replaces the default serialization-key
// normalizer (identity).
func WithSerializationNormalizer(normalizer Normalizer) ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.serializNorm = normalizer
	}
}

// WithRuleEvaluator configures the evaluator executing expression rules.
func WithRuleEvaluator(evaluator Evaluator) ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache registers a cache for compiled rule programs.
func WithProgramCache(cache ProgramCache) ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes registry functions to rule expressions.
func WithFunctionRegistry(registry *FunctionRegistry) ShapeOption {
	return func(cfg *shapeConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for rule expressions.
func WithCustomFunction(name string, fn Function) ShapeOption {
	return func(cfg *shapeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithAccessLogger attaches a logger receiving property access events.
func WithAccessLogger(logger AccessLogger) ShapeOption {
	return func(cfg *shapeConfig) {
		if logger == nil {
			cfg.logger = noopAccessLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithConcurrentBatch runs SetMany entries in concurrent goroutines instead
// of sequentially. Failures are reconciled only through the aggregate result;
// in-flight siblings are never cancelled when one entry fails.
func WithConcurrentBatch() ShapeOption {
	return func(cfg *shapeConfig) {
		cfg.concurrent = true
	}
}
