package record

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Shape is the reusable configuration a family of stores is built from: the
// allow/disallow policy, the override registry, expression rules, and the two
// name normalizers. A Shape is configured once and shared by every store it
// creates; it is safe for concurrent use.
type Shape struct {
	allowed    map[string]struct{}
	disallowed map[string]struct{}
	overrides  map[string]Override
	defaults   map[string]any

	storageNorm  Normalizer
	serializNorm Normalizer

	mu           sync.Mutex
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       AccessLogger
	concurrent   bool
}

// NewShape builds a Shape from the supplied options. Property names used in
// policy lists, overrides, rules, and defaults are normalized through the
// final storage normalizer, so options may spell names in any convention.
func NewShape(opts ...ShapeOption) *Shape {
	cfg := applyShapeOptions(opts)

	shape := &Shape{
		storageNorm:  cfg.storageNorm,
		serializNorm: cfg.serializNorm,
		evaluator:    cfg.evaluator,
		programCache: cfg.programCache,
		functions:    cfg.functions,
		logger:       cfg.logger,
		concurrent:   cfg.concurrent,
	}
	if shape.storageNorm == nil {
		shape.storageNorm = NormalizePropertyForStorage
	}
	if shape.serializNorm == nil {
		shape.serializNorm = NormalizePropertyForSerialization
	}

	if cfg.allowed != nil {
		shape.allowed = make(map[string]struct{}, len(cfg.allowed))
		for _, name := range cfg.allowed {
			shape.allowed[shape.storageNorm(name)] = struct{}{}
		}
	}
	if cfg.disallowed != nil {
		shape.disallowed = make(map[string]struct{}, len(cfg.disallowed))
		for _, name := range cfg.disallowed {
			shape.disallowed[shape.storageNorm(name)] = struct{}{}
		}
	}

	shape.overrides = make(map[string]Override, len(cfg.overrides))
	for name, override := range cfg.overrides {
		shape.overrides[shape.storageNorm(name)] = override
	}

	// Rules run ahead of any custom validator registered for the property.
	for name, expressions := range cfg.rules {
		key := shape.storageNorm(name)
		override := shape.overrides[key]
		override.Validator = chainValidators(
			shape.ruleValidator(key, expressions),
			override.Validator,
		)
		shape.overrides[key] = override
	}

	if cfg.defaults != nil {
		shape.defaults = make(map[string]any, len(cfg.defaults))
		for name, value := range cfg.defaults {
			shape.defaults[shape.storageNorm(name)] = value
		}
	}

	return shape
}

// NormalizeStorage applies the shape's storage normalizer.
func (sh *Shape) NormalizeStorage(name string) string {
	return sh.storageNorm(name)
}

// NormalizeSerialization applies the shape's serialization normalizer.
func (sh *Shape) NormalizeSerialization(name string) string {
	return sh.serializNorm(name)
}

// IsAllowedProperty reports whether the normalized name passes the policy: a
// property is permitted iff the allowed list is unset or contains it, and the
// disallowed list is unset or does not contain it.
func (sh *Shape) IsAllowedProperty(name string) bool {
	if sh.allowed != nil {
		if _, ok := sh.allowed[name]; !ok {
			return false
		}
	}
	if sh.disallowed != nil {
		if _, ok := sh.disallowed[name]; ok {
			return false
		}
	}
	return true
}

// Override returns the override registered for the normalized name. Lookup is
// live against the registry, not cached per store.
func (sh *Shape) Override(name string) (Override, bool) {
	override, ok := sh.overrides[name]
	return override, ok
}

func (sh *Shape) accessLogger() AccessLogger {
	if sh.logger != nil {
		return sh.logger
	}
	return noopAccessLogger{}
}

// Empty constructs a store with no properties.
func (sh *Shape) Empty() *Store {
	s := &Store{
		data:       map[string]any{},
		shape:      sh,
		snapshotID: uuid.NewString(),
	}
	for key, value := range sh.defaults {
		s.data[key] = cloneRecordValue(value)
	}
	return s
}

// New constructs a store from initial data. Accepted inputs are a plain
// record (map[string]any) or another store, which is read through its public
// Serialize contract rather than its internal map. Anything else, including
// nil and slices, fails with an ArgumentError. Incoming keys are normalized
// for storage and checked against the policy; later duplicate normalized keys
// overwrite earlier ones, applied in sorted input-key order so the outcome is
// deterministic.
func (sh *Shape) New(data any) (*Store, error) {
	var source map[string]any
	switch typed := data.(type) {
	case map[string]any:
		source = typed
	case *Store:
		if typed == nil {
			return nil, invalidArgument("data must be an object, got nil store")
		}
		snapshot, err := typed.Serialize(context.Background())
		if err != nil {
			return nil, err
		}
		source = snapshot
	default:
		return nil, invalidArgument("data must be an object, got %T", data)
	}

	s := sh.Empty()
	var errs []error
	for _, name := range sortedKeys(source) {
		key := sh.storageNorm(name)
		if !sh.IsAllowedProperty(key) {
			errs = append(errs, disallowedProperty(key))
			continue
		}
		s.data[key] = source[name]
	}
	if len(errs) > 0 {
		return nil, newBatchError(errs)
	}
	return s, nil
}

// NewAll constructs one store per element. Invalid elements fail exactly like
// New; the first failure aborts the batch.
func (sh *Shape) NewAll(items []any) ([]*Store, error) {
	stores := make([]*Store, 0, len(items))
	for _, item := range items {
		s, err := sh.New(item)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, nil
}

// Store owns a normalized record and mediates every read and write between
// raw storage and the shape's override logic. The record is created at
// construction and mutated in place through the store's methods.
type Store struct {
	mu         sync.RWMutex
	data       map[string]any
	shape      *Shape
	snapshotID string
}

// New builds a one-off shape from opts and constructs a store from data.
// Shapes meant to be shared across stores should be built once with NewShape.
func New(data any, opts ...ShapeOption) (*Store, error) {
	return NewShape(opts...).New(data)
}

// Empty builds a one-off shape from opts and returns a store with no
// properties.
func Empty(opts ...ShapeOption) *Store {
	return NewShape(opts...).Empty()
}

// Raw returns the live internal record without copying. Callers extending the
// store must run names through Shape.NormalizeStorage before touching it
// directly to stay consistent with the pipeline.
func (s *Store) Raw() map[string]any {
	return s.data
}

// Shape returns the configuration the store was built from.
func (s *Store) Shape() *Shape {
	return s.shape
}

// SnapshotID identifies this store instance in traces.
func (s *Store) SnapshotID() string {
	return s.snapshotID
}

// snapshot returns a shallow copy of the raw record.
func (s *Store) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data))
	for key, value := range s.data {
		out[key] = value
	}
	return out
}

// SerializeAll serializes every store, failing with an ArgumentError when an
// element is not a store instance.
func SerializeAll(ctx context.Context, stores []*Store) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(stores))
	for i, s := range stores {
		if s == nil {
			return nil, invalidArgument("element %d is not a store instance", i)
		}
		snapshot, err := s.Serialize(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, snapshot)
	}
	return out, nil
}

func sortedKeys(record map[string]any) []string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func chainValidators(validators ...Validator) Validator {
	chain := make([]Validator, 0, len(validators))
	for _, validator := range validators {
		if validator != nil {
			chain = append(chain, validator)
		}
	}
	if len(chain) == 0 {
		return nil
	}
	if len(chain) == 1 {
		return chain[0]
	}
	return func(ctx context.Context, s *Store, value any) error {
		for _, validator := range chain {
			if err := validator(ctx, s, value); err != nil {
				return err
			}
		}
		return nil
	}
}
