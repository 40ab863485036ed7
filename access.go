package record

import (
	"context"
	"sync"
	"time"
)

// Get resolves a property. A getter override registered for the property is
// always preferred over raw storage, even when the raw key also holds a
// value; without one the name is normalized for storage and the stored value
// returned. An absent key yields nil, not an error.
func (s *Store) Get(ctx context.Context, name string) (any, error) {
	if name == "" {
		return nil, invalidArgument("property name must not be empty")
	}
	key := s.shape.NormalizeStorage(name)
	start := time.Now()

	if override, ok := s.shape.Override(key); ok && override.Getter != nil {
		value, err := override.Getter(ctx, s)
		s.shape.accessLogger().LogAccess(AccessEvent{
			Op:       OpGet,
			Property: name,
			Key:      key,
			Source:   SourceOverride,
			Duration: time.Since(start),
			Err:      err,
		})
		return value, err
	}

	s.mu.RLock()
	value := s.data[key]
	s.mu.RUnlock()
	s.shape.accessLogger().LogAccess(AccessEvent{
		Op:       OpGet,
		Property: name,
		Key:      key,
		Source:   SourceStorage,
		Duration: time.Since(start),
	})
	return value, nil
}

// Set writes a single property through the pipeline: normalize, policy
// check, validator override, setter override, raw write. The policy check
// precedes validation so disallowed properties never reach user code, and
// validators run before any custom persistence logic. The written (or
// setter-returned) value is returned.
func (s *Store) Set(ctx context.Context, name string, value any) (any, error) {
	if name == "" {
		return nil, invalidArgument("property name must not be empty")
	}
	return s.setOne(ctx, name, value)
}

func (s *Store) setOne(ctx context.Context, name string, value any) (any, error) {
	key := s.shape.NormalizeStorage(name)
	start := time.Now()
	result, source, err := s.setPipeline(ctx, key, value)
	s.shape.accessLogger().LogAccess(AccessEvent{
		Op:       OpSet,
		Property: name,
		Key:      key,
		Source:   source,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) setPipeline(ctx context.Context, key string, value any) (any, string, error) {
	if !s.shape.IsAllowedProperty(key) {
		return nil, SourcePolicy, disallowedProperty(key)
	}

	override, ok := s.shape.Override(key)
	if ok && override.Validator != nil {
		if err := override.Validator(ctx, s, value); err != nil {
			return nil, SourceValidator, err
		}
	}
	if ok && override.Setter != nil {
		result, err := override.Setter(ctx, s, value)
		return result, SourceOverride, err
	}

	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return value, SourceStorage, nil
}

// SetMany applies a patch of properties. Every entry is attempted even after
// some fail; collected failures are raised once as a *BatchError after the
// whole batch has run. With zero failures the original patch is returned.
// Entries run sequentially in sorted key order, or concurrently when the
// shape was built with WithConcurrentBatch.
func (s *Store) SetMany(ctx context.Context, patch map[string]any) (map[string]any, error) {
	if patch == nil {
		return nil, invalidArgument("properties must be an object, got nil")
	}

	keys := sortedKeys(patch)
	errs := make([]error, len(keys))
	if s.shape.concurrent {
		var wg sync.WaitGroup
		for i, name := range keys {
			wg.Add(1)
			go func(i int, name string) {
				defer wg.Done()
				_, err := s.setOne(ctx, name, patch[name])
				errs[i] = err
			}(i, name)
		}
		wg.Wait()
	} else {
		for i, name := range keys {
			_, err := s.setOne(ctx, name, patch[name])
			errs[i] = err
		}
	}

	failed := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return nil, newBatchError(failed)
	}
	return patch, nil
}

// Invalidate constructs a ValidationError with the default code. It is the
// hook validator and setter overrides use to reject a value:
//
//	return nil, s.Invalidate("price must be positive", map[string]any{"price": value})
func (s *Store) Invalidate(message string, details map[string]any) error {
	return NewValidationError(message, details)
}

// Serialize produces a plain record snapshot. Every stored key is resolved
// through Get, so getter overrides are honored over raw values, and the key
// is then renamed through the serialization normalizer. Feeding the result
// into a fresh store of the same shape reproduces equivalent stored values,
// modulo deliberate renaming by the serialization normalizer.
func (s *Store) Serialize(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	out := make(map[string]any, len(keys))
	for _, key := range keys {
		value, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out[s.shape.NormalizeSerialization(key)] = value
	}
	return out, nil
}

func disallowedProperty(key string) error {
	return &ValidationError{
		Message: "property " + key + " is not allowed",
		Details: map[string]any{"property": key},
		Code:    CodeDisallowedProperty,
	}
}
