package record

import (
	"context"

	"github.com/goliatone/go-record/internal/hydrate"
)

// Hydrate serializes the store and decodes the snapshot into T. Serialization
// normalization applies first, so T's json tags should match the outward key
// form. Unknown snapshot keys are ignored.
func Hydrate[T any](ctx context.Context, s *Store) (T, error) {
	var zero T
	snapshot, err := s.Serialize(ctx)
	if err != nil {
		return zero, err
	}
	decoder := hydrate.NewDecoder[T]()
	return decoder.Decode(hydrate.Context{SnapshotID: s.SnapshotID()}, snapshot)
}

// HydrateStrict behaves like Hydrate but rejects snapshot keys that have no
// corresponding field on T.
func HydrateStrict[T any](ctx context.Context, s *Store) (T, error) {
	var zero T
	snapshot, err := s.Serialize(ctx)
	if err != nil {
		return zero, err
	}
	decoder := hydrate.NewDecoder[T](hydrate.WithDisallowUnknownFields[T]())
	return decoder.Decode(hydrate.Context{SnapshotID: s.SnapshotID()}, snapshot)
}
