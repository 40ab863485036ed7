package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	record "github.com/goliatone/go-record"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one persisted snapshot for one record domain.
type Ref struct {
	Domain string
	Key    string
}

// Identifier provides the canonical storage key for a reference.
func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	if r.Key == "" {
		return "", fmt.Errorf("state: key is required")
	}
	return fmt.Sprintf("%s/%s", r.Domain, r.Key), nil
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one serialized record snapshot for a single reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot map[string]any, meta Meta) (Meta, error)
}

// Resolver orchestrates snapshot loads and turns them into record stores.
type Resolver struct {
	Store Store
	Shape *record.Shape

	// Defaults fill keys missing from the loaded snapshot, weaker than any
	// persisted value.
	Defaults map[string]any
}

// Resolve loads the snapshot for ref, merges it over Defaults, and constructs
// a store of the resolver's shape. A missing snapshot resolves to the
// defaults alone.
func (r Resolver) Resolve(ctx context.Context, ref Ref) (*record.Store, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	shape := r.shape()

	snapshot, meta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q/%q: %w", ref.Domain, ref.Key, err)
	}
	if !ok {
		snapshot = map[string]any{}
		meta = Meta{}
	}

	merged := snapshot
	if r.Defaults != nil {
		merged = record.MergeRecords(snapshot, r.Defaults)
	}
	s, err := shape.New(merged)
	if err != nil {
		return nil, meta, err
	}
	return s, meta, nil
}

// Persist serializes s and saves it under ref. When meta carries an expected
// ETag and the stored snapshot has moved past it, the save fails with
// ErrETagMismatch.
func (r Resolver) Persist(ctx context.Context, ref Ref, s *record.Store, meta Meta) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if s == nil {
		return Meta{}, fmt.Errorf("state: store instance is required")
	}

	_, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q/%q: %w", ref.Domain, ref.Key, err)
	}
	if ok && meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	snapshot, err := s.Serialize(ctx)
	if err != nil {
		return loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	if saveMeta.SnapshotID == "" {
		saveMeta.SnapshotID = s.SnapshotID()
	}
	savedMeta, err := r.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return loadedMeta, fmt.Errorf("state: save %q/%q: %w", ref.Domain, ref.Key, err)
	}
	return savedMeta, nil
}

func (r Resolver) shape() *record.Shape {
	if r.Shape != nil {
		return r.Shape
	}
	return record.NewShape()
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
