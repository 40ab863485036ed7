package record

import (
	"context"
	"encoding/json"
)

// Provenance reports how one property lookup was resolved: through a getter
// override or raw storage, under which normalized key, and from which store
// snapshot.
type Provenance struct {
	Property   string `json:"property"`
	Key        string `json:"key"`
	Source     string `json:"source"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
	SnapshotID string `json:"snapshot_id,omitempty"`
}

// Trace resolves name the way Get does and returns its provenance alongside
// the value.
func (s *Store) Trace(ctx context.Context, name string) (Provenance, error) {
	if name == "" {
		return Provenance{}, invalidArgument("property name must not be empty")
	}
	key := s.shape.NormalizeStorage(name)
	prov := Provenance{
		Property:   name,
		Key:        key,
		SnapshotID: s.snapshotID,
	}

	if override, ok := s.shape.Override(key); ok && override.Getter != nil {
		value, err := override.Getter(ctx, s)
		if err != nil {
			return Provenance{}, err
		}
		prov.Source = SourceOverride
		prov.Value = value
		prov.Found = true
		return prov, nil
	}

	s.mu.RLock()
	value, found := s.data[key]
	s.mu.RUnlock()
	prov.Value = value
	prov.Found = found
	if found {
		prov.Source = SourceStorage
	} else {
		prov.Source = SourceMissing
	}
	return prov, nil
}

// ToJSON serialises the provenance for logging or transport helpers.
func (p Provenance) ToJSON() ([]byte, error) {
	type alias Provenance
	return json.Marshal(alias(p))
}

// ProvenanceFromJSON deserialises a payload previously generated via ToJSON.
func ProvenanceFromJSON(payload []byte) (Provenance, error) {
	type alias Provenance
	var prov alias
	if err := json.Unmarshal(payload, &prov); err != nil {
		return Provenance{}, err
	}
	return Provenance(prov), nil
}
