// Package state defines persistence-facing contracts for loading and saving
// record snapshots, plus a small resolver that orchestrates snapshot loading
// and delegates normalization/policy to the core go-record primitives.
//
// Responsibilities:
//   - Store only loads/saves a single serialized snapshot for a single Ref.
//   - Resolver loads a snapshot, merges it over shape defaults, and builds a
//     *record.Store from the result.
//   - The core record package remains persistence-agnostic; all persistence
//     logic stays behind Store implementations supplied by consumers.
//
// Data flow:
//
//	Store -> Resolver -> record.MergeRecords(...) -> Shape.New(...) -> *record.Store
//
// Concurrency control is optimistic: Meta.ETag round-trips through Load and
// Save, and Persist rejects a save whose expected ETag no longer matches.
package state
