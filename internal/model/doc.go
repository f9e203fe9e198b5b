// Package model defines the entities managed by tscat: events, catalogues,
// their dynamic field bags and tag sets, the mutations a session hands to a
// store, and the typed errors shared by every layer.
//
// Entities are plain structs. Constructors (NewEvent, NewCatalogue) and
// Snapshot enforce the invariants; code that mutates exported fields directly
// must call Validate or Snapshot before handing the entity to a store.
package model
