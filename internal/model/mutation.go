package model

import "github.com/google/uuid"

// Mutation is one staged change. A session accumulates mutations in issue
// order and hands the batch to the store, which applies all or none.
//
// Mutation is sealed: only the types below implement it.
type Mutation interface {
	mutation()
}

// InsertEvent creates a new event.
type InsertEvent struct {
	Event *Event
}

// InsertCatalogue creates a new catalogue.
type InsertCatalogue struct {
	Catalogue *Catalogue
}

// UpdateEvent replaces the stored state of an existing event.
type UpdateEvent struct {
	Event *Event
}

// UpdateCatalogue replaces the stored state of an existing catalogue.
type UpdateCatalogue struct {
	Catalogue *Catalogue
}

// AddMembers links events to a catalogue. Existing links are kept.
type AddMembers struct {
	Catalogue uuid.UUID
	Events    []uuid.UUID
}

func (InsertEvent) mutation()     {}
func (InsertCatalogue) mutation() {}
func (UpdateEvent) mutation()     {}
func (UpdateCatalogue) mutation() {}
func (AddMembers) mutation()      {}
