package domain

import "time"

// EntityType identifies which lifecycle vocabulary an entity follows.
type EntityType string

const (
	EntityQuote      EntityType = "quote"
	EntityLesson     EntityType = "lesson"
	EntityObjective  EntityType = "objective"
	EntityHourlyRate EntityType = "hourly_rate"
)

// EntityTypes lists every entity type with a registered transition table.
var EntityTypes = []EntityType{EntityQuote, EntityLesson, EntityObjective, EntityHourlyRate}

// KnownEntityType reports whether t has a registered transition table.
func KnownEntityType(t EntityType) bool {
	_, ok := transitionsByType[t]
	return ok
}

// Status represents a lifecycle state of some entity.
type Status string

// Event represents a named action that moves an entity between statuses.
type Event string

// StatusRecord is an immutable fact: the entity held Status as of CreatedAt,
// reached by applying Event. Records accumulate; the one with the latest
// CreatedAt (ties broken by Seq) is the entity's current status. Records are
// never mutated or deleted, so a corrective change is always a new record.
type StatusRecord struct {
	ID         string
	Seq        int64 // insertion order, assigned by the store
	EntityType EntityType
	EntityID   string
	Status     Status
	Event      Event // empty on the record that opens an entity's history
	Note       string
	CreatedAt  time.Time
}
