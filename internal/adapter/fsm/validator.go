package fsm

import (
	"context"
	"errors"
	"fmt"

	loopfsm "github.com/looplab/fsm"

	"github.com/lessonforge/lessonforge/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// eventsByType converts each entity type's domain transition table into
// looplab/fsm EventDesc format, consolidating transitions with the same
// event+destination into a single EventDesc with multiple source states.
var eventsByType = buildEvents()

func buildEvents() map[domain.EntityType][]loopfsm.EventDesc {
	out := make(map[domain.EntityType][]loopfsm.EventDesc, len(domain.EntityTypes))

	for _, entityType := range domain.EntityTypes {
		type key struct {
			event string
			dst   string
		}
		grouped := make(map[key][]string)
		order := make([]key, 0)

		for _, tr := range domain.TransitionsFor(entityType) {
			k := key{event: string(tr.Event), dst: string(tr.Dst)}
			if _, exists := grouped[k]; !exists {
				order = append(order, k)
			}
			grouped[k] = append(grouped[k], string(tr.Src))
		}

		descs := make([]loopfsm.EventDesc, 0, len(order))
		for _, k := range order {
			descs = append(descs, loopfsm.EventDesc{
				Name: k.event,
				Src:  grouped[k],
				Dst:  k.dst,
			})
		}
		out[entityType] = descs
	}

	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per Apply call, initialized with the
// entity's current status. This is necessary because looplab/fsm is stateful
// (it tracks the current state internally).
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Apply checks if event is valid for an entity of the given type in status
// current, and returns the destination status. Returns a
// domain.TransitionError if the transition is not allowed.
func (v *Validator) Apply(ctx context.Context, entityType domain.EntityType, current domain.Status, event domain.Event) (domain.Status, error) {
	events, ok := eventsByType[entityType]
	if !ok {
		return "", fmt.Errorf("no transition table for entity type %q", entityType)
	}

	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{
				EntityType: entityType,
				Event:      event,
				Current:    current,
			}
		}
		return "", err
	}

	return domain.Status(machine.Current()), nil
}
