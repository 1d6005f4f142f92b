package domain

// Quote lifecycle statuses.
const (
	QuoteCreated  Status = "created"
	QuoteAccepted Status = "accepted"
	QuoteExpired  Status = "expired"
	QuoteRejected Status = "rejected"
)

// Lesson lifecycle statuses.
const (
	LessonRequested Status = "requested"
	LessonAccepted  Status = "accepted"
	LessonRejected  Status = "rejected"
	LessonCompleted Status = "completed"
	LessonVoided    Status = "voided"
)

// Objective lifecycle statuses.
const (
	ObjectiveCreated    Status = "created"
	ObjectiveInProgress Status = "in_progress"
	ObjectiveAchieved   Status = "achieved"
	ObjectiveAbandoned  Status = "abandoned"
)

// Hourly rate lifecycle statuses.
const (
	RateActive   Status = "active"
	RateInactive Status = "inactive"
)

// Lifecycle events across all entity types.
const (
	EventAccept     Event = "accept"
	EventExpire     Event = "expire"
	EventReject     Event = "reject"
	EventRevert     Event = "revert"
	EventComplete   Event = "complete"
	EventVoid       Event = "void"
	EventStart      Event = "start"
	EventAchieve    Event = "achieve"
	EventAbandon    Event = "abandon"
	EventActivate   Event = "activate"
	EventDeactivate Event = "deactivate"
)

// Transition defines a valid state change: an event moves an entity from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// QuoteTransitions defines the quote lifecycle. Expired and rejected are
// sinks. The revert edge exists only for compensation: an accepted quote
// whose lesson could not be persisted is moved back to created.
var QuoteTransitions = []Transition{
	{Event: EventAccept, Src: QuoteCreated, Dst: QuoteAccepted},
	{Event: EventExpire, Src: QuoteCreated, Dst: QuoteExpired},
	{Event: EventReject, Src: QuoteCreated, Dst: QuoteRejected},
	{Event: EventRevert, Src: QuoteAccepted, Dst: QuoteCreated},
}

// LessonTransitions defines the lesson lifecycle, independent of the quote
// lifecycle. Completed, rejected and voided are terminal.
var LessonTransitions = []Transition{
	{Event: EventAccept, Src: LessonRequested, Dst: LessonAccepted},
	{Event: EventReject, Src: LessonRequested, Dst: LessonRejected},
	{Event: EventComplete, Src: LessonAccepted, Dst: LessonCompleted},
	{Event: EventVoid, Src: LessonAccepted, Dst: LessonVoided},
}

// ObjectiveTransitions defines the objective lifecycle.
var ObjectiveTransitions = []Transition{
	{Event: EventStart, Src: ObjectiveCreated, Dst: ObjectiveInProgress},
	{Event: EventAchieve, Src: ObjectiveInProgress, Dst: ObjectiveAchieved},
	{Event: EventAbandon, Src: ObjectiveInProgress, Dst: ObjectiveAbandoned},
}

// RateTransitions defines the hourly rate lifecycle.
var RateTransitions = []Transition{
	{Event: EventDeactivate, Src: RateActive, Dst: RateInactive},
	{Event: EventActivate, Src: RateInactive, Dst: RateActive},
}

var transitionsByType = map[EntityType][]Transition{
	EntityQuote:      QuoteTransitions,
	EntityLesson:     LessonTransitions,
	EntityObjective:  ObjectiveTransitions,
	EntityHourlyRate: RateTransitions,
}

// TransitionsFor returns the transition table for the given entity type.
// The returned slice must not be modified.
func TransitionsFor(t EntityType) []Transition {
	return transitionsByType[t]
}

// ResultingStatus returns the status an entity of type t in status current
// would reach by applying event, and whether such a transition exists.
func ResultingStatus(t EntityType, current Status, event Event) (Status, bool) {
	for _, tr := range transitionsByType[t] {
		if tr.Src == current && tr.Event == event {
			return tr.Dst, true
		}
	}
	return "", false
}

// IsValidTransition reports whether event is legal for an entity of type t
// currently in status current.
func IsValidTransition(t EntityType, current Status, event Event) bool {
	_, ok := ResultingStatus(t, current, event)
	return ok
}
