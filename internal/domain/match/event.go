package match

// State is a pipeline stage.
type State string

// Pipeline states in order of traversal.
const (
	StateEmbedding State = "embedding"
	StateSearching State = "searching"
	StateReranking State = "reranking"
	StateDeciding  State = "deciding"
	StateAccepted  State = "accepted"
	StateFallback  State = "fallback"
)

// EventKind is the coarse status label reported to interactive callers.
type EventKind string

// Event kinds. Done and Error are terminal.
const (
	EventSearching EventKind = "searching"
	EventReranking EventKind = "reranking"
	EventFallback  EventKind = "fallback"
	EventDone      EventKind = "done"
	EventError     EventKind = "error"
)

// Event is one progress report of a streamed match.
type Event struct {
	Kind    EventKind
	Message string
	Result  *Result
	Err     error
}

// Terminal reports whether no more events follow.
func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}
