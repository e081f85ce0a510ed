package watcher

// EventType classifies a filesystem change.
type EventType string

const (
	EventCreated  EventType = "created"
	EventModified EventType = "modified"
	EventDeleted  EventType = "deleted"
	EventMoved    EventType = "moved"
)

// Event is one filesystem change. OldPath is set only for EventMoved and
// only when the source can pair the rename's two halves.
type Event struct {
	Type    EventType
	Path    string
	OldPath string
	IsDir   bool
}

// EventSource feeds filesystem changes to the Adapter. Implementations
// own their channels and close them from Close.
type EventSource interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}
