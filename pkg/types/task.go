package types

// TaskKind identifies the operation a FileTask asks the pipeline to perform.
type TaskKind string

const (
	TaskIndex  TaskKind = "index"
	TaskUpdate TaskKind = "update" // processed identically to TaskIndex
	TaskDelete TaskKind = "delete"
	TaskMove   TaskKind = "move"
)

// Valid reports whether the kind is one of the known task kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskIndex, TaskUpdate, TaskDelete, TaskMove:
		return true
	}
	return false
}

// FileTask is one unit of work for the processing pipeline. Tasks are
// created by the directory walk or the watcher adapter and consumed exactly
// once by exactly one worker. A failed task is counted and surfaced, never
// re-queued automatically.
type FileTask struct {
	Kind TaskKind
	Path string

	// Move tasks carry both endpoints; all other kinds leave these empty.
	OldPath string
	NewPath string
}

// Validate checks the task shape for its kind.
func (t FileTask) Validate() error {
	if !t.Kind.Valid() {
		return ErrUnknownTaskKind
	}
	if t.Kind == TaskMove {
		if t.OldPath == "" || t.NewPath == "" {
			return ErrIncompleteMove
		}
		return nil
	}
	if t.Path == "" {
		return ErrMissingPath
	}
	return nil
}

// Outcome classifies the result of processing a single task.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeSkipped  Outcome = "skipped"   // unchanged since last index
	OutcomeHidden   Outcome = "hidden"    // filtered by name policy
	OutcomeTooLarge Outcome = "too_large" // filtered by size policy
	OutcomeFailure  Outcome = "failure"
)

// Succeeded reports whether the outcome counts as handled at the queue
// level. Policy exclusions and no-ops are handled; only Failure is not.
func (o Outcome) Succeeded() bool {
	return o != OutcomeFailure
}
