package scurry

import (
	"context"
	"time"
)

// EventType identifies a step of a migration run.
type EventType int

const (
	// RunStarted is emitted when Migrate begins. SetSchemaLevel reports only SchemaLevelSet.
	RunStarted EventType = iota + 1
	// LockAcquired is emitted once the history table is locked for the session.
	LockAcquired
	// HistoryValidated is emitted after the history matched the available scripts. Count is the
	// number of applied versions.
	HistoryValidated
	// PlanComputed is emitted with Count set to the number of versions to apply.
	PlanComputed
	// ScriptStarted is emitted before a script is executed.
	ScriptStarted
	// ScriptApplied is emitted after a script and its history row were recorded.
	ScriptApplied
	// ScriptFailed is emitted when a script, or recording it, failed. Err is set.
	ScriptFailed
	// RunFinished is emitted when Migrate returns. Count is the number of applied versions and Err
	// is set on failure.
	RunFinished
	// SchemaLevelSet is emitted when SetSchemaLevel rewrote the history. Count is the number of
	// rows written.
	SchemaLevelSet
)

func (t EventType) String() string {
	switch t {
	case RunStarted:
		return "run_started"
	case LockAcquired:
		return "lock_acquired"
	case HistoryValidated:
		return "history_validated"
	case PlanComputed:
		return "plan_computed"
	case ScriptStarted:
		return "script_started"
	case ScriptApplied:
		return "script_applied"
	case ScriptFailed:
		return "script_failed"
	case RunFinished:
		return "run_finished"
	case SchemaLevelSet:
		return "schema_level_set"
	default:
		return "unknown"
	}
}

// Event describes a step of a migration run.
type Event struct {
	Type EventType
	// Version and Name identify the script for script events.
	Version string
	Name    string
	Count   int
	// Duration is set on ScriptApplied, ScriptFailed, RunFinished and SchemaLevelSet.
	Duration time.Duration
	Err      error
}

// Observer receives events as a session progresses. Observe is called synchronously from the
// goroutine driving the session and must not block for long.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) Observe(ctx context.Context, e Event) { f(ctx, e) }
