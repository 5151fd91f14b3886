package model

// State represents the orchestration state of a single download request
type State string

const (
	// StatePending means the task is queued but no orchestrator picked it up yet
	StatePending State = "Pending"

	// StatePreparing means the destination and base engine options are being set up
	StatePreparing State = "Preparing"

	// StateResolving means the format query is being merged into engine options
	StateResolving State = "Resolving"

	// StateFetching means the engine is retrieving the primary format
	StateFetching State = "Fetching"

	// StateRetrying means the engine is retrieving the fallback format
	StateRetrying State = "Retrying"

	// StateFinalizing means the output path is being resolved
	StateFinalizing State = "Finalizing"

	// StateSucceeded means the download finished and the file path is known
	StateSucceeded State = "Succeeded"

	// StateFailed means the download ended with a classified failure
	StateFailed State = "Failed"
)

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsActive returns true while an orchestrator is working on the request
func (s State) IsActive() bool {
	switch s {
	case StatePreparing, StateResolving, StateFetching, StateRetrying, StateFinalizing:
		return true
	}
	return false
}

// IsFinished returns true for the terminal states
func (s State) IsFinished() bool {
	return s == StateSucceeded || s == StateFailed
}
