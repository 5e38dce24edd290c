package jobs

import (
	"time"

	"github.com/BaSui01/technoflow/types"
)

// Outcome is the terminal result of one submission / await cycle.
//
// State tells the caller which of the four outcomes happened. Err is set only
// when State is StateFailed and carries SUBMISSION_FAILED, STATUS_QUERY_FAILED,
// GENERATION_FAILED or INVALID_REQUEST.
type Outcome struct {
	State   State
	Batch   *Batch
	Results []JobResult
	Jobs    []Job
	Elapsed time.Duration
	Queries int
	Err     *types.Error
}

// Completed reports whether every job finished.
func (o Outcome) Completed() bool { return o.State == StateCompleted }

// Code returns the error code of a failed outcome, or a code describing the
// non-error terminal states so callers can map outcomes without type switches.
func (o Outcome) Code() types.ErrorCode {
	switch o.State {
	case StateFailed:
		if o.Err != nil {
			return o.Err.Code
		}
		return types.ErrInternalError
	case StateTimedOut:
		return types.ErrTimeout
	case StateCancelled:
		return types.ErrCancelled
	default:
		return ""
	}
}

// JobIDs returns the batch identifiers, or nil when submission failed.
func (o Outcome) JobIDs() []string {
	if o.Batch == nil {
		return nil
	}
	return o.Batch.IDs()
}
