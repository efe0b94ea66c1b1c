package collection

import "fmt"

// Phase is the state of a collection run:
//
//	Pending -> Executing -> (RollingBack ->) Completing -> Finished
//
// A nested collection that succeeds goes from Executing straight to
// Finished, handing its pending actions to its parent.
type Phase int32

const (
	PhasePending Phase = iota
	PhaseExecuting
	PhaseRollingBack
	PhaseCompleting
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "Pending"
	case PhaseExecuting:
		return "Executing"
	case PhaseRollingBack:
		return "RollingBack"
	case PhaseCompleting:
		return "Completing"
	case PhaseFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}
