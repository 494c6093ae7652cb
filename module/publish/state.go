package publish

import (
	"fmt"

	"github.com/octandevelopment/mvnpub/util/common/errors"
)

// State is the stage a Publisher is in.
type State int

const (
	StateIdle State = iota
	StateAssembling
	StateSigning
	StateUploading
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAssembling:
		return "Assembling"
	case StateSigning:
		return "Signing"
	case StateUploading:
		return "Uploading"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// transitions lists the legal next states. Signing may finish a dry run.
var transitions = map[State][]State{
	StateIdle:       {StateAssembling},
	StateAssembling: {StateSigning, StateFailed},
	StateSigning:    {StateUploading, StateDone, StateFailed},
	StateUploading:  {StateDone, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: cannot move from %s to %s", errors.ErrInvalidOperation, from, to)
}
