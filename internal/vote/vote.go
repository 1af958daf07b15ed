// Package vote holds the per-user vote state machine shared by the ledger and its callers.
package vote

import (
	"errors"
	"strings"
)

type TargetType string

const (
	TargetThread TargetType = "THREAD"
	TargetPost   TargetType = "POST"
)

// State is the ledger state for one (user, target) pair. None means no row exists.
type State int

const (
	None State = 0
	Up   State = 1
	Down State = -1
)

type Action string

const (
	ActionVoted   Action = "voted"
	ActionChanged Action = "changed"
	ActionRemoved Action = "removed"
)

var (
	ErrInvalidValue      = errors.New("vote value must be 1 or -1")
	ErrInvalidTargetType = errors.New("target type must be THREAD or POST")
)

// Result is what castVote reports back to the caller.
type Result struct {
	Action        Action `json:"action"`
	PreviousValue int    `json:"previousValue"`
}

// Transition applies a vote of value to the current state.
//
//	none + v  -> v     voted
//	v    + v  -> none  removed
//	v    + -v -> -v    changed
func Transition(current State, value int) (State, Action, error) {
	if value != int(Up) && value != int(Down) {
		return current, "", ErrInvalidValue
	}
	next := State(value)
	switch current {
	case None:
		return next, ActionVoted, nil
	case next:
		return None, ActionRemoved, nil
	default:
		return next, ActionChanged, nil
	}
}

func ParseTargetType(value string) (TargetType, error) {
	switch TargetType(strings.ToUpper(strings.TrimSpace(value))) {
	case TargetThread:
		return TargetThread, nil
	case TargetPost:
		return TargetPost, nil
	default:
		return "", ErrInvalidTargetType
	}
}
