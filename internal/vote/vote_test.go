package vote

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		name    string
		current State
		value   int
		next    State
		action  Action
	}{
		{name: "first upvote", current: None, value: 1, next: Up, action: ActionVoted},
		{name: "first downvote", current: None, value: -1, next: Down, action: ActionVoted},
		{name: "repeat upvote toggles off", current: Up, value: 1, next: None, action: ActionRemoved},
		{name: "repeat downvote toggles off", current: Down, value: -1, next: None, action: ActionRemoved},
		{name: "flip up to down", current: Up, value: -1, next: Down, action: ActionChanged},
		{name: "flip down to up", current: Down, value: 1, next: Up, action: ActionChanged},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, action, err := Transition(tc.current, tc.value)
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if next != tc.next || action != tc.action {
				t.Fatalf("Transition(%d, %d) = (%d, %q), want (%d, %q)", tc.current, tc.value, next, action, tc.next, tc.action)
			}
		})
	}
}

func TestTransitionRejectsZeroAndOutOfRange(t *testing.T) {
	for _, value := range []int{0, 2, -2} {
		next, _, err := Transition(Up, value)
		if !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("Transition(Up, %d) error = %v, want ErrInvalidValue", value, err)
		}
		if next != Up {
			t.Fatalf("state changed on invalid value: %d", next)
		}
	}
}

func TestTransitionSameValueTwiceIsNetZero(t *testing.T) {
	state := None
	score := 0
	for i := 0; i < 2; i++ {
		next, _, err := Transition(state, 1)
		if err != nil {
			t.Fatalf("Transition() error = %v", err)
		}
		score += int(next) - int(state)
		state = next
	}
	if state != None || score != 0 {
		t.Fatalf("expected pair of identical votes to cancel, state=%d score=%d", state, score)
	}
}

func TestParseTargetType(t *testing.T) {
	if got, err := ParseTargetType(" post "); err != nil || got != TargetPost {
		t.Fatalf("ParseTargetType(post) = %q, %v", got, err)
	}
	if got, err := ParseTargetType("thread"); err != nil || got != TargetThread {
		t.Fatalf("ParseTargetType(thread) = %q, %v", got, err)
	}
	if _, err := ParseTargetType("board"); !errors.Is(err, ErrInvalidTargetType) {
		t.Fatalf("expected ErrInvalidTargetType, got %v", err)
	}
}
