package fish

import (
	"fmt"
	"time"
)

// State is the health of the savings fish.
type State int

const (
	Living State = iota
	Dead
	Dying
	Improving
	Thriving
	BecomingThriving
)

// Progress thresholds, in percent of the savings goal.
const (
	DeadThreshold     = 50.0
	ThrivingThreshold = 150.0
)

// Transition durations of the transient states.
const (
	DyingDuration            = 3000 * time.Millisecond
	ImprovingDuration        = 1000 * time.Millisecond
	BecomingThrivingDuration = 3000 * time.Millisecond
)

var stateNames = map[State]string{
	Living:           "LIVING",
	Dead:             "DEAD",
	Dying:            "DYING",
	Improving:        "IMPROVING",
	Thriving:         "THRIVING",
	BecomingThriving: "BECOMING_THRIVING",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transient reports whether s has a timed successor.
func (s State) Transient() bool {
	return s == Dying || s == Improving || s == BecomingThriving
}

// SteadyState returns the steady state for a progress value.
func SteadyState(progress float64) State {
	switch {
	case progress < DeadThreshold:
		return Dead
	case progress < ThrivingThreshold:
		return Living
	default:
		return Thriving
	}
}

const (
	msgNoGoal           = "Set a savings goal to track your progress!"
	msgBecomingThriving = "Wow! Your fish is evolving as your savings excel!"
	msgDefault          = "Keep saving to maintain a healthy fish!"
)

var stateMessages = map[State]string{
	Dead:      "Your savings are dangerously low! Add more to revive your fish.",
	Dying:     "Your fish is dying! Savings have fallen below 50% of your goal.",
	Living:    "Your fish is healthy! Keep up the good work.",
	Thriving:  "Amazing! Your savings exceed 150% of your goal. Your fish is thriving!",
	Improving: "Great job! Your fish is getting healthier as you save more.",
}

// Message returns the status line shown next to the fish.
func Message(s State, goalSet bool) string {
	if !goalSet {
		return msgNoGoal
	}
	if s == BecomingThriving {
		return msgBecomingThriving
	}
	if msg, ok := stateMessages[s]; ok {
		return msg
	}
	return msgDefault
}
