// Package enemy implements the creatures that seek the avatar, their stun
// state machine and the timer-driven spawner.
package enemy

import "fmt"

// DefaultStunDuration is how long a hand hit keeps an enemy stunned (seconds).
const DefaultStunDuration = 1.0

// Kind is the tag of the enemy state variant.
type Kind uint8

const (
	Seeking Kind = iota
	Stunned
)

func (k Kind) String() string {
	switch k {
	case Seeking:
		return "seeking"
	case Stunned:
		return "stunned"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// State is {Seeking} or {Stunned, Deadline}. Deadline is meaningful only
// while Stunned.
type State struct {
	Kind     Kind
	Deadline float64
}

// Initial is the state of a freshly spawned enemy.
func Initial() State { return State{Kind: Seeking} }

func (s State) String() string {
	if s.Kind == Stunned {
		return fmt.Sprintf("stunned(until %.3f)", s.Deadline)
	}
	return s.Kind.String()
}

// EventKind discriminates Event.
type EventKind uint8

const (
	// EventCollision is a collision against another body.
	EventCollision EventKind = iota
	// EventPoll is the coarse stun timer check.
	EventPoll
)

// Event is an input to Transition.
type Event struct {
	Kind EventKind
	// CharacterHand is set when the other body of a collision is an avatar hand.
	CharacterHand bool
}

// HandHit is a collision with an avatar hand.
func HandHit() Event { return Event{Kind: EventCollision, CharacterHand: true} }

// Bump is a collision with anything else.
func Bump() Event { return Event{Kind: EventCollision} }

// Poll is a stun timer check.
func Poll() Event { return Event{Kind: EventPoll} }

// Rules parameterise Transition.
type Rules struct {
	StunDuration float64
}

// Transition applies the default rules.
func Transition(s State, ev Event, now float64) State {
	return Rules{StunDuration: DefaultStunDuration}.Transition(s, ev, now)
}

// Transition is the enemy state machine:
//
//	Seeking + hand collision        -> Stunned{now + StunDuration}
//	Stunned + poll, now >= deadline -> Seeking
//
// Every other combination leaves the state unchanged. In particular a
// collision while stunned never extends the stun.
func (r Rules) Transition(s State, ev Event, now float64) State {
	switch s.Kind {
	case Seeking:
		if ev.Kind == EventCollision && ev.CharacterHand {
			return State{Kind: Stunned, Deadline: now + r.StunDuration}
		}
	case Stunned:
		if ev.Kind == EventPoll && now >= s.Deadline {
			return Initial()
		}
	}
	return s
}
