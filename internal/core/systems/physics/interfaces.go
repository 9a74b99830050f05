package physics

// Physics abstractions consumed by the simulation. Controllers issue
// commands through Engine; only the engine integrates bodies.

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrBodyExists   = errors.New("body already exists")
	ErrBodyNotFound = errors.New("body not found")
	ErrInvalidBody  = errors.New("invalid body")
)

// BodyID identifies a rigid body. Bodies are keyed by their entity id.
type BodyID string

// TagKind classifies what a body represents.
type TagKind uint8

const (
	TagUnknown TagKind = iota
	TagEnemy
	TagHand
	TagHead
	TagBody
)

func (k TagKind) String() string {
	switch k {
	case TagEnemy:
		return "enemy"
	case TagHand:
		return "hand"
	case TagHead:
		return "head"
	case TagBody:
		return "body"
	default:
		return "unknown"
	}
}

// ParseTagKind maps a collider kind name to a TagKind.
func ParseTagKind(s string) TagKind {
	switch s {
	case "enemy":
		return TagEnemy
	case "hand":
		return TagHand
	case "head":
		return TagHead
	case "body":
		return TagBody
	default:
		return TagUnknown
	}
}

// Tag is the metadata attached to a body and reported in collisions.
type Tag struct {
	Kind     TagKind
	EntityID string
	// Hand is "left" or "right" for hand colliders.
	Hand string
}

// IsCharacterHand reports whether the body is one of the avatar's hands.
func (t Tag) IsCharacterHand() bool { return t.Kind == TagHand }

// IsEnemy reports whether the body belongs to an enemy.
func (t Tag) IsEnemy() bool { return t.Kind == TagEnemy }

// BodyType controls whether Step integrates a body.
type BodyType uint8

const (
	// Kinematic bodies move with their velocity each step.
	Kinematic BodyType = iota
	// Driven bodies are positioned externally every tick and never integrated.
	Driven
)

// Body describes a sphere proxy.
type Body struct {
	ID       BodyID
	Tag      Tag
	Type     BodyType
	Radius   float64
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Velocity mgl64.Vec3
}

// CollisionEvent is reported once per body when two bodies start touching.
type CollisionEvent struct {
	Self          BodyID
	SelfTag       Tag
	Other         BodyID
	OtherTag      Tag
	ContactPoint  mgl64.Vec3
	SelfVelocity  mgl64.Vec3
	OtherVelocity mgl64.Vec3
}

// Engine is the physics collaborator. Getters report false for unknown ids.
type Engine interface {
	AddBody(b Body) error
	RemoveBody(id BodyID) error
	HasBody(id BodyID) bool

	Position(id BodyID) (mgl64.Vec3, bool)
	SetPosition(id BodyID, p mgl64.Vec3) error
	Velocity(id BodyID) (mgl64.Vec3, bool)
	SetVelocity(id BodyID, v mgl64.Vec3) error
	Rotation(id BodyID) (mgl64.Quat, bool)
	SetRotation(id BodyID, q mgl64.Quat) error

	// Step integrates kinematic bodies by dt seconds and returns the
	// collisions that began during this step.
	Step(dt float64) []CollisionEvent
}
