package bus

import "github.com/go-gl/mathgl/mgl64"

// Event types published by the simulation. TypeCollision carries a
// physics.CollisionEvent seen from the enemy's side.
const (
	TypeCollision         = "physics.collision"
	TypeEnemySpawned      = "enemy.spawned"
	TypeEnemyDespawned    = "enemy.despawned"
	TypeEnemyCountChanged = "enemy.count_changed"
	TypeEnemyStateChanged = "enemy.state_changed"
	TypeEffectSpawned     = "effect.spawned"
	TypeEffectRetired     = "effect.retired"
)

// EnemySpawned is the payload of TypeEnemySpawned.
type EnemySpawned struct {
	ID       string
	Position mgl64.Vec3
}

// EnemyDespawned is the payload of TypeEnemyDespawned.
type EnemyDespawned struct {
	ID     string
	Reason string
}

// EnemyCountChanged is the payload of TypeEnemyCountChanged.
type EnemyCountChanged struct {
	Count int
}

// EnemyStateChanged is the payload of TypeEnemyStateChanged.
type EnemyStateChanged struct {
	ID   string
	From string
	To   string
}

// EffectSpawned is the payload of TypeEffectSpawned.
type EffectSpawned struct {
	ID       string
	Position mgl64.Vec3
	SpeedMax float64
}

// EffectRetired is the payload of TypeEffectRetired.
type EffectRetired struct {
	ID string
}
