package enemy

import "errors"

var (
	ErrUnknownPolicy  = errors.New("unknown despawn policy")
	ErrInvalidSpawner = errors.New("invalid spawner configuration")
	ErrNotFound       = errors.New("enemy not found")
)
