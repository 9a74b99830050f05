package spatial

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// Volume is an axis-aligned box used as a spawn region.
type Volume struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
	MinZ float64 `yaml:"min_z"`
	MaxZ float64 `yaml:"max_z"`
}

// Valid reports whether every min is <= its max.
func (v Volume) Valid() bool {
	return v.MinX <= v.MaxX && v.MinY <= v.MaxY && v.MinZ <= v.MaxZ
}

// Contains reports whether p lies inside the box, faces included.
func (v Volume) Contains(p mgl64.Vec3) bool {
	return p[0] >= v.MinX && p[0] <= v.MaxX &&
		p[1] >= v.MinY && p[1] <= v.MaxY &&
		p[2] >= v.MinZ && p[2] <= v.MaxZ
}

// Sample draws a uniformly distributed point inside the box.
func (v Volume) Sample(rng *rand.Rand) mgl64.Vec3 {
	return mgl64.Vec3{
		rng.Float64()*(v.MaxX-v.MinX) + v.MinX,
		rng.Float64()*(v.MaxY-v.MinY) + v.MinY,
		rng.Float64()*(v.MaxZ-v.MinZ) + v.MinZ,
	}
}
