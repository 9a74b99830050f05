package rig

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/spatial"
)

// NoBone marks an unresolved bone index.
const NoBone = -1

// BoneSpec is one bone as supplied by the skeleton provider.
// Rotation is an XYZ Euler triple in degrees.
type BoneSpec struct {
	Name     string     `yaml:"name"`
	Parent   string     `yaml:"parent,omitempty"`
	Position [3]float64 `yaml:"position"`
	Rotation [3]float64 `yaml:"rotation"`
}

// Bone is a node of the skeleton arena. Parent and Children are arena indices.
type Bone struct {
	Name     string
	Parent   int
	Children []int

	Local spatial.Transform
	Bind  spatial.Transform
	World spatial.Transform
}

// Skeleton owns every bone in a flat arena ordered parents-first, so a bone's
// index is always greater than its parent's.
type Skeleton struct {
	bones []Bone
	index map[string]int
	root  spatial.Transform
}

// NewSkeleton orders specs parents-first and computes the bind pose.
func NewSkeleton(specs []BoneSpec) (*Skeleton, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no bones", ErrInvalidSkeleton)
	}

	byName := make(map[string]BoneSpec, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: bone with empty name", ErrInvalidSkeleton)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate bone %q", ErrInvalidSkeleton, s.Name)
		}
		byName[s.Name] = s
	}

	sk := &Skeleton{
		bones: make([]Bone, 0, len(specs)),
		index: make(map[string]int, len(specs)),
		root:  spatial.Identity(),
	}

	// repeated sweeps place every bone whose parent is already placed
	pending := specs
	for len(pending) > 0 {
		next := pending[:0:0]
		for _, s := range pending {
			parent := NoBone
			if s.Parent != "" {
				if _, known := byName[s.Parent]; !known {
					return nil, fmt.Errorf("%w: bone %q has unknown parent %q", ErrInvalidSkeleton, s.Name, s.Parent)
				}
				idx, placed := sk.index[s.Parent]
				if !placed {
					next = append(next, s)
					continue
				}
				parent = idx
			}
			sk.add(s, parent)
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("%w: cycle involving bone %q", ErrInvalidSkeleton, next[0].Name)
		}
		pending = next
	}

	sk.UpdateWorld()
	return sk, nil
}

func (s *Skeleton) add(spec BoneSpec, parent int) {
	local := spatial.Transform{
		Position: mgl64.Vec3(spec.Position),
		Rotation: spatial.QuatFromEulerXYZ(spatial.DegreesVec(mgl64.Vec3(spec.Rotation))),
		Scale:    1,
	}
	idx := len(s.bones)
	s.bones = append(s.bones, Bone{
		Name:   spec.Name,
		Parent: parent,
		Local:  local,
		Bind:   local,
	})
	s.index[spec.Name] = idx
	if parent != NoBone {
		s.bones[parent].Children = append(s.bones[parent].Children, idx)
	}
}

// Len returns the number of bones.
func (s *Skeleton) Len() int { return len(s.bones) }

// Index resolves a bone name. Unknown names return NoBone and false.
func (s *Skeleton) Index(name string) (int, bool) {
	idx, ok := s.index[name]
	if !ok {
		return NoBone, false
	}
	return idx, true
}

// Valid reports whether i addresses a bone of this skeleton.
func (s *Skeleton) Valid(i int) bool { return i >= 0 && i < len(s.bones) }

// Bone returns a copy of bone i.
func (s *Skeleton) Bone(i int) Bone { return s.bones[i] }

// Name returns the name of bone i.
func (s *Skeleton) Name(i int) string { return s.bones[i].Name }

// Parent returns the parent index of bone i, NoBone for roots.
func (s *Skeleton) Parent(i int) int { return s.bones[i].Parent }

// World returns the cached world transform of bone i.
func (s *Skeleton) World(i int) spatial.Transform { return s.bones[i].World }

// Local returns the local transform of bone i.
func (s *Skeleton) Local(i int) spatial.Transform { return s.bones[i].Local }

// Root returns the transform that places the whole skeleton in the world.
func (s *Skeleton) Root() spatial.Transform { return s.root }

// SetRoot moves the whole skeleton and refreshes every world transform.
func (s *Skeleton) SetRoot(t spatial.Transform) {
	s.root = t
	s.UpdateWorld()
}

// SetLocalRotation writes bone i's local rotation without propagating.
func (s *Skeleton) SetLocalRotation(i int, q mgl64.Quat) {
	s.bones[i].Local.Rotation = spatial.SafeQuat(q)
}

// SetLocalPosition writes bone i's local position without propagating.
func (s *Skeleton) SetLocalPosition(i int, p mgl64.Vec3) {
	s.bones[i].Local.Position = p
}

// IsAncestor reports whether a is a strict ancestor of b.
func (s *Skeleton) IsAncestor(a, b int) bool {
	for p := s.bones[b].Parent; p != NoBone; p = s.bones[p].Parent {
		if p == a {
			return true
		}
	}
	return false
}

// UpdateWorld recomputes every world transform top-down.
func (s *Skeleton) UpdateWorld() {
	for i := range s.bones {
		s.bones[i].World = s.parentWorld(i).Compose(s.bones[i].Local)
	}
}

// UpdateWorldFrom recomputes bone i and all of its descendants.
func (s *Skeleton) UpdateWorldFrom(i int) {
	stack := []int{i}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.bones[b].World = s.parentWorld(b).Compose(s.bones[b].Local)
		stack = append(stack, s.bones[b].Children...)
	}
}

// ResetToBind restores every local transform to the bind pose.
func (s *Skeleton) ResetToBind() {
	for i := range s.bones {
		s.bones[i].Local = s.bones[i].Bind
	}
	s.UpdateWorld()
}

func (s *Skeleton) parentWorld(i int) spatial.Transform {
	if p := s.bones[i].Parent; p != NoBone {
		return s.bones[p].World
	}
	return s.root
}
