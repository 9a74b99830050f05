package rig

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/spatial"
)

// Solver mutates the local rotations of a chain's links so the effector
// approaches target (world space).
type Solver interface {
	SolveChain(sk *Skeleton, chain *Chain, target mgl64.Vec3)
}

// TargetSource supplies the IK target pose for a named slot, expressed in
// the rig root's space. ok is false while a slot has never been written.
type TargetSource interface {
	Target(slot string) (pose spatial.Pose, ok bool)
}

// Collider is a sphere attached to a bone.
type Collider struct {
	Name   string
	Bone   int
	Offset mgl64.Vec3
	Radius float64
	Kind   string
	Hand   string
}

// ColliderPose is a collider's world placement for the current tick.
type ColliderPose struct {
	Collider
	Position mgl64.Vec3
}

// Options tunes the driven bones.
type Options struct {
	// HeadYawOffset is pre-multiplied onto the head orientation (radians).
	HeadYawOffset float64
	Root          spatial.Transform
}

// AvatarRig owns the skeleton, its IK chains and its body colliders. It is
// the only writer of bone transforms.
type AvatarRig struct {
	name      string
	skeleton  *Skeleton
	chains    []Chain
	colliders []Collider

	head      int
	waist     int
	waistBind mgl64.Vec3
	waistYaw  float64
	headYaw   float64

	logger log.Log
}

// New builds a rig from a descriptor. Only a broken skeleton is an error:
// unresolved chain, head, waist or collider bones disable that feature for
// the session and are logged once.
func New(desc *Descriptor, opts Options, logger log.Log) (*AvatarRig, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	sk, err := NewSkeleton(desc.Skeleton)
	if err != nil {
		return nil, err
	}

	r := &AvatarRig{
		name:     desc.Name,
		skeleton: sk,
		head:     NoBone,
		waist:    NoBone,
		headYaw:  opts.HeadYawOffset,
		logger:   logger.With(log.String("rig", desc.Name)),
	}

	for _, cd := range desc.Chains {
		c, cerr := resolveChain(sk, cd)
		if cerr != nil {
			r.logger.Warn("ik chain disabled", log.String("chain", cd.Name), log.Error(cerr))
		}
		r.chains = append(r.chains, c)
	}

	if desc.Head != nil {
		r.head = r.resolveDriven("head", desc.Head.Bone)
	}
	if desc.Waist != nil {
		r.waist = r.resolveDriven("waist", desc.Waist.Bone)
		if r.waist != NoBone {
			r.waistBind = spatial.EulerXYZ(sk.Local(r.waist).Rotation)
		}
	}

	for _, cd := range desc.Colliders {
		idx, ok := sk.Index(cd.Bone)
		if !ok {
			r.logger.Warn("collider disabled", log.String("collider", cd.Name), log.String("bone", cd.Bone))
			continue
		}
		r.colliders = append(r.colliders, Collider{
			Name:   cd.Name,
			Bone:   idx,
			Offset: mgl64.Vec3(cd.Offset),
			Radius: cd.Radius,
			Kind:   cd.Kind,
			Hand:   cd.Hand,
		})
	}

	root := opts.Root
	if root == (spatial.Transform{}) {
		root = spatial.Identity()
	}
	sk.SetRoot(root)
	return r, nil
}

func (r *AvatarRig) resolveDriven(role, bone string) int {
	idx, ok := r.skeleton.Index(bone)
	if !ok {
		r.logger.Warn("driven bone missing", log.String("role", role), log.String("bone", bone))
		return NoBone
	}
	return idx
}

// Name returns the descriptor name.
func (r *AvatarRig) Name() string { return r.name }

// Skeleton exposes the bone arena for read access.
func (r *AvatarRig) Skeleton() *Skeleton { return r.skeleton }

// Chains returns the resolved chains, disabled ones included.
func (r *AvatarRig) Chains() []Chain { return r.chains }

// Chain looks a chain up by name.
func (r *AvatarRig) Chain(name string) (Chain, bool) {
	for _, c := range r.chains {
		if c.Name == name {
			return c, true
		}
	}
	return Chain{}, false
}

// BoneWorldTransform returns the cached world transform of a named bone.
// Callers treat ErrBoneNotFound as "feature unavailable this frame".
func (r *AvatarRig) BoneWorldTransform(name string) (spatial.Transform, error) {
	idx, ok := r.skeleton.Index(name)
	if !ok {
		return spatial.Transform{}, fmt.Errorf("%w: %s", ErrBoneNotFound, name)
	}
	return r.skeleton.World(idx), nil
}

// RootTransform returns the placement of the rig in the world.
func (r *AvatarRig) RootTransform() spatial.Transform { return r.skeleton.Root() }

// SetRootTransform moves the whole avatar.
func (r *AvatarRig) SetRootTransform(t spatial.Transform) { r.skeleton.SetRoot(t) }

// SetScale changes the avatar's uniform model scale.
func (r *AvatarRig) SetScale(scale float64) {
	root := r.skeleton.Root()
	root.Scale = scale
	r.skeleton.SetRoot(root)
}

// SetWaistYaw replaces the waist's Y Euler angle, keeping its bind X and Z.
func (r *AvatarRig) SetWaistYaw(yaw float64) {
	r.waistYaw = yaw
	if r.waist == NoBone {
		return
	}
	e := r.waistBind
	e[1] = yaw
	r.skeleton.SetLocalRotation(r.waist, spatial.QuatFromEulerXYZ(e))
	r.skeleton.UpdateWorldFrom(r.waist)
}

// AddWaistYaw steers the torso by delta radians.
func (r *AvatarRig) AddWaistYaw(delta float64) { r.SetWaistYaw(r.waistYaw + delta) }

// WaistYaw returns the last yaw written.
func (r *AvatarRig) WaistYaw() float64 { return r.waistYaw }

// SetHeadOrientation assigns the head bone's local rotation from a tracked
// head orientation.
func (r *AvatarRig) SetHeadOrientation(q mgl64.Quat) {
	if r.head == NoBone {
		return
	}
	r.skeleton.SetLocalRotation(r.head, spatial.YawRotation(r.headYaw).Mul(spatial.SafeQuat(q)))
	r.skeleton.UpdateWorldFrom(r.head)
}

// Solve places each enabled chain's target bone from its slot, runs the
// solver on it and publishes the resulting pose. It returns the number of
// chains solved this tick.
func (r *AvatarRig) Solve(s Solver, targets TargetSource) int {
	solved := 0
	for i := range r.chains {
		c := &r.chains[i]
		if !c.Enabled {
			continue
		}
		pose, ok := targets.Target(c.Slot)
		if !ok {
			continue
		}
		world := spatial.ToWorld(pose, r.skeleton.Root())
		r.placeTarget(c.Target, world)

		s.SolveChain(r.skeleton, c, r.skeleton.World(c.Target).Position)
		if c.AlignEffector {
			r.alignEffector(c.Effector, world.Orientation)
		}
		solved++
	}
	r.ApplySolvedPose()
	return solved
}

// ApplySolvedPose recomputes every world transform after local rotations
// have been mutated.
func (r *AvatarRig) ApplySolvedPose() { r.skeleton.UpdateWorld() }

// ResetPose returns every bone to its bind pose and re-applies the waist yaw.
func (r *AvatarRig) ResetPose() {
	r.skeleton.ResetToBind()
	r.SetWaistYaw(r.waistYaw)
}

// Colliders returns the world placement of every resolved collider.
func (r *AvatarRig) Colliders() []ColliderPose {
	out := make([]ColliderPose, 0, len(r.colliders))
	for _, c := range r.colliders {
		out = append(out, ColliderPose{
			Collider: c,
			Position: r.skeleton.World(c.Bone).Apply(c.Offset),
		})
	}
	return out
}

func (r *AvatarRig) placeTarget(bone int, world spatial.Pose) {
	parent := r.skeleton.Root()
	if p := r.skeleton.Parent(bone); p != NoBone {
		parent = r.skeleton.World(p)
	}
	local := spatial.ToLocal(world, parent)
	r.skeleton.SetLocalPosition(bone, local.Position)
	r.skeleton.SetLocalRotation(bone, local.Orientation)
	r.skeleton.UpdateWorldFrom(bone)
}

func (r *AvatarRig) alignEffector(bone int, orientation mgl64.Quat) {
	parentRot := r.skeleton.Root().Rotation
	if p := r.skeleton.Parent(bone); p != NoBone {
		parentRot = r.skeleton.World(p).Rotation
	}
	local := spatial.SafeQuat(parentRot).Conjugate().Mul(spatial.SafeQuat(orientation))
	r.skeleton.SetLocalRotation(bone, local)
	r.skeleton.UpdateWorldFrom(bone)
}

// IsMissingReference reports whether err came from an unresolved bone.
func IsMissingReference(err error) bool {
	return errors.Is(err, ErrBoneNotFound) || errors.Is(err, ErrUnresolvedBone)
}
