package rig

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/avatarsim/internal/core/spatial"
)

type fixedTargets map[string]spatial.Pose

func (f fixedTargets) Target(slot string) (spatial.Pose, bool) {
	p, ok := f[slot]
	return p, ok
}

type recordingSolver struct {
	calls   []string
	targets []mgl64.Vec3
}

func (s *recordingSolver) SolveChain(_ *Skeleton, chain *Chain, target mgl64.Vec3) {
	s.calls = append(s.calls, chain.Name)
	s.targets = append(s.targets, target)
}

func newHumanoid(t *testing.T) *AvatarRig {
	t.Helper()
	r, err := New(DefaultHumanoid(), Options{}, nil)
	require.NoError(t, err)
	return r
}

func TestDefaultHumanoidResolves(t *testing.T) {
	r := newHumanoid(t)

	require.Len(t, r.Chains(), 2)
	for _, c := range r.Chains() {
		assert.True(t, c.Enabled, c.Name)
		assert.Len(t, c.Links, 3, c.Name)
		for _, l := range c.Links {
			assert.True(t, l.Limited)
			assert.True(t, r.Skeleton().IsAncestor(l.Bone, c.Effector))
		}
	}
	assert.Len(t, r.Colliders(), 3)
}

func TestBindPoseWorldTransforms(t *testing.T) {
	r := newHumanoid(t)

	hand, err := r.BoneWorldTransform("hand.R")
	require.NoError(t, err)
	assert.True(t, hand.Position.ApproxEqualThreshold(mgl64.Vec3{-0.71, 1.45, 0}, 1e-9), "%v", hand.Position)

	head, err := r.BoneWorldTransform("head")
	require.NoError(t, err)
	assert.InDelta(t, 1.6, head.Position.Y(), 1e-9)
}

func TestBoneWorldTransformNotFound(t *testing.T) {
	r := newHumanoid(t)
	_, err := r.BoneWorldTransform("tail")
	assert.ErrorIs(t, err, ErrBoneNotFound)
	assert.True(t, IsMissingReference(err))
}

func TestUnresolvedChainIsDisabled(t *testing.T) {
	desc := DefaultHumanoid()
	desc.Chains[1].Links[1].Bone = "upperarm.Missing"

	r, err := New(desc, Options{}, nil)
	require.NoError(t, err)

	left, _ := r.Chain("arm.L")
	right, _ := r.Chain("arm.R")
	assert.True(t, left.Enabled)
	assert.False(t, right.Enabled)
	assert.Equal(t, NoBone, right.Links[1].Bone)

	solver := &recordingSolver{}
	n := r.Solve(solver, fixedTargets{
		"left":  spatial.IdentityPose(),
		"right": spatial.IdentityPose(),
	})
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"arm.L"}, solver.calls)
}

func TestSolveSkipsSlotsNeverWritten(t *testing.T) {
	r := newHumanoid(t)
	solver := &recordingSolver{}
	assert.Equal(t, 0, r.Solve(solver, fixedTargets{}))
	assert.Empty(t, solver.calls)
}

func TestSolvePlacesTargetInRootSpace(t *testing.T) {
	r, err := New(DefaultHumanoid(), Options{Root: spatial.Transform{
		Position: mgl64.Vec3{0, 0, -5},
		Rotation: spatial.YawRotation(math.Pi),
		Scale:    2,
	}}, nil)
	require.NoError(t, err)

	solver := &recordingSolver{}
	r.Solve(solver, fixedTargets{"right": {Position: mgl64.Vec3{1, 1, 0}, Orientation: mgl64.QuatIdent()}})

	require.Len(t, solver.targets, 1)
	// yaw by pi flips x, scale 2, then offset
	assert.True(t, solver.targets[0].ApproxEqualThreshold(mgl64.Vec3{-2, 2, -5}, 1e-9), "%v", solver.targets[0])

	hand, err := r.BoneWorldTransform("hand.R")
	require.NoError(t, err)
	assert.True(t, hand.Rotation.OrientationEqualThreshold(spatial.YawRotation(math.Pi), 1e-9), "effector aligned to slot orientation")
}

func TestWaistYawIsDirectAssignment(t *testing.T) {
	r := newHumanoid(t)

	r.SetWaistYaw(math.Pi / 2)
	r.AddWaistYaw(-math.Pi / 4)
	assert.InDelta(t, math.Pi/4, r.WaistYaw(), 1e-12)

	spine, err := r.BoneWorldTransform("spine")
	require.NoError(t, err)
	assert.True(t, spine.Rotation.OrientationEqualThreshold(spatial.YawRotation(math.Pi/4), 1e-9))

	// the right hand swings with the torso
	hand, err := r.BoneWorldTransform("hand.R")
	require.NoError(t, err)
	assert.Greater(t, hand.Position.Z(), 0.1)
}

func TestHeadOrientationUsesYawOffset(t *testing.T) {
	r, err := New(DefaultHumanoid(), Options{HeadYawOffset: math.Pi}, nil)
	require.NoError(t, err)

	r.SetHeadOrientation(mgl64.QuatIdent())
	head, err := r.BoneWorldTransform("head")
	require.NoError(t, err)
	assert.True(t, head.Rotation.OrientationEqualThreshold(spatial.YawRotation(math.Pi), 1e-9))
}

func TestCollidersFollowBones(t *testing.T) {
	r := newHumanoid(t)
	var head ColliderPose
	for _, c := range r.Colliders() {
		if c.Name == "head" {
			head = c
		}
	}
	assert.Equal(t, "head", head.Kind)
	assert.InDelta(t, 1.8, head.Position.Y(), 1e-9)

	r.SetScale(2)
	for _, c := range r.Colliders() {
		if c.Name == "head" {
			assert.InDelta(t, 3.6, c.Position.Y(), 1e-9)
		}
	}
}

func TestLinkClampPerAxis(t *testing.T) {
	l := Link{
		Limited: true,
		Min:     spatial.DegreesVec(mgl64.Vec3{-10, -10, -10}),
		Max:     spatial.DegreesVec(mgl64.Vec3{10, 10, 10}),
	}
	q := spatial.QuatFromEulerXYZ(spatial.DegreesVec(mgl64.Vec3{40, 5, -60}))
	e := spatial.EulerXYZ(l.Clamp(q))
	assert.InDelta(t, mgl64.DegToRad(10), e[0], 1e-9)
	assert.InDelta(t, mgl64.DegToRad(5), e[1], 1e-9)
	assert.InDelta(t, mgl64.DegToRad(-10), e[2], 1e-9)
}

func TestLoadDescriptorRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"empty":       ``,
		"no chains":   "name: x\nskeleton: [{name: root}]\n",
		"bad slot":    "name: x\nskeleton: [{name: root}]\nchains: [{name: a, slot: middle, target: root, effector: root, links: [{bone: root}]}]\n",
		"half limits": "name: x\nskeleton: [{name: root}]\nchains: [{name: a, slot: left, target: root, effector: root, links: [{bone: root, min: [0,0,0]}]}]\n",
		"short vec":   "name: x\nskeleton: [{name: root, position: [1, 2]}]\nchains: []\n",
		"extra field": "name: x\nskeleton: [{name: root, mass: 3}]\nchains: []\n",
	}
	for name, doc := range cases {
		_, err := LoadDescriptor(strings.NewReader(doc))
		assert.ErrorIs(t, err, ErrInvalidDescriptor, name)
	}
}

func TestNewSkeletonOrdersParentsFirst(t *testing.T) {
	sk, err := NewSkeleton([]BoneSpec{
		{Name: "c", Parent: "b", Position: [3]float64{0, 1, 0}},
		{Name: "b", Parent: "a", Position: [3]float64{0, 1, 0}},
		{Name: "a"},
	})
	require.NoError(t, err)

	c, ok := sk.Index("c")
	require.True(t, ok)
	b, _ := sk.Index("b")
	assert.Greater(t, c, b)
	assert.InDelta(t, 2, sk.World(c).Position.Y(), 1e-12)
}

func TestNewSkeletonRejectsBrokenHierarchy(t *testing.T) {
	_, err := NewSkeleton(nil)
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	_, err = NewSkeleton([]BoneSpec{{Name: "a", Parent: "ghost"}})
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	_, err = NewSkeleton([]BoneSpec{{Name: "a", Parent: "b"}, {Name: "b", Parent: "a"}})
	assert.ErrorIs(t, err, ErrInvalidSkeleton)

	_, err = NewSkeleton([]BoneSpec{{Name: "a"}, {Name: "a"}})
	assert.ErrorIs(t, err, ErrInvalidSkeleton)
}
