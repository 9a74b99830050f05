package rig

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/spatial"
)

// Link is one joint of an IK chain. Min and Max bound the XYZ Euler angles
// (radians) of the joint's local rotation when Limited is set.
type Link struct {
	Bone    int
	Min     mgl64.Vec3
	Max     mgl64.Vec3
	Limited bool
}

// Clamp applies the link's per-axis limits to a local rotation.
func (l Link) Clamp(q mgl64.Quat) mgl64.Quat {
	if !l.Limited {
		return spatial.SafeQuat(q)
	}
	e := spatial.ClampEuler(spatial.EulerXYZ(q), l.Min, l.Max)
	return spatial.QuatFromEulerXYZ(e)
}

// Chain is a resolved IK chain. Links run from the effector's parent out to
// the chain root. A chain with any unresolved index is disabled for the
// session.
type Chain struct {
	Name          string
	Slot          string
	Target        int
	Effector      int
	Links         []Link
	AlignEffector bool
	Enabled       bool
}

// resolveChain maps a chain descriptor onto skeleton indices. The returned
// error names the first unresolved bone; the chain is still returned, disabled.
func resolveChain(sk *Skeleton, d ChainDescriptor) (Chain, error) {
	c := Chain{
		Name:          d.Name,
		Slot:          d.Slot,
		Target:        NoBone,
		Effector:      NoBone,
		AlignEffector: d.AlignEffector,
		Links:         make([]Link, 0, len(d.Links)),
	}

	var missing []string
	lookup := func(name string) int {
		idx, ok := sk.Index(name)
		if !ok {
			missing = append(missing, name)
		}
		return idx
	}

	c.Target = lookup(d.Target)
	c.Effector = lookup(d.Effector)
	for _, ld := range d.Links {
		link := Link{Bone: lookup(ld.Bone)}
		if ld.Min != nil && ld.Max != nil {
			link.Limited = true
			link.Min = spatial.DegreesVec(mgl64.Vec3(*ld.Min))
			link.Max = spatial.DegreesVec(mgl64.Vec3(*ld.Max))
		}
		c.Links = append(c.Links, link)
	}

	if len(missing) > 0 {
		return c, fmt.Errorf("%w: chain %q: %v", ErrUnresolvedBone, d.Name, missing)
	}
	if len(c.Links) == 0 {
		return c, fmt.Errorf("%w: chain %q has no links", ErrInvalidDescriptor, d.Name)
	}
	c.Enabled = true
	return c, nil
}
