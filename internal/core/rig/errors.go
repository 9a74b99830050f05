package rig

import "errors"

// Rig errors
var (
	ErrBoneNotFound      = errors.New("bone not found")
	ErrUnresolvedBone    = errors.New("chain references an unresolved bone")
	ErrInvalidDescriptor = errors.New("invalid rig descriptor")
	ErrInvalidSkeleton   = errors.New("invalid skeleton")
)
