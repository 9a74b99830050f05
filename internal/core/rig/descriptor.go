package rig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed rig.schema.json
var descriptorSchemaJSON string

//go:embed humanoid.yaml
var humanoidYAML []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Descriptor is the data-driven rig definition loaded alongside a skeleton
// asset: bones, IK chains, driven bones and body colliders.
type Descriptor struct {
	Name      string               `yaml:"name"`
	Skeleton  []BoneSpec           `yaml:"skeleton"`
	Chains    []ChainDescriptor    `yaml:"chains"`
	Head      *DrivenBone          `yaml:"head,omitempty"`
	Waist     *DrivenBone          `yaml:"waist,omitempty"`
	Colliders []ColliderDescriptor `yaml:"colliders,omitempty"`
}

// ChainDescriptor names the bones of one IK chain. Links are listed from the
// effector's parent toward the chain root.
type ChainDescriptor struct {
	Name          string           `yaml:"name"`
	Slot          string           `yaml:"slot"`
	Target        string           `yaml:"target"`
	Effector      string           `yaml:"effector"`
	AlignEffector bool             `yaml:"align_effector,omitempty"`
	Links         []LinkDescriptor `yaml:"links"`
}

// LinkDescriptor is one joint; Min and Max are XYZ Euler limits in degrees.
type LinkDescriptor struct {
	Bone string      `yaml:"bone"`
	Min  *[3]float64 `yaml:"min,omitempty"`
	Max  *[3]float64 `yaml:"max,omitempty"`
}

// DrivenBone is a bone whose rotation is assigned directly rather than solved.
type DrivenBone struct {
	Bone string `yaml:"bone"`
}

// ColliderDescriptor attaches a sphere collider to a bone.
type ColliderDescriptor struct {
	Name   string     `yaml:"name"`
	Bone   string     `yaml:"bone"`
	Offset [3]float64 `yaml:"offset,omitempty"`
	Radius float64    `yaml:"radius"`
	Kind   string     `yaml:"kind"`
	Hand   string     `yaml:"hand,omitempty"`
}

// LoadDescriptor reads a YAML rig descriptor and validates it against the
// embedded JSON schema before decoding it.
func LoadDescriptor(r io.Reader) (*Descriptor, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseDescriptor(raw)
}

// ParseDescriptor is LoadDescriptor over an in-memory document.
func ParseDescriptor(raw []byte) (*Descriptor, error) {
	if err := validateDescriptor(raw); err != nil {
		return nil, err
	}

	var d Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return &d, nil
}

// DefaultHumanoid returns the bundled humanoid descriptor.
func DefaultHumanoid() *Descriptor {
	d, err := ParseDescriptor(humanoidYAML)
	if err != nil {
		panic(fmt.Sprintf("bundled humanoid descriptor: %v", err))
	}
	return d
}

func validateDescriptor(raw []byte) error {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("rig.schema.json", descriptorSchemaJSON)
	})
	if schemaErr != nil {
		return fmt.Errorf("compile rig schema: %w", schemaErr)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	// the validator expects JSON-shaped values
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	var value any
	if err = json.Unmarshal(asJSON, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if err = compiledSchema.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return nil
}
