package tracking

import (
	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/spatial"
)

// Slot names used by the bundled rig descriptors.
const (
	SlotLeft  = "left"
	SlotRight = "right"
)

// Slot is the IK target of one hand. Valid is false until the first write.
type Slot struct {
	Pose  spatial.Pose
	Valid bool
}

// Slots holds the IK target slots. Values survive ticks where their device is
// untracked.
type Slots struct {
	slots map[string]*Slot
}

// NewSlots creates slots for the given names, all unwritten.
func NewSlots(names ...string) *Slots {
	s := &Slots{slots: make(map[string]*Slot, len(names))}
	for _, n := range names {
		s.slots[n] = &Slot{}
	}
	return s
}

// Set writes a slot, creating it if needed.
func (s *Slots) Set(name string, pose spatial.Pose) {
	slot, ok := s.slots[name]
	if !ok {
		slot = &Slot{}
		s.slots[name] = slot
	}
	slot.Pose = pose
	slot.Valid = true
}

// Get returns a copy of a slot.
func (s *Slots) Get(name string) (Slot, bool) {
	slot, ok := s.slots[name]
	if !ok {
		return Slot{}, false
	}
	return *slot, true
}

// Target implements rig.TargetSource.
func (s *Slots) Target(name string) (spatial.Pose, bool) {
	slot, ok := s.slots[name]
	if !ok || !slot.Valid {
		return spatial.Pose{}, false
	}
	return slot.Pose, true
}

// MapperConfig holds the fixed mapping parameters.
type MapperConfig struct {
	// Scale compensates for avatar-to-room scale mismatch.
	Scale float64 `yaml:"scale"`
	// YawOffset rotates the scaled local target about +Y (radians).
	YawOffset float64 `yaml:"yaw_offset"`
	// Bindings maps slot names to the device that drives them.
	Bindings map[string]DeviceID `yaml:"bindings"`
}

// DefaultMapperConfig binds the two hand slots at unit scale.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		Scale: 1,
		Bindings: map[string]DeviceID{
			SlotLeft:  LeftHand,
			SlotRight: RightHand,
		},
	}
}

// Mapper writes controller poses into IK target slots each tick.
type Mapper struct {
	source PoseSource
	anchor Anchor
	cfg    MapperConfig
	slots  *Slots
	order  []string

	untracked map[string]bool
	logger    log.Log
}

// NewMapper creates a mapper. A zero scale is treated as 1 and nil bindings
// fall back to the default hand bindings.
func NewMapper(source PoseSource, anchor Anchor, cfg MapperConfig, logger log.Log) *Mapper {
	if cfg.Scale == 0 {
		cfg.Scale = 1
	}
	if len(cfg.Bindings) == 0 {
		cfg.Bindings = DefaultMapperConfig().Bindings
	}
	if logger == nil {
		logger = log.NewNop()
	}

	// fixed order keeps updates deterministic
	order := make([]string, 0, len(cfg.Bindings))
	for _, name := range []string{SlotLeft, SlotRight} {
		if _, ok := cfg.Bindings[name]; ok {
			order = append(order, name)
		}
	}
	for name := range cfg.Bindings {
		if name != SlotLeft && name != SlotRight {
			order = append(order, name)
		}
	}

	return &Mapper{
		source:    source,
		anchor:    anchor,
		cfg:       cfg,
		slots:     NewSlots(order...),
		order:     order,
		untracked: make(map[string]bool, len(order)),
		logger:    logger.Named("tracking"),
	}
}

// Slots returns the slots written by Update.
func (m *Mapper) Slots() *Slots { return m.slots }

// Anchor returns the reference frame in use.
func (m *Mapper) Anchor() Anchor { return m.anchor }

// Head returns the head sample for this tick.
func (m *Mapper) Head() (spatial.Pose, bool) { return m.source.CurrentPose(Head) }

// Update refreshes the anchor from the head sample, then maps every bound
// device into its slot. Untracked devices leave their slot unchanged.
// It returns the number of slots written.
func (m *Mapper) Update() int {
	head, ok := m.source.CurrentPose(Head)
	m.anchor.Update(head, ok)
	frame := m.anchor.Frame()

	yaw := spatial.YawRotation(m.cfg.YawOffset)
	written := 0
	for _, name := range m.order {
		pose, ok := m.source.CurrentPose(m.cfg.Bindings[name])
		if !ok || !spatial.Finite(pose.Position) {
			if !m.untracked[name] {
				m.logger.Debug("device untracked, holding target", log.String("slot", name))
				m.untracked[name] = true
			}
			continue
		}
		m.untracked[name] = false

		local := spatial.ToLocal(pose, frame)
		m.slots.Set(name, spatial.Pose{
			Position:    yaw.Rotate(local.Position.Mul(m.cfg.Scale)),
			Orientation: yaw.Mul(local.Orientation).Normalize(),
		})
		written++
	}
	return written
}
