package systems

import (
	"fmt"
	"time"
)

// Tick is the input of one simulation step. Now and Delta are simulation
// seconds, not wall clock.
type Tick struct {
	Index uint64
	Now   float64
	Delta float64
}

// System represents one stage of the per-tick pipeline.
type System interface {
	// Identity

	Name() string

	// Configuration

	Phase() ExecutionPhase
	Priority() Priority

	// Execution

	Update(tick Tick) error
}

// Priority orders systems within a phase; higher runs first.
type Priority uint16

// System priorities
const (
	PriorityLowest  Priority = 200
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// ExecutionPhase defines when a system runs
type ExecutionPhase uint8

const (
	PhasePreUpdate ExecutionPhase = iota
	PhaseUpdate
	PhasePostUpdate
	PhaseFixedUpdate
	PhaseLateUpdate
)

func (p ExecutionPhase) String() string {
	switch p {
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseFixedUpdate:
		return "fixed-update"
	case PhaseLateUpdate:
		return "late-update"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
}

func (m *Metrics) record(d time.Duration, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += d
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	if d > m.MaxExecutionTime {
		m.MaxExecutionTime = d
	}
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}

// funcSystem adapts a function to System.
type funcSystem struct {
	name     string
	phase    ExecutionPhase
	priority Priority
	fn       func(Tick) error
}

// NewFunc wraps fn as a System.
func NewFunc(name string, phase ExecutionPhase, priority Priority, fn func(Tick) error) System {
	return &funcSystem{name: name, phase: phase, priority: priority, fn: fn}
}

func (s *funcSystem) Name() string           { return s.name }
func (s *funcSystem) Phase() ExecutionPhase  { return s.phase }
func (s *funcSystem) Priority() Priority     { return s.priority }
func (s *funcSystem) Update(tick Tick) error { return s.fn(tick) }
