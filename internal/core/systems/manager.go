package systems

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeusync/avatarsim/internal/core/observability/log"
)

var (
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
)

type entry struct {
	system  System
	seq     int
	enabled bool
	metrics Metrics
}

// Manager runs registered systems once per tick, ordered by phase, then by
// descending priority, then by registration order.
type Manager struct {
	mu      sync.Mutex
	entries []*entry
	byName  map[string]*entry
	seq     int
	ticks   uint64
	logger  log.Log
}

// NewManager creates an empty manager.
func NewManager(logger log.Log) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{
		byName: make(map[string]*entry),
		logger: logger.Named("systems"),
	}
}

// Register adds s to the pipeline, enabled.
func (m *Manager) Register(s System) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[s.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
	}
	e := &entry{system: s, seq: m.seq, enabled: true}
	m.seq++
	m.entries = append(m.entries, e)
	m.byName[s.Name()] = e
	sort.SliceStable(m.entries, func(i, j int) bool {
		a, b := m.entries[i], m.entries[j]
		if a.system.Phase() != b.system.Phase() {
			return a.system.Phase() < b.system.Phase()
		}
		if a.system.Priority() != b.system.Priority() {
			return a.system.Priority() > b.system.Priority()
		}
		return a.seq < b.seq
	})
	m.logger.Debug("system registered",
		log.String("system", s.Name()),
		log.String("phase", s.Phase().String()),
	)
	return nil
}

// Unregister removes a system.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
	}
	delete(m.byName, name)
	for i, other := range m.entries {
		if other == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	return nil
}

// SetEnabled toggles a system without changing its position.
func (m *Manager) SetEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
	}
	e.enabled = enabled
	return nil
}

// Update runs every enabled system for tick. A failing system does not stop
// the ones after it; all errors are joined into the result.
func (m *Manager) Update(tick Tick) error {
	m.mu.Lock()
	entries := append([]*entry(nil), m.entries...)
	m.ticks++
	m.mu.Unlock()

	var all error
	for _, e := range entries {
		if !e.enabled {
			continue
		}
		start := time.Now()
		err := e.system.Update(tick)
		d := time.Since(start)

		m.mu.Lock()
		e.metrics.record(d, err)
		m.mu.Unlock()

		if err != nil {
			all = errors.Join(all, fmt.Errorf("%s: %w", e.system.Name(), err))
		}
	}
	return all
}

// ExecutionOrder returns system names in the order Update runs them.
func (m *Manager) ExecutionOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.system.Name())
	}
	return out
}

// Metrics returns a system's accumulated metrics.
func (m *Manager) Metrics(name string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byName[name]
	if !ok {
		return Metrics{}, false
	}
	return e.metrics, true
}

// Ticks returns how many times Update has run.
func (m *Manager) Ticks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks
}
