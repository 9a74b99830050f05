// Package metrics collects in-process counters for the simulation.
package metrics

import (
	"slices"
	"sync"

	"github.com/zeusync/avatarsim/internal/core/events/bus"
	"github.com/zeusync/avatarsim/internal/core/observability/log"
)

var _ bus.EventBusObserver = (*EventCounter)(nil)

// EventCounter is a bus observer that tallies deliveries per event type.
type EventCounter struct {
	mu     sync.Mutex
	counts map[string]*EventMetrics
}

// EventMetrics are the counters kept for one event type.
type EventMetrics struct {
	Published uint64
	Handlers  uint64
	Errors    uint64
}

func NewEventCounter() *EventCounter {
	return &EventCounter{counts: make(map[string]*EventMetrics)}
}

func (c *EventCounter) OnPublish(eventType string, _ bus.Event) {
	c.mu.Lock()
	c.get(eventType).Published++
	c.mu.Unlock()
}

func (c *EventCounter) OnDelivered(eventType string, handlers int, err error) {
	c.mu.Lock()
	m := c.get(eventType)
	m.Handlers += uint64(handlers)
	if err != nil {
		m.Errors++
	}
	c.mu.Unlock()
}

func (c *EventCounter) get(eventType string) *EventMetrics {
	m, ok := c.counts[eventType]
	if !ok {
		m = &EventMetrics{}
		c.counts[eventType] = m
	}
	return m
}

// Get returns the counters of one event type.
func (c *EventCounter) Get(eventType string) EventMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.counts[eventType]; ok {
		return *m
	}
	return EventMetrics{}
}

// Types returns every event type seen, sorted.
func (c *EventCounter) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.counts))
	for t := range c.counts {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Fields renders the published count of every type as log fields.
func (c *EventCounter) Fields() []log.Field {
	types := c.Types()
	fields := make([]log.Field, 0, len(types))
	for _, t := range types {
		fields = append(fields, log.Int(t, int(c.Get(t).Published)))
	}
	return fields
}
