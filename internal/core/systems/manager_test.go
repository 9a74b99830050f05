package systems

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(trace *[]string, name string, phase ExecutionPhase, prio Priority) System {
	return NewFunc(name, phase, prio, func(Tick) error {
		*trace = append(*trace, name)
		return nil
	})
}

func TestManagerOrdersByPhaseThenPriority(t *testing.T) {
	var trace []string
	m := NewManager(nil)
	require.NoError(t, m.Register(recorder(&trace, "late", PhaseLateUpdate, PriorityHighest)))
	require.NoError(t, m.Register(recorder(&trace, "solve", PhaseUpdate, PriorityNormal)))
	require.NoError(t, m.Register(recorder(&trace, "map", PhaseUpdate, PriorityHigh)))
	require.NoError(t, m.Register(recorder(&trace, "anchor", PhasePreUpdate, PriorityLowest)))
	require.NoError(t, m.Register(recorder(&trace, "solve2", PhaseUpdate, PriorityNormal)))

	want := []string{"anchor", "map", "solve", "solve2", "late"}
	assert.Equal(t, want, m.ExecutionOrder())

	require.NoError(t, m.Update(Tick{Index: 1, Now: 0.1, Delta: 0.1}))
	assert.Equal(t, want, trace)
	assert.Equal(t, uint64(1), m.Ticks())
}

func TestManagerRejectsDuplicates(t *testing.T) {
	var trace []string
	m := NewManager(nil)
	require.NoError(t, m.Register(recorder(&trace, "a", PhaseUpdate, PriorityNormal)))
	assert.ErrorIs(t, m.Register(recorder(&trace, "a", PhaseUpdate, PriorityNormal)), ErrSystemExists)
	assert.ErrorIs(t, m.Unregister("b"), ErrSystemNotFound)
	assert.ErrorIs(t, m.SetEnabled("b", false), ErrSystemNotFound)
}

func TestManagerContinuesAfterFailure(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	m := NewManager(nil)
	require.NoError(t, m.Register(NewFunc("fail", PhasePreUpdate, PriorityNormal, func(Tick) error { return boom })))
	require.NoError(t, m.Register(recorder(&trace, "after", PhaseUpdate, PriorityNormal)))

	err := m.Update(Tick{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fail")
	assert.Equal(t, []string{"after"}, trace)

	metrics, ok := m.Metrics("fail")
	require.True(t, ok)
	assert.Equal(t, uint64(1), metrics.ExecutionCount)
	assert.Equal(t, uint64(1), metrics.ErrorCount)
	assert.ErrorIs(t, metrics.LastError, boom)
}

func TestManagerSkipsDisabled(t *testing.T) {
	var trace []string
	m := NewManager(nil)
	require.NoError(t, m.Register(recorder(&trace, "a", PhaseUpdate, PriorityNormal)))
	require.NoError(t, m.Register(recorder(&trace, "b", PhaseUpdate, PriorityNormal)))
	require.NoError(t, m.SetEnabled("a", false))
	require.NoError(t, m.Update(Tick{}))
	assert.Equal(t, []string{"b"}, trace)

	require.NoError(t, m.Unregister("b"))
	assert.Equal(t, []string{"a"}, m.ExecutionOrder())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "update", PhaseUpdate.String())
	assert.Equal(t, "phase(42)", ExecutionPhase(42).String())
}
