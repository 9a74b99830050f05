package sim

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/avatarsim/internal/config"
	"github.com/zeusync/avatarsim/internal/core/enemy"
	"github.com/zeusync/avatarsim/internal/core/events/bus"
	"github.com/zeusync/avatarsim/internal/core/systems/physics"
)

// traceLine renders one bus event for the golden trace.
func traceLine(ev bus.Event) string {
	var detail string
	switch d := ev.Data().(type) {
	case bus.EnemySpawned:
		detail = d.ID
	case bus.EnemyDespawned:
		detail = d.ID + " " + d.Reason
	case bus.EnemyCountChanged:
		detail = fmt.Sprint(d.Count)
	case bus.EnemyStateChanged:
		detail = fmt.Sprintf("%s %s->%s", d.ID, d.From, d.To)
	case bus.EffectSpawned:
		detail = d.ID
	case bus.EffectRetired:
		detail = d.ID
	}
	return fmt.Sprintf("t=%.2f %s %s", ev.Time(), ev.Type(), detail)
}

func TestScenarioTrace(t *testing.T) {
	s, err := New(config.Default(), Deps{
		EnemyIDs:  enemy.Counter(),
		EffectIDs: counter("effect"),
		Rand:      enemy.NewRand("golden"),
	})
	require.NoError(t, err)

	var out strings.Builder
	for _, typ := range []string{
		bus.TypeEnemySpawned,
		bus.TypeEnemyDespawned,
		bus.TypeEnemyCountChanged,
		bus.TypeEnemyStateChanged,
		bus.TypeEffectSpawned,
		bus.TypeEffectRetired,
	} {
		_, err := s.Bus().Subscribe(typ, func(ev bus.Event) error {
			out.WriteString(traceLine(ev) + "\n")
			return nil
		})
		require.NoError(t, err)
	}

	injected := map[int][]physics.CollisionEvent{
		10: {handHit("enemy-1")},
		11: {handHit("enemy-1")}, // already stunned: sparks only
		14: {headBump("enemy-2")},
	}
	for i := 1; i <= 16; i++ {
		require.NoError(t, s.Tick(float64(i)*0.5, injected[i]...))
	}
	out.WriteString("final " + s.Snapshot().String() + "\n")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "scenario", []byte(out.String()))
}
