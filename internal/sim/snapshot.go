package sim

import (
	"fmt"

	"github.com/zeusync/avatarsim/internal/core/enemy"
)

// Snapshot summarises the simulation after a tick.
type Snapshot struct {
	Tick         uint64
	Time         float64
	Enemies      int
	Seeking      int
	Stunned      int
	Effects      int
	TotalSpawned int
	TotalStuns   int
	TotalEffects int
	Collisions   int
	Despawned    int
	SolvedChains int
}

// Snapshot returns the current summary.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:         s.tick.Index,
		Time:         s.tick.Now,
		Enemies:      s.enemies.Count(),
		Effects:      s.effects.Count(),
		TotalSpawned: s.enemies.Total(),
		TotalStuns:   s.stats.stuns,
		TotalEffects: s.effects.Total(),
		Collisions:   s.stats.collisions,
		Despawned:    s.stats.despawned,
		SolvedChains: s.stats.solved,
	}
	for _, c := range s.enemies.Controllers() {
		if c.State().Kind == enemy.Stunned {
			snap.Stunned++
		} else {
			snap.Seeking++
		}
	}
	return snap
}

func (s Snapshot) String() string {
	return fmt.Sprintf("t=%.2f enemies=%d seeking=%d stunned=%d effects=%d stuns=%d effects_total=%d",
		s.Time, s.Enemies, s.Seeking, s.Stunned, s.Effects, s.TotalStuns, s.TotalEffects)
}
