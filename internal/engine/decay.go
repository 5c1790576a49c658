package engine

import (
	"context"
	"log"
	"time"
)

// runDecayLoop fires a decay pass every DecayInterval until ctx is cancelled.
func (e *Engine) runDecayLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.DecayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunDecayPass(ctx)
		}
	}
}

// RunDecayPass ages stored memories once and eases the mood back toward its
// baseline. Exported so an operator endpoint can trigger it out of schedule;
// the per-record last_decayed_at guard makes an extra trigger harmless.
func (e *Engine) RunDecayPass(ctx context.Context) int {
	n, err := e.store.DecayPass(ctx, e.decayParams)
	if err != nil {
		log.Printf("ERROR: engine: decay pass failed: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("engine: decay pass aged %d memories", n)
	}

	e.mood.DecayTowardBaseline(moodDriftFactor)
	return n
}
