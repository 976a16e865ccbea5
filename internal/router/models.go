package router

import (
	"sync"
	"time"

	"github.com/tenx-dev/core/internal/types"
)

// ModelTable maps each tier to its upstream model id.
type ModelTable map[types.ModelTier]string

// cooldownState tracks repeated failures for one model id, mirrored from
// the reference's ai.ModelSelector.MarkFailed/isInCooldown: an exponential
// backoff on MODEL AVAILABILITY, not on request retry. It is reported by
// IsInCooldown only: Resolve does not consult it, and it never changes
// Classify's result (spec §9 Design Notes, SPEC_FULL.md Supplemented
// Features).
type cooldownState struct {
	failureCount int
	cooldownUntil time.Time
}

// ModelResolver maps a tier to its upstream model id and records per-model
// cooldowns after repeated provider failures. It does not skip a model in
// cooldown; the table holds one model id per tier.
type ModelResolver struct {
	mu        sync.Mutex
	table     ModelTable
	cooldowns map[string]*cooldownState
}

func NewModelResolver(table ModelTable) *ModelResolver {
	return &ModelResolver{table: table, cooldowns: map[string]*cooldownState{}}
}

// Resolve returns the model id for tier. If that model is currently in
// cooldown, it is still returned (the caller has no fallback model id to
// substitute without additional configuration) but the caller may choose to
// surface the cooldown via IsInCooldown before attempting the call.
func (r *ModelResolver) Resolve(tier types.ModelTier) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table[tier]
}

// IsInCooldown reports whether modelID is presently excluded after repeated
// failures.
func (r *ModelResolver) IsInCooldown(modelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.cooldowns[modelID]
	if !ok {
		return false
	}
	return time.Now().Before(st.cooldownUntil)
}

// MarkFailed records a failure for modelID, doubling the cooldown window
// each consecutive failure (5s, 10s, 20s, ... capped at 1 hour).
func (r *ModelResolver) MarkFailed(modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.cooldowns[modelID]
	if !ok {
		st = &cooldownState{}
		r.cooldowns[modelID] = st
	}
	st.failureCount++
	shift := st.failureCount - 1
	if shift > 20 {
		shift = 20 // already far past the cap; keeps the shift from overflowing
	}
	backoff := time.Duration(5<<uint(shift)) * time.Second
	const cap = time.Hour
	if backoff > cap {
		backoff = cap
	}
	st.cooldownUntil = time.Now().Add(backoff)
}

// ClearFailed resets a model's failure count after a successful call.
func (r *ModelResolver) ClearFailed(modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cooldowns, modelID)
}
