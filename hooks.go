package rad

import (
	"sync"

	"github.com/google/uuid"
)

// HookTrigger is one entry of the optional hook subsystem (spec §3).
// When CurrentCount reaches TargetCount, the trigger dispatches
// TargetMacro; if not Resettable, it disables itself afterward.
type HookTrigger struct {
	ID           string
	Enabled      bool
	Resettable   bool
	TargetMacro  string
	CurrentCount int
	TargetCount  int
}

// HookSet manages macro-count hooks: Tick advances every enabled trigger
// once per dispatched fragment. Character-count hooks are not supported.
// Grounded on
// original_source/src/hookmap.rs: a small per-trigger counter map, not
// a general event system.
type HookSet struct {
	mu       sync.Mutex
	triggers map[string]*HookTrigger
}

// NewHookSet creates an empty hook set.
func NewHookSet() *HookSet {
	return &HookSet{triggers: make(map[string]*HookTrigger)}
}

// Register installs a new trigger and returns its ID.
func (h *HookSet) Register(targetMacro string, targetCount int, resettable bool) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.NewString()
	h.triggers[id] = &HookTrigger{
		ID:          id,
		Enabled:     true,
		Resettable:  resettable,
		TargetMacro: targetMacro,
		TargetCount: targetCount,
	}
	return id
}

// Disable turns a trigger off without removing it.
func (h *HookSet) Disable(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.triggers[id]; ok {
		t.Enabled = false
	}
}

// Tick increments every enabled trigger's counter by one and returns
// the macro names of any that just reached their target. A trigger
// that is not resettable disables itself once it fires; one that is
// resettable keeps counting from zero.
func (h *HookSet) Tick() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var fired []string
	for _, t := range h.triggers {
		if !t.Enabled {
			continue
		}
		t.CurrentCount++
		if t.CurrentCount >= t.TargetCount {
			fired = append(fired, t.TargetMacro)
			if t.Resettable {
				t.CurrentCount = 0
			} else {
				t.Enabled = false
			}
		}
	}
	return fired
}

// List returns every registered trigger, for diagnostics.
func (h *HookSet) List() []*HookTrigger {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*HookTrigger, 0, len(h.triggers))
	for _, t := range h.triggers {
		cp := *t
		out = append(out, &cp)
	}
	return out
}
