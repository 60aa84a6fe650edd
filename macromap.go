package rad

import (
	"sort"
	"sync"
)

// FunctionHandler is an eager builtin: its arguments are fully expanded
// before the body runs.
type FunctionHandler func(args []ArgCursor, ctx *EvalContext) (string, error)

// DeferredHandler is a lazy builtin: it receives raw argument text and
// expands subsets on demand via ctx.ProcessChunk.
type DeferredHandler func(rawArgs string, depth int, ctx *EvalContext) (string, error)

type functionEntry struct {
	name    string
	arity   int
	handler FunctionHandler
	desc    string
}

type deferredEntry struct {
	name    string
	handler DeferredHandler
	desc    string
}

// MacroMap is the four-table resolution structure of spec §4.4, plus
// the one-slot anonymous cache.
type MacroMap struct {
	mu sync.RWMutex

	functions map[string]*functionEntry
	deferred  map[string]*deferredEntry
	runtime   map[string]*MacroRecord // persistent
	volatile  map[string]*MacroRecord // hygiene-scoped writes
	local     map[string]*MacroRecord // keyed by "depth-name"

	anonymous *MacroRecord

	hygiene HygieneMode
	logger  *Logger
}

// NewMacroMap creates an empty map with no builtins registered; callers
// wire the standard library separately (spec §2's "library" row).
func NewMacroMap(logger *Logger) *MacroMap {
	return &MacroMap{
		functions: make(map[string]*functionEntry),
		deferred:  make(map[string]*deferredEntry),
		runtime:   make(map[string]*MacroRecord),
		volatile:  make(map[string]*MacroRecord),
		local:     make(map[string]*MacroRecord),
		logger:    logger,
	}
}

// SetHygiene switches the hygiene mode (spec §3).
func (m *MacroMap) SetHygiene(mode HygieneMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hygiene = mode
}

// RegisterFunction installs an eager builtin.
func (m *MacroMap) RegisterFunction(name string, arity int, desc string, h FunctionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.functions[name] = &functionEntry{name: name, arity: arity, handler: h, desc: desc}
}

// RegisterDeferred installs a lazy builtin.
func (m *MacroMap) RegisterDeferred(name string, desc string, h DeferredHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deferred[name] = &deferredEntry{name: name, handler: h, desc: desc}
}

// localKey builds the (depth, name) composite key for Local macros.
func localKey(depth int, name string) string {
	return string(rune(depth)) + "\x00" + name
}

// Resolved is the outcome of a MacroMap lookup.
type Resolved struct {
	Variant  MacroVariant
	Function *functionEntry
	Deferred *deferredEntry
	Record   *MacroRecord
}

// Resolve implements the precedence in spec §4.4: Local > Deferred >
// Runtime > Function.
func (m *MacroMap) Resolve(name string, depth int) (*Resolved, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if rec, ok := m.local[localKey(depth, name)]; ok {
		return &Resolved{Variant: VariantLocal, Record: rec}, true
	}
	// nearest wins: locals bound at a shallower depth remain visible
	// while a level is active (spec §4.5's "inherited locals").
	for d := depth - 1; d >= 0; d-- {
		if rec, ok := m.local[localKey(d, name)]; ok {
			return &Resolved{Variant: VariantLocal, Record: rec}, true
		}
	}
	if de, ok := m.deferred[name]; ok {
		return &Resolved{Variant: VariantDeferred, Deferred: de}, true
	}
	if rec, ok := m.lookupRuntimeLocked(name); ok {
		return &Resolved{Variant: VariantRuntime, Record: rec}, true
	}
	if fe, ok := m.functions[name]; ok {
		return &Resolved{Variant: VariantFunction, Function: fe}, true
	}
	return nil, false
}

// lookupRuntimeLocked applies hygiene's Aseptic read restriction: reads
// under Aseptic see only persistent, never volatile, entries.
func (m *MacroMap) lookupRuntimeLocked(name string) (*MacroRecord, bool) {
	if m.hygiene != HygieneAseptic {
		if rec, ok := m.volatile[name]; ok {
			return rec, true
		}
	}
	rec, ok := m.runtime[name]
	return rec, ok
}

// IsRuntime reports whether name resolves to a Runtime (including
// volatile) macro — used by `relay(macro,name)` to reject Function,
// Deferred, Local, and undefined targets (spec §4.6).
func (m *MacroMap) IsRuntime(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.lookupRuntimeLocked(name)
	return ok
}

// Define installs a Runtime macro. Writes go to volatile under
// non-None hygiene (spec §3).
func (m *MacroMap) Define(rec *MacroRecord) error {
	if IsReserved(rec.Name) {
		return newRadError(ErrInvalidMacroName, nil, "define", "macro name %q is reserved", rec.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hygiene != HygieneNone {
		rec.Volatile = true
		m.volatile[rec.Name] = rec
	} else {
		m.runtime[rec.Name] = rec
	}
	return nil
}

// DefineLocal binds a macro scoped to (depth, name) — used for
// Runtime-call parameter binding and the loop variables `item` and `i`.
func (m *MacroMap) DefineLocal(depth int, rec *MacroRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Depth = depth
	m.local[localKey(depth, rec.Name)] = rec
}

// PurgeDepth removes every Local macro bound at exactly this depth,
// called when the evaluator returns from a level (spec §4.5).
func (m *MacroMap) PurgeDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := string(rune(depth)) + "\x00"
	for k := range m.local {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.local, k)
		}
	}
}

// PurgeVolatile clears volatile Runtime macros at a hygiene boundary
// (end of input, or end of each top-level call, depending on mode).
func (m *MacroMap) PurgeVolatile() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.volatile)
	m.volatile = make(map[string]*MacroRecord)
	return n
}

// Append appends text to a Runtime (or Local) macro's body.
func (m *MacroMap) Append(name string, depth int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.local[localKey(depth, name)]; ok {
		rec.Body += text
		return nil
	}
	if rec, ok := m.volatile[name]; ok {
		rec.Body += text
		return nil
	}
	if rec, ok := m.runtime[name]; ok {
		rec.Body += text
		return nil
	}
	return newRadError(ErrInvalidArgument, nil, "append", "macro %q not found", name)
}

// Replace overwrites a Runtime macro's body (Runtime only, per spec).
func (m *MacroMap) Replace(name string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.volatile[name]; ok {
		rec.Body = body
		return nil
	}
	if rec, ok := m.runtime[name]; ok {
		rec.Body = body
		return nil
	}
	return newRadError(ErrInvalidArgument, nil, "replace", "macro %q not found", name)
}

// Undefine removes a macro. kind==KindAny probes Local, Deferred,
// Runtime, Function in that order and stops at first hit, refusing
// reserved names; a specific kind only probes that table.
func (m *MacroMap) Undefine(name string, kind MacroKind, depth int) error {
	if IsReserved(name) {
		return newRadError(ErrInvalidMacroName, nil, "undef", "macro name %q is reserved", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tryLocal := func() bool {
		k := localKey(depth, name)
		if _, ok := m.local[k]; ok {
			delete(m.local, k)
			return true
		}
		return false
	}
	tryDeferred := func() bool {
		if _, ok := m.deferred[name]; ok {
			delete(m.deferred, name)
			return true
		}
		return false
	}
	tryRuntime := func() bool {
		if _, ok := m.volatile[name]; ok {
			delete(m.volatile, name)
			return true
		}
		if _, ok := m.runtime[name]; ok {
			delete(m.runtime, name)
			return true
		}
		return false
	}
	tryFunction := func() bool {
		if _, ok := m.functions[name]; ok {
			delete(m.functions, name)
			return true
		}
		return false
	}

	switch kind {
	case KindLocal:
		if !tryLocal() {
			return newRadError(ErrInvalidArgument, nil, "undef", "local macro %q not found", name)
		}
	case KindDeferred:
		if !tryDeferred() {
			return newRadError(ErrInvalidArgument, nil, "undef", "deferred macro %q not found", name)
		}
	case KindRuntime:
		if !tryRuntime() {
			return newRadError(ErrInvalidArgument, nil, "undef", "runtime macro %q not found", name)
		}
	case KindFunction:
		if !tryFunction() {
			return newRadError(ErrInvalidArgument, nil, "undef", "function macro %q not found", name)
		}
	default: // KindAny: same precedence order as Resolve
		if tryLocal() || tryDeferred() || tryRuntime() || tryFunction() {
			return nil
		}
		return newRadError(ErrInvalidArgument, nil, "undef", "macro %q not found", name)
	}
	return nil
}

// Rename moves a macro to a new name. With kind==KindAny it probes
// Deferred, then Runtime (volatile before persistent), then Function;
// Local macros are not searched by any kind.
func (m *MacroMap) Rename(oldName, newName string, kind MacroKind) error {
	if err := ValidateIdentifier(newName); err != nil {
		return err
	}
	if IsReserved(oldName) || IsReserved(newName) {
		return newRadError(ErrInvalidMacroName, nil, "rename", "reserved macro name")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if kind == KindAny || kind == KindDeferred {
		if de, ok := m.deferred[oldName]; ok {
			delete(m.deferred, oldName)
			de.name = newName
			m.deferred[newName] = de
			return nil
		}
		if kind == KindDeferred {
			return newRadError(ErrInvalidArgument, nil, "rename", "deferred macro %q not found", oldName)
		}
	}
	if kind == KindAny || kind == KindRuntime {
		if rec, ok := m.volatile[oldName]; ok {
			delete(m.volatile, oldName)
			rec.Name = newName
			m.volatile[newName] = rec
			return nil
		}
		if rec, ok := m.runtime[oldName]; ok {
			delete(m.runtime, oldName)
			rec.Name = newName
			m.runtime[newName] = rec
			return nil
		}
		if kind == KindRuntime {
			return newRadError(ErrInvalidArgument, nil, "rename", "runtime macro %q not found", oldName)
		}
	}
	if kind == KindAny || kind == KindFunction {
		if fe, ok := m.functions[oldName]; ok {
			delete(m.functions, oldName)
			fe.name = newName
			m.functions[newName] = fe
			return nil
		}
		if kind == KindFunction {
			return newRadError(ErrInvalidArgument, nil, "rename", "function macro %q not found", oldName)
		}
	}
	return newRadError(ErrInvalidArgument, nil, "rename", "macro %q not found", oldName)
}

// SetAnonymous stores the single-slot anonymous macro.
func (m *MacroMap) SetAnonymous(rec *MacroRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anonymous = rec
}

// Anonymous retrieves the single-slot anonymous macro, if any.
func (m *MacroMap) Anonymous() (*MacroRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.anonymous == nil {
		return nil, false
	}
	return m.anonymous, true
}

// ListSignatures returns every macro's signature for the --signature export
// (spec §6), sorted by name for deterministic output.
func (m *MacroMap) ListSignatures() []Signature {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sigs []Signature
	for name, fe := range m.functions {
		sigs = append(sigs, Signature{Variant: "Function", Name: name, Desc: fe.desc})
	}
	for name, de := range m.deferred {
		sigs = append(sigs, Signature{Variant: "Deferred", Name: name, Desc: de.desc})
	}
	for name, rec := range m.runtime {
		args := make([]string, len(rec.Params))
		for i, p := range rec.Params {
			args[i] = p.Name
		}
		sigs = append(sigs, Signature{Variant: "Runtime", Name: name, Args: args, Expr: rec.Body, Desc: rec.Desc})
	}
	for name, rec := range m.volatile {
		args := make([]string, len(rec.Params))
		for i, p := range rec.Params {
			args[i] = p.Name
		}
		sigs = append(sigs, Signature{Variant: "Runtime", Name: name, Args: args, Expr: rec.Body, Desc: rec.Desc})
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].Name < sigs[j].Name })
	return sigs
}

// SnapshotRuntime returns a copy of every persistent+volatile Runtime
// macro, for freeze (spec §6, §8 round-trip).
func (m *MacroMap) SnapshotRuntime() map[string]*MacroRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*MacroRecord, len(m.runtime)+len(m.volatile))
	for k, v := range m.runtime {
		cp := *v
		out[k] = &cp
	}
	for k, v := range m.volatile {
		cp := *v
		out[k] = &cp
	}
	return out
}

// RestoreRuntime installs a snapshot produced by SnapshotRuntime (melt).
func (m *MacroMap) RestoreRuntime(snapshot map[string]*MacroRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range snapshot {
		cp := *v
		m.runtime[k] = &cp
	}
}
