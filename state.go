package rad

import (
	"path/filepath"
	"regexp"
	"sync"
)

// State is the process-wide mutable context of spec §3: hygiene mode,
// flow-control flag, behavior, input stack, newline convention, regex
// cache, and the recursion depth. Pipe storage and the relay stack live
// on the Processor, not here.
//
// Spec §5 is explicit that the Processor owns all of this and hands out
// an exclusive mutable reference to builtin bodies for the duration of
// their call — there is no concurrent access, so the mutex here guards
// against accidental reentrancy bugs rather than real contention.
type State struct {
	mu sync.Mutex

	Behavior Behavior
	Newline  Newline
	Hygiene  HygieneMode

	Flow FlowControl

	inputStack map[string]bool // canonicalized paths currently being processed

	regexCache map[string]*cachedRegex

	depth    int
	maxDepth int
}

// NewState builds a State with spec-documented defaults: strict
// behavior, unix newlines, no hygiene.
func NewState() *State {
	return &State{
		Behavior:   BehaviorStrict,
		Newline:    NewlineUnix,
		Hygiene:    HygieneNone,
		inputStack: make(map[string]bool),
		regexCache: make(map[string]*cachedRegex),
		maxDepth:   256,
	}
}

// SetMaxDepth overrides the recursion bound used as both scope key and
// cap (spec §9: "use the depth parameter as both scope key ... and
// recursion bound; do not use thread stack size").
func (s *State) SetMaxDepth(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxDepth = n
}

// EnterDepth increments and returns the new depth, or an error if the
// cap would be exceeded.
func (s *State) EnterDepth() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth+1 > s.maxDepth {
		return 0, newRadError(ErrInvalidArgument, nil, "",
			"maximum expansion depth (%d) exceeded", s.maxDepth)
	}
	s.depth++
	return s.depth, nil
}

// LeaveDepth decrements the current depth after a level returns.
func (s *State) LeaveDepth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.depth > 0 {
		s.depth--
	}
}

// Depth returns the current recursion depth.
func (s *State) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// sandboxSnapshot is a hygiene+path pair with no users: EnterSandbox
// tracks only the input-stack addition and does not snapshot or restore
// the hygiene mode.
type sandboxSnapshot struct {
	hygiene HygieneMode
	path    string
}

// EnterSandbox registers path into the input stack, detecting cycles,
// and returns a release function that must run on every exit path
// (success or error) — the scoped-acquisition discipline of spec §9.
func (s *State) EnterSandbox(path string) (release func(), err error) {
	canon, cerr := filepath.Abs(path)
	if cerr != nil {
		canon = path
	}

	s.mu.Lock()
	if s.inputStack[canon] {
		s.mu.Unlock()
		return nil, newRadError(ErrInvalidArgument, nil, "include",
			"cyclic inclusion detected: %q is already being processed", canon)
	}
	s.inputStack[canon] = true
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.inputStack, canon)
		s.mu.Unlock()
	}, nil
}

// InInputStack reports whether path is currently being processed. No
// caller uses it; include's relay-target check goes through the relay
// stack instead.
func (s *State) InInputStack(path string) bool {
	canon, err := filepath.Abs(path)
	if err != nil {
		canon = path
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputStack[canon]
}

// cachedRegex is a compile-once entry in the process-wide regex cache
// (spec §9: "do not scatter module-level singletons except for
// compile-once regex tables").
type cachedRegex struct {
	pattern string
	re      *regexp.Regexp
}

// CompileRegex compiles pattern once and reuses it on every later call
// with the same pattern, the one sanctioned module-level-ish cache spec
// §9 carves out as an exception to "no singletons".
func (s *State) CompileRegex(pattern string) (*regexp.Regexp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.regexCache[pattern]; ok {
		return c.re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	s.regexCache[pattern] = &cachedRegex{pattern: pattern, re: re}
	return re, nil
}
