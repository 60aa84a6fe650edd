package rad

import (
	"strconv"
	"strings"
)

// EvalContext is handed to every builtin body for the duration of its
// call. It is the "exclusive mutable reference to the Processor" spec
// §5 describes — there is no locking because there is no concurrent
// access.
type EvalContext struct {
	Proc  *Processor
	Pos   *SourcePosition
	Depth int
	Macro string

	paused         *bool
	consumeNewline bool
}

// ConsumeTrailingNewline marks this invocation's result as spec §4.1's
// "None" case: the Lexer swallows one trailing newline if the rest of
// the line is blank. Used by statement-like builtins such as `define`
// and `que` that produce no visible output.
func (c *EvalContext) ConsumeTrailingNewline() { c.consumeNewline = true }

// ProcessChunk is the entry point deferred bodies use to evaluate a
// subset of their own (or any) argument text — e.g. `ifelse` evaluating
// only the chosen branch, `foreach` re-expanding its body once per
// element. It is ordinary call-stack recursion, bounded by the
// evaluator's depth cap (spec §4.1, §4.5, §9).
func (c *EvalContext) ProcessChunk(text string) (string, error) {
	return c.Proc.evalChunk(text, c.Pos, c.Depth)
}

// BindLocal binds name to value at the context's own depth — the same
// depth ProcessChunk evaluates at — so a body invoked via ProcessChunk
// can resolve it. Used for per-iteration loop variables like `foreach`'s
// `item` and `forloop`'s `i`.
func (c *EvalContext) BindLocal(name, value string) {
	c.Proc.macros.DefineLocal(c.Depth, &MacroRecord{Name: name, Body: value})
}

// SetFlow sets the evaluator-wide flow-control flag (`escape`, `exit`).
func (c *EvalContext) SetFlow(f FlowControl) { c.Proc.state.Flow = f }

// Pause toggles the evaluator's pause state (`pause(true|false)`): while
// paused, only `pause` itself is evaluated and everything else passes
// through as raw text.
func (c *EvalContext) Pause(on bool) {
	if c.paused != nil {
		*c.paused = on
	}
}

// Processor ties every component together: the single owned context
// described in spec §5.
type Processor struct {
	cfg    Config
	lexer  *Lexer
	macros *MacroMap
	state  *State
	relay  *RelayStack
	pipes  *PipeStore
	queue  *Queue
	auth   *AuthGate
	hooks  *HookSet
	logger *Logger

	mainOut Sink
	paused  bool

	sourceLines []string
}

// Config configures a Processor (spec §6's CLI surface, minus the CLI
// binding layer itself).
type Config struct {
	Behavior      Behavior
	Hygiene       HygieneMode
	Newline       Newline
	CommentPolicy CommentPolicy
	MaxDepth      int

	FileIn  AuthFlag
	FileOut AuthFlag
	Env     AuthFlag
	Cmd     AuthFlag

	Debug bool
}

// DefaultConfig returns the spec-documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Behavior:      BehaviorStrict,
		Hygiene:       HygieneNone,
		Newline:       NewlineUnix,
		CommentPolicy: CommentNone,
		MaxDepth:      256,
		FileIn:        AuthOpen,
		FileOut:       AuthOpen,
		Env:           AuthOpen,
		Cmd:           AuthOpen,
	}
}

type sinkWriter struct {
	w *strings.Builder
}

func (s *sinkWriter) WriteString(str string) (int, error) { return s.w.WriteString(str) }

// New creates a Processor writing to out.
func New(cfg *Config, out Sink) *Processor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := NewLogger(cfg.Debug)

	p := &Processor{
		cfg:     *cfg,
		logger:  logger,
		mainOut: out,
	}
	p.state = NewState()
	p.state.Behavior = cfg.Behavior
	p.state.Hygiene = cfg.Hygiene
	p.state.Newline = cfg.Newline
	p.state.SetMaxDepth(cfg.MaxDepth)

	p.macros = NewMacroMap(logger)
	p.macros.SetHygiene(cfg.Hygiene)

	p.relay = NewRelayStack(out, p.macros)
	p.pipes = NewPipeStore(logger)
	p.queue = NewQueue()
	p.hooks = NewHookSet()

	p.auth = NewAuthGate(logger)
	p.auth.Set(AuthFileIn, cfg.FileIn)
	p.auth.Set(AuthFileOut, cfg.FileOut)
	p.auth.Set(AuthEnv, cfg.Env)
	p.auth.Set(AuthCmd, cfg.Cmd)

	lcfg := DefaultLexerConfig()
	lcfg.CommentAt = cfg.CommentPolicy
	lcfg.Newline = cfg.Newline
	p.lexer = NewLexer(lcfg)

	RegisterStandardLibrary(p.macros)

	return p
}

func (p *Processor) Macros() *MacroMap   { return p.macros }
func (p *Processor) Relay() *RelayStack  { return p.relay }
func (p *Processor) Pipes() *PipeStore   { return p.pipes }
func (p *Processor) Queue() *Queue       { return p.queue }
func (p *Processor) Auth() *AuthGate     { return p.auth }
func (p *Processor) Hooks() *HookSet     { return p.hooks }
func (p *Processor) Logger() *Logger     { return p.logger }
func (p *Processor) State() *State       { return p.state }

// Execute runs text through the engine at depth 0 and writes results to
// the Processor's configured output.
func (p *Processor) Execute(text string) error {
	return p.ExecuteNamed(text, "")
}

// ExecuteFile reads and runs the named file.
func (p *Processor) ExecuteFile(path string) error {
	if err := p.auth.Check(AuthFileIn, "include", nil); err != nil {
		return err
	}
	content, err := readFile(path)
	if err != nil {
		return wrapRadError(ErrInvalidFile, nil, "", err)
	}
	return p.ExecuteNamed(content, path)
}

// ExecuteNamed runs text as the named input (spec §8 end-to-end
// scenarios always name an input for diagnostics).
func (p *Processor) ExecuteNamed(text string, filename string) error {
	p.sourceLines = strings.Split(text, "\n")
	_, err := p.evalChunkTo(text, &SourcePosition{Filename: filename, Line: 1, Column: 1}, 0, p.relay)
	if err != nil {
		if fs, ok := err.(*flowSignal); ok {
			_ = fs
			return nil
		}
		if radErr, ok := err.(*RadError); ok {
			p.logger.Diagnostic(radErr, p.sourceLines)
		}
		return err
	}
	p.drainQueueAtTopLevel(filename)
	return nil
}

// drainQueueAtTopLevel runs every queued chunk through the main parse,
// per spec §4.5 step 9 (only at depth 0).
func (p *Processor) drainQueueAtTopLevel(filename string) {
	for p.queue.Len() > 0 {
		for _, chunk := range p.queue.Drain() {
			_, err := p.evalChunkTo(chunk, &SourcePosition{Filename: filename, Line: 1, Column: 1}, 0, p.relay)
			if err != nil {
				if radErr, ok := err.(*RadError); ok {
					p.logger.Diagnostic(radErr, p.sourceLines)
				}
			}
		}
	}
	if p.state.Hygiene == HygieneInput {
		p.macros.PurgeVolatile()
	}
}

// evalChunk runs text through the lexer/dispatch loop and returns the
// resulting text (used by ProcessChunk, i.e. by deferred bodies that
// want a substring evaluated in place rather than written to a sink).
func (p *Processor) evalChunk(text string, pos *SourcePosition, depth int) (string, error) {
	var b strings.Builder
	return p.evalChunkTo(text, pos, depth, &sinkWriter{w: &b})
}

func (p *Processor) evalChunkTo(text string, pos *SourcePosition, depth int, sink Sink) (string, error) {
	var capture strings.Builder
	teeSink := sink
	if _, isCapture := sink.(*sinkWriter); isCapture {
		// already capturing; reuse directly
	} else {
		teeSink = &teeWriter{primary: sink, capture: &capture}
	}

	var firstErr error
	dispatch := func(frag *Fragment) (string, bool, bool) {
		if firstErr != nil {
			return "", false, true
		}
		result, isNone, err := p.dispatchFragment(frag, depth)
		if err != nil {
			firstErr = err
			if fs, ok := err.(*flowSignal); ok && fs.flow == FlowExit {
				return "", false, true
			}
			return "", false, false
		}
		return result, isNone, false
	}

	line, col := 1, 1
	if pos != nil {
		line, col = pos.Line, pos.Column
	}
	filename := ""
	if pos != nil {
		filename = pos.Filename
	}

	if err := p.lexer.ProcessChunk(text, filename, line, col, teeSink, dispatch); err != nil {
		return "", err
	}
	if firstErr != nil {
		return "", firstErr
	}

	if sw, ok := sink.(*sinkWriter); ok {
		return sw.w.String(), nil
	}
	return capture.String(), nil
}

// teeWriter mirrors writes to both the real sink and a capture buffer,
// so evalChunkTo can both produce side effects (through sink) and hand
// back the text it wrote (for embedding in a parent expansion).
type teeWriter struct {
	primary Sink
	capture *strings.Builder
}

func (t *teeWriter) WriteString(s string) (int, error) {
	t.capture.WriteString(s)
	return t.primary.WriteString(s)
}

// dispatchFragment implements spec §4.5's per-fragment evaluator steps.
func (p *Processor) dispatchFragment(frag *Fragment, depth int) (result string, isNone bool, err error) {
	// Step 1: flow control.
	if p.state.Flow == FlowExit {
		return "", false, &flowSignal{flow: FlowExit}
	}
	if p.state.Flow == FlowEscape {
		return frag.Whole, false, nil
	}

	// Step 2: pause state — only `pause` itself evaluates.
	if p.paused && frag.Name != "pause" && frag.Name != "unpause" {
		return frag.Whole, false, nil
	}

	// nextDepth is this call's own scope: anything it binds as a Local
	// (Runtime-call parameters, or a Deferred body's loop variable via
	// ctx.BindLocal) lives here and is purged when the call returns,
	// regardless of which variant handled it — spec §9's "use the depth
	// parameter as both scope key and recursion bound".
	nextDepth, derr := p.state.EnterDepth()
	if derr != nil {
		return "", false, derr
	}
	defer p.state.LeaveDepth()
	defer p.macros.PurgeDepth(nextDepth)

	resolved, ok := p.macros.Resolve(frag.Name, depth)
	if !ok {
		return p.handleUnknown(frag)
	}

	// A dispatched fragment counts toward every armed hook trigger; a
	// trigger that reaches its target queues its macro to run once the
	// current expansion finishes, reusing the same end-of-input queue
	// `que` writes to (spec §3's Hook state, §4.6's Queue).
	for _, target := range p.hooks.Tick() {
		p.queue.Push("$" + target + "()")
	}

	ctx := &EvalContext{Proc: p, Pos: frag.Pos, Depth: nextDepth, Macro: frag.Name, paused: &p.paused}

	switch resolved.Variant {
	case VariantDeferred:
		out, derr2 := resolved.Deferred.handler(frag.Args, nextDepth, ctx)
		return p.handleBodyResult(frag, out, derr2, ctx)

	case VariantFunction:
		parts, serr := SplitArgs(frag.Args, ',', SplitAlways(), false)
		if serr != nil && frag.Args != "" {
			return p.handleFailure(frag, serr)
		}
		if err := ExpectMinParts(parts, resolved.Function.arity, frag.Name, frag.Pos); err != nil {
			return p.handleFailure(frag, err)
		}
		for i, part := range parts {
			expanded, eerr := p.evalChunk(part.String(), frag.Pos, nextDepth)
			if eerr != nil {
				return p.handleBodyResult(frag, "", eerr, ctx)
			}
			parts[i] = modifiedCursor(expanded)
		}
		out, ferr := resolved.Function.handler(parts, ctx)
		return p.handleBodyResult(frag, out, ferr, ctx)

	case VariantRuntime, VariantLocal:
		rec := resolved.Record
		if resolved.Variant == VariantRuntime {
			parts, serr := SplitArgs(frag.Args, ',', SplitAlways(), false)
			if serr != nil && frag.Args != "" {
				return p.handleFailure(frag, serr)
			}
			if err := ExpectMinParts(parts, len(rec.Params), frag.Name, frag.Pos); err != nil {
				return p.handleFailure(frag, err)
			}
			for i, param := range rec.Params {
				val := parts[i].String()
				if param.Type == ParamCText {
					val = strings.TrimSpace(val)
				}
				expanded, eerr := p.evalChunk(val, frag.Pos, nextDepth)
				if eerr != nil {
					return p.handleFailure(frag, eerr)
				}
				p.macros.DefineLocal(nextDepth, &MacroRecord{Name: param.Name, Body: expanded})
			}
		}
		out, eerr := p.evalChunk(rec.Body, frag.Pos, nextDepth)
		return p.handleBodyResult(frag, out, eerr, ctx)
	}

	return "", false, newRadError(ErrInvalidArgument, frag.Pos, frag.Name, "unresolvable macro variant")
}

func (p *Processor) handleUnknown(frag *Fragment) (string, bool, error) {
	switch p.state.Behavior {
	case BehaviorStrict, BehaviorAssert:
		return "", false, newRadError(ErrInvalidArgument, frag.Pos, frag.Name, "unknown macro %q", frag.Name)
	case BehaviorLenient:
		p.logger.Warn(CatMacro, "unknown macro %q, emitting raw text", frag.Name)
		return frag.Whole, false, nil
	default: // BehaviorPurge
		return "", true, nil
	}
}

// handleBodyResult applies spec §7's per-mode failure recovery. Go
// handlers return a plain string, so the None-vs-empty-string
// distinction of spec §4.5 step 8 collapses to "": a handler that
// wants the consume-trailing-newline behavior of None calls
// ctx.ConsumeTrailingNewline explicitly instead of returning a sentinel.
func (p *Processor) handleBodyResult(frag *Fragment, out string, err error, ctx *EvalContext) (string, bool, error) {
	// A flow signal (raised by a nested exit() several call levels down,
	// via a body evaluated through p.evalChunk) must propagate untouched
	// — it is not a failure subject to Strict/Lenient/Purge/Assert
	// recovery.
	if fs, ok := err.(*flowSignal); ok {
		return "", false, fs
	}
	if err != nil {
		return p.handleFailure(frag, err)
	}
	// `exit` sets the flow flag synchronously from within its own call;
	// raise the signal now rather than waiting for a fragment that may
	// never come (e.g. only trailing plain text follows in this chunk).
	if p.state.Flow == FlowExit {
		return out, false, &flowSignal{flow: FlowExit}
	}
	return out, ctx.consumeNewline, nil
}

func (p *Processor) handleFailure(frag *Fragment, err error) (string, bool, error) {
	radErr, ok := err.(*RadError)
	if !ok {
		radErr = wrapRadError(ErrInvalidArgument, frag.Pos, frag.Name, err)
	}
	switch p.state.Behavior {
	case BehaviorStrict:
		return "", false, radErr
	case BehaviorAssert:
		p.logger.RecordAssert(false)
		return "", false, nil
	case BehaviorLenient:
		p.logger.Warn(CatEval, "%s", radErr.Error())
		return frag.Whole, false, nil
	default: // BehaviorPurge
		return "", true, nil
	}
}

// AssertEqual is the core of the assert-mode comparison macros
// (spec §7): it records a pass when a equals b and a fail otherwise,
// and returns the same result. It does not check or depend on the
// behavior mode.
func (c *EvalContext) AssertEqual(a, b string) bool {
	pass := a == b
	c.Proc.logger.RecordAssert(pass)
	return pass
}

// parseTypedArg implements the Function-macro typed
// coercion of spec §4.5 step 6.
func parseTypedArg(p ParamType, raw string) (interface{}, error) {
	switch p {
	case ParamBool:
		if raw == "" {
			return false, nil
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, newRadError(ErrInvalidArgument, nil, "", "invalid bool %q", raw)
		}
		return v, nil
	case ParamInt:
		if raw == "" {
			return nil, newRadError(ErrInvalidArgument, nil, "", "expected integer, got empty argument")
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, newRadError(ErrInvalidArgument, nil, "", "invalid integer %q", raw)
		}
		return v, nil
	case ParamUint:
		if raw == "" {
			return nil, newRadError(ErrInvalidArgument, nil, "", "expected unsigned integer, got empty argument")
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, newRadError(ErrInvalidArgument, nil, "", "invalid unsigned integer %q", raw)
		}
		return v, nil
	case ParamFloat:
		if raw == "" {
			return nil, newRadError(ErrInvalidArgument, nil, "", "expected float, got empty argument")
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, newRadError(ErrInvalidArgument, nil, "", "invalid float %q", raw)
		}
		return v, nil
	case ParamCText:
		return strings.TrimSpace(raw), nil
	default: // ParamText, ParamPath, ParamEnum
		return raw, nil
	}
}
