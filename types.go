package rad

import (
	"fmt"
	"time"
)

// SourcePosition tracks a location in a source file for diagnostics.
type SourcePosition struct {
	Filename string
	Line     int // 1-based
	Column   int // 1-based
	MacroCtx *MacroContext
}

func (p *SourcePosition) String() string {
	if p == nil {
		return "<unknown>"
	}
	name := p.Filename
	if name == "" {
		name = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", name, p.Line, p.Column)
}

// MacroContext tracks the chain of macro invocations leading to a
// diagnostic, so an error inside a deeply nested macro can report both
// where it was defined and who called it.
type MacroContext struct {
	MacroName      string
	InvocationPos  *SourcePosition
	DefinitionPos  *SourcePosition
	Parent         *MacroContext
}

// ParamType enumerates the coercions a Function parameter can request.
type ParamType int

const (
	ParamBool ParamType = iota
	ParamInt
	ParamUint
	ParamFloat
	ParamPath
	ParamText
	ParamCText // trim before typing
	ParamEnum  // text whose validity the body verifies
)

func (t ParamType) String() string {
	switch t {
	case ParamBool:
		return "Bool"
	case ParamInt:
		return "Int"
	case ParamUint:
		return "Uint"
	case ParamFloat:
		return "Float"
	case ParamPath:
		return "Path"
	case ParamText:
		return "Text"
	case ParamCText:
		return "CText"
	case ParamEnum:
		return "Enum"
	default:
		return "Unknown"
	}
}

// Parameter describes one positional parameter of a runtime macro or a
// typed Function macro.
type Parameter struct {
	Name string
	Type ParamType
}

// Fragment is the transient record the Lexer builds while recognizing a
// macro invocation and the Evaluator later dispatches.
type Fragment struct {
	Whole string // the whole invocation text as seen, for Escape passthrough
	Name  string
	Args  string // raw text between the outer parentheses

	TrimInput    bool // invocation was wrapped so surrounding whitespace in args should trim
	PipeInput    bool // result should be piped rather than written to sink
	YieldLiteral bool // result should bypass further lexing (re-entrant guard)
	Trimmed      bool // args were already trimmed once

	Pos *SourcePosition
}

// MacroRecord is a user-defined (Runtime or Local) macro.
type MacroRecord struct {
	Name   string
	Params []Parameter
	Body   string
	Desc   string

	Depth     int // only meaningful for Local records
	Volatile  bool
	Timestamp time.Time
}

// MacroVariant identifies which of the four tables a macro resolved from.
type MacroVariant int

const (
	VariantFunction MacroVariant = iota
	VariantDeferred
	VariantRuntime
	VariantLocal
)

func (v MacroVariant) String() string {
	switch v {
	case VariantFunction:
		return "Function"
	case VariantDeferred:
		return "Deferred"
	case VariantRuntime:
		return "Runtime"
	case VariantLocal:
		return "Local"
	default:
		return "Unknown"
	}
}

// MacroKind is used by Rename/Undefine to select which table(s) to probe.
type MacroKind int

const (
	KindAny MacroKind = iota
	KindFunction
	KindDeferred
	KindRuntime
	KindLocal
)

// Signature is the JSON-serializable shape of a macro's signature, used
// by the --signature CLI flag (spec §6).
type Signature struct {
	Variant string   `json:"variant"`
	Name    string   `json:"name"`
	Args    []string `json:"args"`
	Expr    string   `json:"expr"`
	Desc    string   `json:"desc,omitempty"`
}

// HygieneMode controls volatile/persistent splitting of the Runtime
// table (spec §3).
type HygieneMode int

const (
	HygieneNone HygieneMode = iota
	HygieneAseptic
	HygieneInput
)

func (h HygieneMode) String() string {
	switch h {
	case HygieneNone:
		return "None"
	case HygieneAseptic:
		return "Aseptic"
	case HygieneInput:
		return "Input"
	default:
		return "Unknown"
	}
}

// Behavior selects how the Evaluator reacts to a dispatch-time failure
// (spec §4.5, §7).
type Behavior int

const (
	BehaviorStrict Behavior = iota
	BehaviorLenient
	BehaviorPurge
	BehaviorAssert
)

func (b Behavior) String() string {
	switch b {
	case BehaviorStrict:
		return "Strict"
	case BehaviorLenient:
		return "Lenient"
	case BehaviorPurge:
		return "Purge"
	case BehaviorAssert:
		return "Assert"
	default:
		return "Unknown"
	}
}

// FlowControl is the evaluator-wide control-flow signal (spec §3, §9).
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowEscape
	FlowExit
)

// AuthCapability enumerates the capabilities the Auth Gate tracks.
type AuthCapability int

const (
	AuthFileIn AuthCapability = iota
	AuthFileOut
	AuthEnv
	AuthCmd
	authCapabilityCount
)

func (c AuthCapability) String() string {
	switch c {
	case AuthFileIn:
		return "file-in"
	case AuthFileOut:
		return "file-out"
	case AuthEnv:
		return "env"
	case AuthCmd:
		return "cmd"
	default:
		return "unknown"
	}
}

// AuthFlag is the three-valued permission for one capability.
type AuthFlag int

const (
	AuthRestricted AuthFlag = iota
	AuthWarn
	AuthOpen
)

func (f AuthFlag) String() string {
	switch f {
	case AuthRestricted:
		return "Restricted"
	case AuthWarn:
		return "Warn"
	case AuthOpen:
		return "Open"
	default:
		return "Unknown"
	}
}

// Newline selects the line-ending convention used when writing output.
type Newline int

const (
	NewlineUnix Newline = iota
	NewlinePlatform
)

// CommentPolicy selects where the comment character is recognized.
type CommentPolicy int

const (
	CommentNone CommentPolicy = iota
	CommentStart
	CommentAny
)
