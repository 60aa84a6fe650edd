package rad

import (
	"strconv"
	"strings"
)

// registerControlMacros installs the branching/looping/flow-control
// builtins. Branches and loop bodies are Deferred so only the taken
// path is ever expanded — grounded on the same "do not evaluate the
// unchosen branch" discipline spec.md §4.5 requires of Deferred.
func registerControlMacros(m *MacroMap) {
	m.RegisterDeferred("ifelse", "ifelse(cond,then[,else]): branch on a truthy condition",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitDeterred(2), false)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 2, "ifelse", ctx.Pos); err != nil {
				return "", err
			}
			cond, err := ctx.ProcessChunk(parts[0].String())
			if err != nil {
				return "", err
			}
			if isTruthy(cond) {
				return ctx.ProcessChunk(parts[1].String())
			}
			if len(parts) > 2 {
				return ctx.ProcessChunk(parts[2].String())
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterDeferred("foreach", "foreach(body,elem1[,elem2...]): run body once per trailing element, bound to \"item\". A literal span around an element (\\*...*\\) keeps its own commas from being treated as further elements.",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			// The first argument is the body template (left raw — it is
			// re-expanded once per element, like ifelse's branches), every
			// argument after it is one element in iteration order. A
			// literal span suppresses the comma split the normal way
			// (spec §4.2 rule 2) and is stripped per spec example 4.
			parts, err := SplitArgs(raw, ',', SplitAlways(), true)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 1, "foreach", ctx.Pos); err != nil {
				return "", err
			}
			body := parts[0].String()

			var out strings.Builder
			for _, e := range parts[1:] {
				expanded, err := ctx.ProcessChunk(e.String())
				if err != nil {
					return "", err
				}
				ctx.BindLocal("item", strings.TrimSpace(expanded))
				bodyOut, err := ctx.ProcessChunk(body)
				if err != nil {
					return "", err
				}
				out.WriteString(bodyOut)
			}
			return out.String(), nil
		})

	m.RegisterDeferred("forloop", "forloop(start,end,body): numeric loop, inclusive bounds, bound to \"i\"",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitDeterred(2), false)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 3, "forloop", ctx.Pos); err != nil {
				return "", err
			}
			startText, err := ctx.ProcessChunk(parts[0].String())
			if err != nil {
				return "", err
			}
			endText, err := ctx.ProcessChunk(parts[1].String())
			if err != nil {
				return "", err
			}
			start, serr := strconv.Atoi(strings.TrimSpace(startText))
			if serr != nil {
				return "", newRadError(ErrInvalidConversion, ctx.Pos, "forloop", "invalid start %q", startText)
			}
			end, eerr := strconv.Atoi(strings.TrimSpace(endText))
			if eerr != nil {
				return "", newRadError(ErrInvalidConversion, ctx.Pos, "forloop", "invalid end %q", endText)
			}
			body := parts[2].String()

			var out strings.Builder
			step := 1
			if end < start {
				step = -1
			}
			for n := start; (step > 0 && n <= end) || (step < 0 && n >= end); n += step {
				ctx.BindLocal("i", strconv.Itoa(n))
				expanded, err := ctx.ProcessChunk(body)
				if err != nil {
					return "", err
				}
				out.WriteString(expanded)
			}
			return out.String(), nil
		})

	m.RegisterDeferred("repeat", "repeat(n,body): expand body n times",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitDeterred(1), false)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 2, "repeat", ctx.Pos); err != nil {
				return "", err
			}
			countText, err := ctx.ProcessChunk(parts[0].String())
			if err != nil {
				return "", err
			}
			n, cerr := strconv.Atoi(strings.TrimSpace(countText))
			if cerr != nil {
				return "", newRadError(ErrInvalidConversion, ctx.Pos, "repeat", "invalid repeat count %q", countText)
			}
			if n < 0 {
				return "", newRadError(ErrInvalidArgument, ctx.Pos, "repeat", "repeat count must be non-negative, got %d", n)
			}
			body := parts[1].String()
			var out strings.Builder
			for i := 0; i < n; i++ {
				expanded, err := ctx.ProcessChunk(body)
				if err != nil {
					return "", err
				}
				out.WriteString(expanded)
			}
			return out.String(), nil
		})

	m.RegisterFunction("exit", 0, "exit(): stop processing immediately",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			ctx.SetFlow(FlowExit)
			return "", nil
		})

	m.RegisterFunction("escape", 0, "escape(): emit all further macro text verbatim",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			ctx.SetFlow(FlowEscape)
			return "", nil
		})

	m.RegisterFunction("pause", 1, "pause(true|false): toggle pause state",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			v, err := strconv.ParseBool(strings.TrimSpace(args[0].String()))
			if err != nil {
				return "", newRadError(ErrInvalidArgument, ctx.Pos, "pause", "expected bool, got %q", args[0].String())
			}
			ctx.Pause(v)
			ctx.ConsumeTrailingNewline()
			return "", nil
		})
}

// isTruthy implements the condition coercion ifelse/queif use: empty
// string, "false", and "0" are false; everything else is true.
func isTruthy(s string) bool {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "false", "0":
		return false
	default:
		return true
	}
}
