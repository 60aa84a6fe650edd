package rad

import (
	"strconv"
	"strings"
)

// registerTextMacros installs the string-shaping builtins. Boundary
// clamping for sub/head/tail/substr follows the same "clamp, never
// panic on an out-of-range index" rule the teacher's own slicing
// helpers use throughout executor.go; an empty index argument clamps
// to its documented default rather than erroring.
func registerTextMacros(m *MacroMap) {
	m.RegisterFunction("trim", 1, "trim(text): remove leading/trailing whitespace",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			return strings.TrimSpace(args[0].String()), nil
		})

	m.RegisterFunction("chomp", 1, "chomp(text): collapse runs of blank lines to one blank line and drop trailing newlines",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			return chompText(args[0].String()), nil
		})

	m.RegisterFunction("comp", 1, "comp(text): trim(chomp(text))",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			return strings.TrimSpace(chompText(args[0].String())), nil
		})

	m.RegisterFunction("upper", 1, "upper(text): uppercase",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			return strings.ToUpper(args[0].String()), nil
		})

	m.RegisterFunction("lower", 1, "lower(text): lowercase",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			return strings.ToLower(args[0].String()), nil
		})

	// sub(a,b,s) takes its indices first and the string last, matching
	// the boundary behaviors spec §8 names directly: a==b is empty,
	// a>len(s) clamps to empty, an empty b runs to end, an empty a
	// starts at 0.
	m.RegisterFunction("sub", 3, "sub(a,b,s): substring of s from index a to b, clamped; empty a=0, empty b=end",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			text := []rune(args[2].String())
			start, err := parseClampIndex(args[0].String(), "sub", ctx.Pos, 0)
			if err != nil {
				return "", err
			}
			end, err := parseClampIndex(args[1].String(), "sub", ctx.Pos, len(text))
			if err != nil {
				return "", err
			}
			start = clamp(start, 0, len(text))
			end = clamp(end, start, len(text))
			return string(text[start:end]), nil
		})

	m.RegisterFunction("substr", 3, "substr(text,start,end): clamped substring by start/end index; empty start=0, empty end=end",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			text := []rune(args[0].String())
			start, err := parseClampIndex(args[1].String(), "substr", ctx.Pos, 0)
			if err != nil {
				return "", err
			}
			end, err := parseClampIndex(args[2].String(), "substr", ctx.Pos, len(text))
			if err != nil {
				return "", err
			}
			start = clamp(start, 0, len(text))
			end = clamp(end, start, len(text))
			return string(text[start:end]), nil
		})

	m.RegisterFunction("head", 2, "head(text,n): first n runes, clamped",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			text := []rune(args[0].String())
			n, err := parseClampIndex(args[1].String(), "head", ctx.Pos, 0)
			if err != nil {
				return "", err
			}
			n = clamp(n, 0, len(text))
			return string(text[:n]), nil
		})

	m.RegisterFunction("tail", 2, "tail(text,n): last n runes, clamped",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			text := []rune(args[0].String())
			n, err := parseClampIndex(args[1].String(), "tail", ctx.Pos, 0)
			if err != nil {
				return "", err
			}
			n = clamp(n, 0, len(text))
			return string(text[len(text)-n:]), nil
		})

	// arr(expr) demonstrates spec §4.2's GreedyStrip variant directly:
	// one part, no further splitting, with a literal span's \*...*\
	// markers removed — spec §8 scenario 4's
	// "$arr(\*1,2,3*\) -> 1,2,3 (single argument after strip)".
	m.RegisterDeferred("arr", "arr(expr): the whole argument as one literal-stripped blob",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitGreedyStrip(), true)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 1, "arr", ctx.Pos); err != nil {
				return "", err
			}
			return parts[0].String(), nil
		})

	// join(delim,elem1[,elem2...]) takes its delimiter first and its
	// elements as trailing arguments, the same shape foreach uses, so a
	// literal span around one element suppresses just that element's
	// internal commas rather than fighting the outer Function-arity
	// split the way a wrapped "(list,delim)" pair would.
	m.RegisterDeferred("join", "join(delim,elem1[,elem2...]): join trailing elements with delim",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitAlways(), true)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 1, "join", ctx.Pos); err != nil {
				return "", err
			}
			delim := parts[0].String()
			elems := make([]string, 0, len(parts)-1)
			for _, p := range parts[1:] {
				expanded, err := ctx.ProcessChunk(p.String())
				if err != nil {
					return "", err
				}
				elems = append(elems, strings.TrimSpace(expanded))
			}
			return strings.Join(elems, delim), nil
		})

	m.RegisterFunction("regex", 3, "regex(text,pattern,replacement): cached regex substitution",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			re, err := ctx.Proc.state.CompileRegex(args[1].String())
			if err != nil {
				return "", newRadError(ErrInvalidArgument, ctx.Pos, "regex", "invalid pattern %q: %v", args[1].String(), err)
			}
			return re.ReplaceAllString(args[0].String(), args[2].String()), nil
		})
}

func chompText(s string) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// parseClampIndex parses a clamp-target index, treating an empty (or
// all-whitespace) argument as def rather than an error — spec §8's
// "empty a starts at 0 / empty b runs to end" boundary behaviors.
func parseClampIndex(raw, macro string, pos *SourcePosition, def int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return def, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, newRadError(ErrInvalidConversion, pos, macro, "expected integer, got %q", raw)
	}
	return n, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
