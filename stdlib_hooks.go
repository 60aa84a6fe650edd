package rad

import (
	"strconv"
	"strings"
)

// registerHookMacros installs the in-script surface of the hook
// subsystem (spec §3's optional Hook state, `hooks.go`). The CLI-level
// hook registration `original_source/src/hookmap.rs` exposes is out of
// scope here (spec.md §1 excludes the CLI/argument binding layer), so
// `hookset` gives scripts a reachable way to register a trigger;
// `hookoff` mirrors the original's `hookoff` macro for disabling one.
func registerHookMacros(m *MacroMap) {
	m.RegisterFunction("hookset", 3, "hookset(target_macro,count,resettable): register a macro-count hook, piping its id to the anonymous pipe",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			target := strings.TrimSpace(args[0].String())
			count, err := strconv.Atoi(strings.TrimSpace(args[1].String()))
			if err != nil || count <= 0 {
				return "", newRadError(ErrInvalidArgument, ctx.Pos, "hookset", "count must be a positive integer")
			}
			resettable := isTruthy(args[2].String())
			id := ctx.Proc.hooks.Register(target, count, resettable)
			ctx.Proc.pipes.Pipe(id)
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	// Deferred, so it receives its argument raw and expands it itself
	// with ctx.ProcessChunk: a nested call like `$hookoff($anon())`
	// reads back the id `hookset` piped out, the same way `queif`
	// expands its condition.
	m.RegisterDeferred("hookoff", "hookoff(id): disable a hook trigger by the id hookset piped out",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			id, err := ctx.ProcessChunk(raw)
			if err != nil {
				return "", err
			}
			ctx.Proc.hooks.Disable(strings.TrimSpace(id))
			ctx.ConsumeTrailingNewline()
			return "", nil
		})
}
