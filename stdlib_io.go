package rad

import (
	"os"
	"strings"
)

// registerIOMacros installs the file, pipe, queue, relay, and
// environment builtins. The file, environment and file-relay macros
// route through the Auth Gate (spec §4.7); pipe, queue, halt and the
// temp relay target do not.
func registerIOMacros(m *MacroMap) {
	m.RegisterDeferred("include", "include(path): expand a file's contents in place, cycle-checked",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			path := strings.TrimSpace(raw)
			if err := ctx.Proc.auth.Check(AuthFileIn, "include", ctx.Pos); err != nil {
				return "", err
			}
			if p, ok := ctx.Proc.relay.CurrentFilePath(); ok && samePath(p, path) {
				return "", newRadError(ErrInvalidFile, ctx.Pos, "include", "cannot include the file currently being relayed to")
			}
			release, err := ctx.Proc.state.EnterSandbox(path)
			if err != nil {
				return "", err
			}
			defer release()

			content, rerr := readFile(path)
			if rerr != nil {
				return "", wrapRadError(ErrInvalidFile, ctx.Pos, "include", rerr)
			}
			// Use this call's own depth directly, the same convention
			// evaluator.go's Runtime-body dispatch uses (its body is
			// evaluated at its own nextDepth, not nextDepth+1), so a Local
			// bound at the include call's scope stays resolvable here.
			return ctx.Proc.evalChunk(content, &SourcePosition{Filename: path, Line: 1, Column: 1}, depth)
		})

	m.RegisterDeferred("read", "read(path): inline a file's raw contents without expansion",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			path := strings.TrimSpace(raw)
			if err := ctx.Proc.auth.Check(AuthFileIn, "read", ctx.Pos); err != nil {
				return "", err
			}
			content, err := readFile(path)
			if err != nil {
				return "", wrapRadError(ErrInvalidFile, ctx.Pos, "read", err)
			}
			return content, nil
		})

	m.RegisterFunction("pipe", 1, "pipe(value): store value in the anonymous pipe",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			ctx.Proc.pipes.Pipe(args[0].String())
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterFunction("pipeto", 2, "pipeto(name,value): store value in a named pipe",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			ctx.Proc.pipes.PipeTo(strings.TrimSpace(args[0].String()), args[1].String())
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterFunction("anon", 0, "anon(): read and consume the anonymous pipe",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			return ctx.Proc.pipes.ReadAnonymous(), nil
		})

	m.RegisterFunction("pipeget", 1, "pipeget(name): read and consume a named pipe",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			return ctx.Proc.pipes.Read(strings.TrimSpace(args[0].String())), nil
		})

	m.RegisterDeferred("que", "que(chunk): append raw text to the end-of-input queue",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			ctx.Proc.queue.Push(raw)
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterDeferred("queif", "queif(cond,chunk): queue raw text only when cond is truthy",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitDeterred(1), false)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 2, "queif", ctx.Pos); err != nil {
				return "", err
			}
			cond, err := ctx.ProcessChunk(parts[0].String())
			if err != nil {
				return "", err
			}
			ctx.Proc.queue.PushIf(isTruthy(cond), parts[1].String())
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterDeferred("relay", "relay(kind[,target]): redirect output to temp/file/macro/stream",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitDeterred(1), false)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 1, "relay", ctx.Pos); err != nil {
				return "", err
			}
			kind := strings.TrimSpace(parts[0].String())
			target := ""
			if len(parts) > 1 {
				target = strings.TrimSpace(parts[1].String())
			}
			switch kind {
			case "temp":
				err = ctx.Proc.relay.RelayToTemp()
			case "file":
				if err := ctx.Proc.auth.Check(AuthFileOut, "relay", ctx.Pos); err != nil {
					return "", err
				}
				err = ctx.Proc.relay.RelayToFile(target)
			case "macro":
				if !ctx.Proc.macros.IsRuntime(target) {
					return "", newRadError(ErrInvalidArgument, ctx.Pos, "relay", "relay target %q is not a runtime macro", target)
				}
				err = ctx.Proc.relay.RelayToMacro(target)
			case "stream":
				_, err = ctx.Proc.relay.StartStream(target)
			default:
				return "", newRadError(ErrInvalidArgument, ctx.Pos, "relay", "unknown relay kind %q", kind)
			}
			if err != nil {
				return "", err
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterFunction("halt", 0, "halt(): end the innermost active relay",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			if err := ctx.Proc.relay.Halt(); err != nil {
				return "", err
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterFunction("env", 1, "env(name): read an environment variable",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			name := strings.TrimSpace(args[0].String())
			if err := ctx.Proc.auth.Check(AuthEnv, "env", ctx.Pos); err != nil {
				return "", err
			}
			return os.Getenv(name), nil
		})

	m.RegisterFunction("envset", 2, "envset(name,value): set an environment variable for this process",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			name := strings.TrimSpace(args[0].String())
			if err := ctx.Proc.auth.Check(AuthEnv, "envset", ctx.Pos); err != nil {
				return "", err
			}
			if err := os.Setenv(name, args[1].String()); err != nil {
				return "", wrapRadError(ErrInvalidArgument, ctx.Pos, "envset", err)
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})
}

func samePath(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
