package rad

import (
	"os/exec"
	"strings"
)

// registerExecMacros installs the one capability that exercises
// AuthCmd: `exec`, which shells out and returns trimmed stdout. Kept to
// a single macro deliberately — spec.md §1 places sandboxed execution
// of external bodies beyond the auth checks themselves out of scope.
func registerExecMacros(m *MacroMap) {
	m.RegisterFunction("exec", 1, "exec(command): run a command through the shell and return its trimmed stdout",
		func(args []ArgCursor, ctx *EvalContext) (string, error) {
			if err := ctx.Proc.auth.Check(AuthCmd, "exec", ctx.Pos); err != nil {
				return "", err
			}
			cmd := exec.Command("sh", "-c", args[0].String())
			out, err := cmd.Output()
			if err != nil {
				return "", wrapRadError(ErrInvalidCommandOption, ctx.Pos, "exec", err)
			}
			return strings.TrimRight(string(out), "\n"), nil
		})
}
