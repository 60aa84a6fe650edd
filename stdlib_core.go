package rad

import "strings"

// registerCoreMacros installs the macro-table manipulation builtins:
// define/undef/rename/append/replace. All are Deferred because their
// payload text must not be expanded before parsing (a define's body is
// stored verbatim, expanded only when the new macro is later invoked).
func registerCoreMacros(m *MacroMap) {
	m.RegisterDeferred("define", "define(name,p1 p2=body): install a runtime macro",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			def, err := ParseDefinition(raw)
			if err != nil {
				return "", err
			}
			rec := &MacroRecord{Name: def.Name, Params: def.Params, Body: def.Body}
			if err := ctx.Proc.macros.Define(rec); err != nil {
				return "", err
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterDeferred("undef", "undef(name): remove a macro from any table",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			name := strings.TrimSpace(raw)
			if err := ctx.Proc.macros.Undefine(name, KindAny, depth); err != nil {
				return "", err
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterDeferred("rename", "rename(old,new): rename a macro in place",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitDeterred(1), false)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 2, "rename", ctx.Pos); err != nil {
				return "", err
			}
			oldName := strings.TrimSpace(parts[0].String())
			newName := strings.TrimSpace(parts[1].String())
			if err := ctx.Proc.macros.Rename(oldName, newName, KindAny); err != nil {
				return "", err
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterDeferred("append", "append(name,text): append text to a runtime macro's body",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitDeterred(1), false)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 1, "append", ctx.Pos); err != nil {
				return "", err
			}
			name := strings.TrimSpace(parts[0].String())
			text := ""
			if len(parts) > 1 {
				text = parts[1].String()
			}
			if err := ctx.Proc.macros.Append(name, depth, text); err != nil {
				return "", err
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})

	m.RegisterDeferred("replace", "replace(name,body): overwrite a runtime macro's body",
		func(raw string, depth int, ctx *EvalContext) (string, error) {
			parts, err := SplitArgs(raw, ',', SplitDeterred(1), false)
			if err != nil {
				return "", err
			}
			if err := ExpectMinParts(parts, 1, "replace", ctx.Pos); err != nil {
				return "", err
			}
			name := strings.TrimSpace(parts[0].String())
			body := ""
			if len(parts) > 1 {
				body = parts[1].String()
			}
			if err := ctx.Proc.macros.Replace(name, body); err != nil {
				return "", err
			}
			ctx.ConsumeTrailingNewline()
			return "", nil
		})
}
