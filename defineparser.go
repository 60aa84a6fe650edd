package rad

import "strings"

// defState is the Definition Parser's state machine (spec §4.3).
type defState int

const (
	defName defState = iota
	defArgs
	defBody
)

// Definition is the parsed payload of a `define` invocation:
// name,p1 p2 p3 = body.
type Definition struct {
	Name   string
	Params []Parameter
	Body   string
}

// ParseDefinition consumes a define-call's argument payload shaped as
// one of:
//
//	name = body
//	name,p1 p2 p3 = body
//	name =            (empty body: declaration)
func ParseDefinition(payload string) (*Definition, error) {
	state := defName
	var name strings.Builder
	var argsText strings.Builder
	var body strings.Builder
	bodyStarted := false
	nameClosed := false

	runes := []rune(payload)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch state {
		case defName:
			switch {
			case r == '=':
				state = defBody
				bodyStarted = true
			case r == ',':
				state = defArgs
			case isWhitespace(r) && name.Len() > 0:
				// whitespace after the first char closes the name but
				// doesn't yet decide args-vs-body; keep scanning.
				nameClosed = true
			case !nameClosed && isIdentChar(r, name.Len() == 0):
				name.WriteRune(r)
			default:
				return nil, newRadError(ErrInvalidMacroName, nil, "define",
					"invalid character %q in macro name", r)
			}
		case defArgs:
			if r == '=' {
				state = defBody
				bodyStarted = true
			} else {
				argsText.WriteRune(r)
			}
		case defBody:
			body.WriteRune(r)
		}
		i++
	}

	if !bodyStarted {
		return nil, newRadError(ErrInvalidArgument, nil, "define",
			"macro definition missing '=' separator")
	}

	nm := strings.TrimSpace(name.String())
	if err := ValidateIdentifier(nm); err != nil {
		return nil, err
	}

	var params []Parameter
	for _, tok := range strings.Fields(argsText.String()) {
		if err := ValidateIdentifier(tok); err != nil {
			return nil, newRadError(ErrInvalidMacroName, nil, "define",
				"invalid parameter name %q", tok)
		}
		params = append(params, Parameter{Name: tok, Type: ParamText})
	}

	return &Definition{Name: nm, Params: params, Body: body.String()}, nil
}

func isWhitespace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

func isIdentChar(r rune, first bool) bool {
	if first {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// reservedNames can never be overridden or undefined (spec §3).
var reservedNames = map[string]bool{
	"define": true,
	"anon":   true,
}

// ValidateIdentifier enforces the identifier rule: first character
// alphabetic, rest alphanumeric/underscore, maximum-munch.
func ValidateIdentifier(name string) error {
	if name == "" {
		return newRadError(ErrInvalidMacroName, nil, "", "macro name must not be empty")
	}
	runes := []rune(name)
	if !isIdentChar(runes[0], true) {
		return newRadError(ErrInvalidMacroName, nil, "", "macro name %q must start with a letter", name)
	}
	for _, r := range runes[1:] {
		if !isIdentChar(r, false) {
			return newRadError(ErrInvalidMacroName, nil, "", "macro name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// IsReserved reports whether name can never be overridden/undefined.
func IsReserved(name string) bool { return reservedNames[name] }
