package rad

// AuthGate is the process-wide, immutable-after-init permission table
// of spec §4.7. Flags are set at startup from CLI and never overridden
// per-depth.
type AuthGate struct {
	flags  [int(authCapabilityCount)]AuthFlag
	logger *Logger
}

// NewAuthGate creates a gate with every capability Open, the
// permissive default before CLI flags narrow it.
func NewAuthGate(logger *Logger) *AuthGate {
	g := &AuthGate{logger: logger}
	for i := range g.flags {
		g.flags[i] = AuthOpen
	}
	return g
}

// Set assigns a capability's flag; only meant to be called during
// startup configuration.
func (g *AuthGate) Set(cap AuthCapability, flag AuthFlag) {
	g.flags[int(cap)] = flag
}

// Get returns a capability's current flag.
func (g *AuthGate) Get(cap AuthCapability) AuthFlag {
	return g.flags[int(cap)]
}

// Check consults the gate before a capability-gated action. Restricted
// returns an error the caller must turn into "no output, denial
// logged"; Warn proceeds after logging; Open proceeds silently.
func (g *AuthGate) Check(cap AuthCapability, macroName string, pos *SourcePosition) error {
	switch g.flags[int(cap)] {
	case AuthRestricted:
		if g.logger != nil {
			g.logger.Warn(CatAuth, "denied %s access for macro %q", cap, macroName)
		}
		return newRadError(ErrUnallowedMacroExecution, pos, macroName,
			"%s access is restricted", cap)
	case AuthWarn:
		if g.logger != nil {
			g.logger.Warn(CatAuth, "%s access by macro %q (warn mode)", cap, macroName)
		}
		return nil
	default: // AuthOpen
		return nil
	}
}
