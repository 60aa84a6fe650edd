package rad

// RegisterStandardLibrary installs every builtin macro spec.md's
// distillation treats as an out-of-core collaborator (§1) into m.
// Called once by New; exported so a caller assembling a bare
// MacroMap for tests can opt in to the same set.
func RegisterStandardLibrary(m *MacroMap) {
	registerCoreMacros(m)
	registerControlMacros(m)
	registerIOMacros(m)
	registerTextMacros(m)
	registerExecMacros(m)
	registerHookMacros(m)
}
