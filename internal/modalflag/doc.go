// Package modalflag implements a small two-level flag parser: top-level
// flags, optionally followed by a "mode" word which introduces its own
// flag set. It backs cmd/e9kdebugger's "debugger"/"smoke" mode split.
package modalflag
