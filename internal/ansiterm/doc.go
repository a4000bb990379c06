// Package ansiterm is the raw-terminal line reader backing the command
// engine's prompt. It is deliberately minimal: backspace, Ctrl-C, and a
// bounded command history capped at 10,000 entries.
//
// It is not a readline-driven prompt widget with completion popups or
// multi-line editing — it is the plain terminal mode needed so a CLI
// session has working backspace and interrupt handling.
package ansiterm
