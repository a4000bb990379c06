package curated

// Category patterns forming the error taxonomy. Each is a pattern string
// suitable for passing to Errorf/Is/Has. Handlers further
// up the call stack (the command engine, mainly) switch on these to decide
// whether an error is fatal (LoadFailure), a one-line diagnostic
// (Unsupported, ParseError, ResolutionError, MemoryError), or something
// that must leave engine invariants untouched (CaptureError).
const (
	// ConfigError: missing/invalid config path, bad option value.
	ConfigError = "config error: %v"

	// LoadFailure: core library missing, symbol missing, ROM unreadable,
	// directories uncreatable. Fatal at startup.
	LoadFailure = "load failure: %v"

	// Unsupported: a debug operation the core does not expose.
	Unsupported = "unsupported: %v"

	// ParseError: malformed user command / expression / address / size.
	ParseError = "%v: %v"

	// ResolutionError: symbol/file:line/address cannot be resolved.
	ResolutionError = "%v: %v"

	// MemoryError: read_memory/write_memory rejected or out of range.
	MemoryError = "memory error: %v"

	// CaptureError: serialization or allocation failed during capture.
	CaptureError = "capture error: %v"

	// SmokeFailure: a captured frame diverged from the reference digest.
	SmokeFailure = "smoke test failure: %v"
)
