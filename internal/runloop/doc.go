// Package runloop drives the single-threaded cooperative scheduler: per-frame
// cadence, speed multiplier, frame-step (forward and backward), loop-range
// replay, and breakpoint suppression around a step.
//
// Its tick shape — drain debug text, check halt conditions, read input,
// continue — carries a CPU-quantum debugger's stepping model over to
// frame-quantum stepping over a dynamically loaded core.
package runloop
