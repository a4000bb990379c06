// Package inputrecord implements deterministic input record/replay: a
// chronological event log tagged by frame number, driven by the host
// bridge's input setters and replayed back through them bit-exactly.
package inputrecord
