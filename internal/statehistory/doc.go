// Package statehistory implements a rolling, byte-budgeted state-history
// engine: a keyframe+delta ring of per-frame serialized emulator state,
// reconstructible at any retained frame number, with forward-trim and disk
// snapshot persistence.
//
// The package has no dependency on the host bridge. Callers hand it already
// serialized state bytes (as produced by the bridge's SerializeTo) and, to
// restore, receive reconstructed state bytes back (to be handed to the
// bridge's UnserializeFrom). Requests to jump to or replay from a frame are
// pushed through to the ring rather than poking hardware state directly,
// and the ring itself stays a pure, synchronously testable data structure
// that never blocks on its own.
package statehistory
