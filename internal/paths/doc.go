// Package paths resolves the on-disk locations the debugger persists to:
// configuration, ROM-set index, and rewind snapshots, all rooted under a
// single per-user dotdir.
package paths
