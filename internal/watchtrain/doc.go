// Package watchtrain implements the watch/protect/train command surface:
// thin, validating wrappers over the host bridge's debug ABI, plus the
// "train" ignore-list state machine built on top of a single specially
// composed watchpoint.
package watchtrain
