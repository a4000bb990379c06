// Package config persists and loads the layout/component configuration and
// the ROM-set index, plus the rolling state buffer's save slice binding to
// a ROM checksum.
package config
