// Package bridge implements the host/core boundary: a narrow,
// systems-language-native API over a dynamically loaded emulator core. The
// core is a Go plugin (built with `go build -buildmode=plugin`) exporting a
// libretro-shaped symbol set; any symbol the core does not export downgrades
// the corresponding capability to Unsupported rather than failing the whole
// session.
package bridge
