// Package smoketest is the headless run-and-compare harness: drive the
// core for a fixed frame budget under a recorded input script, and either
// lay down a reference digest per frame (record mode) or compare each
// frame's digest against one already on disk (compare mode), exiting 1 on
// the first divergence.
//
// There is no PNG capture or ImageMagick diff montage; this package
// substitutes a cheap per-frame FNV-1a digest of the raw framebuffer for
// an image compare, keeping the harness's run/record/compare shape
// without the image-format dependency.
package smoketest
