// Package dwarfinfo implements a debug-info index: a DIE tree, type graph,
// symbol hash table and CFI/FDE row table built by parsing the *text
// output* of objdump/readelf rather than a binary DWARF parser. This is a
// deliberate abstraction boundary: the index is keyed by (elf_path,
// text_base, data_base, bss_base) and talks to the toolchain only through
// its human-readable dumps, the same way coprocessor/objdump parses
// disassembler text rather than an object-file library.
package dwarfinfo
