// Package leb128 implements the Variable Length Data encoding method
// required by the DWARF debugging format (DWARF4 Standard, page 161,
// "7.6 Variable Length Data"). Only decoding is needed — DW_OP_fbreg,
// DW_OP_bregN and similar operations embed signed/unsigned LEB128 operands
// in the textual debug dump we parse in internal/dwarfinfo.
package leb128
