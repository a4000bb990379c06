// Package expr implements a small C-like expression language: a
// recursive-descent parser over `*`, `&`, `.`, `->`, `[]`, numeric
// literals and identifiers, and an evaluator that resolves identifiers
// against globals/symbols/registers/locals (internal/dwarfinfo) and reads
// live values through an Env supplied by the command engine.
package expr
