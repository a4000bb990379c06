// Package logger is a minimal, process-wide ring-buffered logger.
//
// Entries are plain "category: message" lines, kept bounded so a long
// debugging session doesn't grow memory unboundedly. Write() copies the
// whole ring to an io.Writer; Tail() copies only the most recent n
// entries. Neither removes entries from the ring.
package logger
