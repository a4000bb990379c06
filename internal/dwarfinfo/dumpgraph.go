package dwarfinfo

import (
	"io"

	"github.com/bradleyjkemp/memviz"

	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// DumpGraph renders the (possibly cyclic) type graph as Graphviz dot via
// memviz.Map, exposed through the command engine's `dumpgraph <path>` debug
// hook: a quick way to visualize the in-memory type graph built from a
// parsed debug-info dump.
func (idx *Index) DumpGraph(w io.Writer) error {
	if len(idx.types) == 0 {
		return curated.Errorf(curated.ResolutionError, "dwarfinfo", "no type graph to dump")
	}
	memviz.Map(w, idx.types)
	return nil
}
