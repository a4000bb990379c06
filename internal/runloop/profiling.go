package runloop

import (
	"sort"

	"github.com/e9kdbg/e9kdbg/internal/command"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// CheckpointSource is the bridge surface the profiler samples: the core's
// checkpoint hit table plus its running cycle counter.
type CheckpointSource interface {
	ReadCheckpoints() ([]uint32, error)
	ReadCycleCount() (uint64, error)
}

type checkpointStat struct {
	addr      uint32
	calls     uint64
	cyclesSum uint64
}

// Profiler accumulates per-checkpoint call counts and cycle deltas by
// polling CheckpointSource once per advanced frame. It satisfies
// command.Profiler so the `profile` command family can read it directly.
type Profiler struct {
	src   CheckpointSource
	stats map[uint32]*checkpointStat

	lastCycles     uint64
	haveLastCycles bool
}

// NewProfiler returns a Profiler sampling src. src may be nil, in which
// case Sample is a no-op (profiling stays disabled until a core with
// checkpoint support is loaded).
func NewProfiler(src CheckpointSource) *Profiler {
	return &Profiler{src: src, stats: make(map[uint32]*checkpointStat)}
}

// Sample polls the checkpoint list once, accumulating a call count per
// address and attributing the cycle delta since the last sample evenly
// across the addresses hit this sample. The debug ABI reports a single
// running cycle count rather than a per-checkpoint one, so per-address
// cycle figures are an even split, not an exact accounting.
func (p *Profiler) Sample() {
	if p.src == nil {
		return
	}
	hits, err := p.src.ReadCheckpoints()
	if err != nil || len(hits) == 0 {
		return
	}
	cycles, err := p.src.ReadCycleCount()
	if err != nil {
		return
	}

	var delta uint64
	if p.haveLastCycles && cycles >= p.lastCycles {
		delta = cycles - p.lastCycles
	}
	p.lastCycles = cycles
	p.haveLastCycles = true

	share := delta / uint64(len(hits))
	for _, addr := range hits {
		s, ok := p.stats[addr]
		if !ok {
			s = &checkpointStat{addr: addr}
			p.stats[addr] = s
		}
		s.calls++
		s.cyclesSum += share
	}
}

// Top returns the n most-called addresses, most-called first. n <= 0
// returns every recorded address.
func (p *Profiler) Top(n int) []command.ProfileStat {
	out := make([]command.ProfileStat, 0, len(p.stats))
	for _, s := range p.stats {
		out = append(out, command.ProfileStat{Addr: s.addr, Calls: s.calls, Cycles: s.cyclesSum})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Addr < out[j].Addr
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Clear resets every accumulated counter (`profile clear`).
func (p *Profiler) Clear() {
	p.stats = make(map[uint32]*checkpointStat)
	p.haveLastCycles = false
}

// MountDashboard starts the statsview live dashboard in the background.
// addr is e.g. "0.0.0.0:18066"; the empty string keeps statsview's own
// default.
func MountDashboard(addr string) {
	if addr != "" {
		viewer.SetConfiguration(viewer.WithAddr(addr))
	}
	mgr := statsview.New()
	go mgr.Start()
}
