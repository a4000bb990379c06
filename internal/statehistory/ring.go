package statehistory

import (
	"github.com/e9kdbg/e9kdbg/internal/curated"
)

// compactThreshold bounds how far the FIFO start index can drift before
// compaction: once it exceeds this many slots *and* more than half of
// capacity, the backing slice is compacted back to start==0.
const compactThreshold = 32

// Ring is the rolling, byte-budgeted frame-record buffer. It is not safe
// for concurrent use — the run loop is its sole owner, ticking it from a
// single cooperative goroutine.
type Ring struct {
	frames []FrameRecord // backing slice; logical records are frames[start:start+count]
	start  int
	count  int

	totalBytes int
	budget     int
	nextID     uint64

	prevState []byte // last captured full state, used to form the next delta
	paused    bool

	currentFrameNo uint64

	reconA, reconB []byte // ping-pong reconstruction scratch
}

// NewRing creates a Ring with the given byte budget.
func NewRing(budget int) *Ring {
	return &Ring{budget: budget}
}

// Budget returns the byte budget.
func (r *Ring) Budget() int { return r.budget }

// SetBudget replaces the byte budget. Rings restored from a snapshot file
// carry no budget of their own and must be given one before the next
// Capture, or trim will empty them.
func (r *Ring) SetBudget(n int) { r.budget = n }

// UsedBytes returns the total payload bytes currently retained.
func (r *Ring) UsedBytes() int { return r.totalBytes }

// Count returns the number of retained records.
func (r *Ring) Count() int { return r.count }

// SetPaused controls whether Capture is a no-op.
func (r *Ring) SetPaused(p bool) { r.paused = p }

// IsPaused reports the current pause state.
func (r *Ring) IsPaused() bool { return r.paused }

// SetCurrentFrameNo sets the frame number that the next Capture will tag its
// record with.
func (r *Ring) SetCurrentFrameNo(n uint64) { r.currentFrameNo = n }

// CurrentFrameNo returns the frame number last captured or restored to.
func (r *Ring) CurrentFrameNo() uint64 { return r.currentFrameNo }

func (r *Ring) at(i int) *FrameRecord {
	return &r.frames[r.start+i]
}

// Capture records one frame of already serialized state. It is a no-op
// while paused, and returns CaptureError if state is empty. The record is
// only appended after the delta/keyframe payload has been fully built, so
// a failure here never corrupts the ring.
func (r *Ring) Capture(state []byte) error {
	if r.paused {
		return nil
	}
	if len(state) == 0 {
		return curated.Errorf(curated.CaptureError, "empty state")
	}

	haveKeyPrev := r.prevState != nil && len(r.prevState) == len(state)

	var payload []byte
	isKeyframe := true
	if haveKeyPrev {
		delta := EncodeDelta(r.prevState, state)
		if len(delta) < len(state) {
			payload = delta
			isKeyframe = false
		}
	}
	if isKeyframe {
		payload = make([]byte, len(state))
		copy(payload, state)
	}

	rec := FrameRecord{
		ID:         r.nextID,
		FrameNo:    r.currentFrameNo,
		IsKeyframe: isKeyframe,
		StateSize:  len(state),
		Payload:    payload,
	}
	r.nextID++

	r.append(rec)

	prev := make([]byte, len(state))
	copy(prev, state)
	r.prevState = prev

	if r.count == 1 {
		r.at(0).IsKeyframe = true
	}

	r.trim()
	return nil
}

func (r *Ring) append(rec FrameRecord) {
	if r.start+r.count >= len(r.frames) {
		newCap := (len(r.frames)) * 2
		if newCap == 0 {
			newCap = 64
		}
		grown := make([]FrameRecord, newCap)
		copy(grown, r.frames[r.start:r.start+r.count])
		r.frames = grown
		r.start = 0
	}
	r.frames[r.start+r.count] = rec
	r.count++
	r.totalBytes += len(rec.Payload)
}

// trim drops the oldest records until the ring is back within budget.
func (r *Ring) trim() {
	for r.totalBytes > r.budget && r.count > 0 {
		if r.count >= 2 {
			r.promoteNextToKeyframe()
		}
		oldest := r.at(0)
		r.totalBytes -= len(oldest.Payload)
		r.start++
		r.count--

		if r.start > compactThreshold && r.start > len(r.frames)/2 {
			r.compact()
		}
	}
}

// promoteNextToKeyframe reconstructs frames[1] as a full state and replaces
// its payload, so that after frames[0] is dropped the new oldest record is
// still a keyframe. The ring's first retained record must always be one.
func (r *Ring) promoteNextToKeyframe() {
	first := r.at(0)
	next := r.at(1)
	if next.IsKeyframe {
		return
	}
	if !first.IsKeyframe || first.StateSize == 0 || next.StateSize != first.StateSize {
		return
	}
	full, err := ApplyDelta(first.Payload, first.StateSize, next.Payload)
	if err != nil {
		return
	}
	r.totalBytes -= len(next.Payload)
	next.Payload = full
	next.IsKeyframe = true
	r.totalBytes += len(next.Payload)
}

func (r *Ring) compact() {
	if r.start == 0 || r.count == 0 {
		return
	}
	copy(r.frames, r.frames[r.start:r.start+r.count])
	r.start = 0
}

// findByFrameNo returns the logical index of the first record with the
// given frame number.
func (r *Ring) findByFrameNo(frameNo uint64) (int, bool) {
	for i := 0; i < r.count; i++ {
		if r.at(i).FrameNo == frameNo {
			return i, true
		}
	}
	return 0, false
}

// reconstruct rebuilds the full state at logical index idx by walking back
// to the nearest keyframe and replaying deltas forward.
func (r *Ring) reconstruct(idx int) ([]byte, error) {
	if idx < 0 || idx >= r.count {
		return nil, curated.Errorf(curated.ResolutionError, "statehistory", "index out of range")
	}
	target := r.at(idx)
	if target.StateSize == 0 {
		return nil, curated.Errorf(curated.ResolutionError, "statehistory", "empty target record")
	}

	keyIdx := idx
	for keyIdx > 0 && !r.at(keyIdx).IsKeyframe {
		keyIdx--
	}
	key := r.at(keyIdx)
	if !key.IsKeyframe {
		return nil, curated.Errorf(curated.ResolutionError, "statehistory", "no keyframe precedes index")
	}

	stateSize := key.StateSize
	r.ensureRecon(stateSize)
	cur, next := r.reconA, r.reconB
	copy(cur, key.Payload)

	for i := keyIdx + 1; i <= idx; i++ {
		f := r.at(i)
		if f.StateSize != stateSize {
			return nil, curated.Errorf(curated.ResolutionError, "statehistory", "state size changed mid-sequence")
		}
		if f.IsKeyframe {
			copy(cur, f.Payload)
			continue
		}
		applied, err := ApplyDelta(cur, stateSize, f.Payload)
		if err != nil {
			return nil, err
		}
		copy(next, applied)
		cur, next = next, cur
	}

	out := make([]byte, stateSize)
	copy(out, cur)
	return out, nil
}

func (r *Ring) ensureRecon(size int) {
	if len(r.reconA) == size && len(r.reconB) == size {
		return
	}
	r.reconA = make([]byte, size)
	r.reconB = make([]byte, size)
}

// RestoreFrameNo reconstructs the state at frameNo and sets CurrentFrameNo
// to it.
func (r *Ring) RestoreFrameNo(frameNo uint64) ([]byte, error) {
	idx, ok := r.findByFrameNo(frameNo)
	if !ok {
		return nil, curated.Errorf(curated.ResolutionError, "statehistory", "frame not found")
	}
	state, err := r.reconstruct(idx)
	if err != nil {
		return nil, err
	}
	r.currentFrameNo = frameNo
	return state, nil
}

// TrimAfterFrameNo reconstructs frameNo, drops every record after it, and
// resets the "previous state" buffer to frameNo's reconstruction.
func (r *Ring) TrimAfterFrameNo(frameNo uint64) error {
	idx, ok := r.findByFrameNo(frameNo)
	if !ok {
		return curated.Errorf(curated.ResolutionError, "statehistory", "frame not found")
	}
	return r.trimAfterIndex(idx)
}

// TrimAfterPercent behaves like TrimAfterFrameNo but targets
// round(percent*(count-1)).
func (r *Ring) TrimAfterPercent(percent float64) error {
	if r.count == 0 {
		return curated.Errorf(curated.ResolutionError, "statehistory", "ring is empty")
	}
	idx := indexAtPercent(percent, r.count)
	return r.trimAfterIndex(idx)
}

func indexAtPercent(percent float64, count int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	idx := int(float64(count-1)*percent + 0.5)
	if idx >= count {
		idx = count - 1
	}
	return idx
}

func (r *Ring) trimAfterIndex(idx int) error {
	if idx+1 >= r.count {
		return nil
	}
	state, err := r.reconstruct(idx)
	if err != nil {
		return err
	}
	for i := idx + 1; i < r.count; i++ {
		r.totalBytes -= len(r.at(i).Payload)
	}
	r.count = idx + 1
	r.prevState = state
	return nil
}

// GetFrameAtPercent returns a copy of the record at round(percent*(count-1)).
func (r *Ring) GetFrameAtPercent(percent float64) (FrameRecord, bool) {
	if r.count == 0 {
		return FrameRecord{}, false
	}
	idx := indexAtPercent(percent, r.count)
	return r.at(idx).clone(), true
}

// HasFrameNo reports whether frameNo is currently retained.
func (r *Ring) HasFrameNo(frameNo uint64) bool {
	_, ok := r.findByFrameNo(frameNo)
	return ok
}

// Records returns copies of every retained record, oldest first. Intended
// for tests and snapshot serialization.
func (r *Ring) Records() []FrameRecord {
	out := make([]FrameRecord, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.at(i).clone()
	}
	return out
}

// PrevState returns a copy of the scratch "previous state" buffer.
func (r *Ring) PrevState() []byte {
	cp := make([]byte, len(r.prevState))
	copy(cp, r.prevState)
	return cp
}

// Clone returns a deep copy of r, used to capture a save slice that can be
// written to disk independently of the live ring.
func (r *Ring) Clone() *Ring {
	cp := &Ring{
		budget:         r.budget,
		nextID:         r.nextID,
		currentFrameNo: r.currentFrameNo,
		count:          r.count,
		totalBytes:     r.totalBytes,
	}
	cp.frames = make([]FrameRecord, r.count)
	for i := 0; i < r.count; i++ {
		cp.frames[i] = r.at(i).clone()
	}
	if r.prevState != nil {
		cp.prevState = make([]byte, len(r.prevState))
		copy(cp.prevState, r.prevState)
	}
	return cp
}
