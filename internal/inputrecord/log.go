package inputrecord

import "sync"

// Injector is the subset of the host bridge's input setters apply_frame
// drives with is_injecting = true.
type Injector interface {
	SetJoypad(port, id int, pressed bool)
	ClearJoypad(port int)
	SendKey(keycode, char uint32, mods uint16, pressed bool)
}

// Log is the chronological input-record module. It implements the
// bridge.Recorder interface so the host bridge can drive it directly.
type Log struct {
	mu sync.Mutex

	events         []Event
	currentFrameNo uint64

	isRecording bool
	isPlayback  bool
	isInjecting bool
}

// NewLog creates a Log with recording enabled and playback disabled.
func NewLog() *Log {
	return &Log{isRecording: true}
}

// SetCurrentFrameNo tells the log which frame is about to run; new events
// are tagged with this value + 1, so the event is applied before the next
// frame runs.
func (l *Log) SetCurrentFrameNo(n uint64) {
	l.mu.Lock()
	l.currentFrameNo = n
	l.mu.Unlock()
}

// SetRecording toggles whether successful mutations are appended to the log.
func (l *Log) SetRecording(on bool) {
	l.mu.Lock()
	l.isRecording = on
	l.mu.Unlock()
}

// IsPlayback reports whether a playback buffer is currently driving input.
func (l *Log) IsPlayback() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isPlayback
}

// IsInjecting reports whether the log itself is the current caller of the
// bridge's input setters (i.e. inside ApplyFrame).
func (l *Log) IsInjecting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isInjecting
}

func (l *Log) shouldRecord() bool {
	if !l.isRecording {
		return false
	}
	if l.isPlayback && !l.isInjecting {
		return false
	}
	return true
}

// RecordJoypad appends a JoypadPress event.
func (l *Log) RecordJoypad(port, id int, pressed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.shouldRecord() {
		return
	}
	l.events = append(l.events, Event{
		FrameNo: l.currentFrameNo + 1,
		Kind:    JoypadPress,
		Port:    uint8(port),
		ID:      uint8(id),
		Pressed: pressed,
	})
}

// RecordClearJoypad appends a JoypadClear event.
func (l *Log) RecordClearJoypad(port int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.shouldRecord() {
		return
	}
	l.events = append(l.events, Event{
		FrameNo: l.currentFrameNo + 1,
		Kind:    JoypadClear,
		Port:    uint8(port),
	})
}

// RecordKey appends a KeyEvent event.
func (l *Log) RecordKey(keycode, char uint32, mods uint16, pressed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.shouldRecord() {
		return
	}
	l.events = append(l.events, Event{
		FrameNo: l.currentFrameNo + 1,
		Kind:    KeyEvent,
		Pressed: pressed,
		Keycode: keycode,
		Char:    char,
		Mods:    mods,
	})
}

// StartPlayback switches the log into playback mode: recording from outside
// callers stops (shouldRecord returns false unless injecting), and
// ApplyFrame becomes usable.
func (l *Log) StartPlayback() {
	l.mu.Lock()
	l.isPlayback = true
	l.mu.Unlock()
}

// StopPlayback returns the log to normal recording mode.
func (l *Log) StopPlayback() {
	l.mu.Lock()
	l.isPlayback = false
	l.mu.Unlock()
}

// ApplyFrame dispatches every recorded event tagged frameNo to inj, with
// is_injecting true for the duration of the call.
func (l *Log) ApplyFrame(frameNo uint64, inj Injector) {
	l.mu.Lock()
	l.isInjecting = true
	var toApply []Event
	for _, e := range l.events {
		if e.FrameNo == frameNo {
			toApply = append(toApply, e)
		}
	}
	l.mu.Unlock()

	for _, e := range toApply {
		switch e.Kind {
		case JoypadPress:
			inj.SetJoypad(int(e.Port), int(e.ID), e.Pressed)
		case JoypadClear:
			inj.ClearJoypad(int(e.Port))
		case KeyEvent:
			inj.SendKey(e.Keycode, e.Char, e.Mods, e.Pressed)
		}
	}

	l.mu.Lock()
	l.isInjecting = false
	l.mu.Unlock()
}

// Events returns a copy of every recorded event, in recorded order.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Clear empties the event log.
func (l *Log) Clear() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
