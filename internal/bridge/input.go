package bridge

// Recorder receives notification of successful input mutations so
// internal/inputrecord can tag and store them. Its record_* entry points
// are called by the host bridge only after a mutation actually takes
// effect.
type Recorder interface {
	RecordJoypad(port, id int, pressed bool)
	RecordClearJoypad(port int)
	RecordKey(keycode, char uint32, mods uint16, pressed bool)
	IsPlayback() bool
	IsInjecting() bool
}

// SetRecorder wires the input-record module into the bridge. A nil recorder
// disables recording.
func (b *Bridge) SetRecorder(r Recorder) { b.recorder = r }

// SetJoypad sets a single button's pressed state. Ignored while playback is
// active and the caller is not the playback injector.
func (b *Bridge) SetJoypad(port, id int, pressed bool) {
	if b.recorder != nil && b.recorder.IsPlayback() && !b.recorder.IsInjecting() {
		return
	}
	if port < 0 || port >= len(b.joypad) || id < 0 || id >= len(b.joypad[0]) {
		return
	}
	b.joypad[port][id] = pressed
	if b.recorder != nil {
		b.recorder.RecordJoypad(port, id, pressed)
	}
}

// ClearJoypad clears every button on port.
func (b *Bridge) ClearJoypad(port int) {
	if b.recorder != nil && b.recorder.IsPlayback() && !b.recorder.IsInjecting() {
		return
	}
	if port < 0 || port >= len(b.joypad) {
		return
	}
	for i := range b.joypad[port] {
		b.joypad[port][i] = false
	}
	if b.recorder != nil {
		b.recorder.RecordClearJoypad(port)
	}
}

// SendKey forwards a keyboard event to the core's keyboard callback, if one
// was registered via the environment callback.
func (b *Bridge) SendKey(keycode, char uint32, mods uint16, pressed bool) {
	if b.recorder != nil && b.recorder.IsPlayback() && !b.recorder.IsInjecting() {
		return
	}
	if b.keyboard != nil {
		b.keyboard(keycode, char, mods, pressed)
	}
	if b.recorder != nil {
		b.recorder.RecordKey(keycode, char, mods, pressed)
	}
}
