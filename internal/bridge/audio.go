package bridge

import (
	"sync"

	"github.com/go-audio/audio"
)

// audioRing queues PCM output from the core. When queued bytes exceed
// bufferMS worth of audio, the ring drops the entire queue rather than
// blocking: this is a debugger, not a media player, and a stall at the
// prompt must never back up into the core.
type audioRing struct {
	mu      sync.Mutex
	format  *audio.Format
	buf     *audio.IntBuffer
	maxSamp int
	enabled bool
}

func newAudioRing(bufferMS int) *audioRing {
	format := &audio.Format{NumChannels: 2, SampleRate: 44100}
	bytesPerSec := format.NumChannels * format.SampleRate * 2 // 16-bit samples
	maxSamp := (bufferMS * bytesPerSec / 1000) / 2
	return &audioRing{
		format:  format,
		buf:     &audio.IntBuffer{Format: format, SourceBitDepth: 16},
		maxSamp: maxSamp,
		enabled: true,
	}
}

// push appends interleaved stereo samples, applying the drop-entire-queue
// backpressure policy.
func (a *audioRing) push(samples []int16) {
	if !a.enabled {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range samples {
		a.buf.Data = append(a.buf.Data, int(s))
	}
	if len(a.buf.Data) > a.maxSamp {
		a.buf.Data = a.buf.Data[:0]
	}
}

// Drain returns and clears the currently queued buffer.
func (a *audioRing) Drain() *audio.IntBuffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := &audio.IntBuffer{Format: a.format, SourceBitDepth: 16, Data: a.buf.Data}
	a.buf.Data = nil
	return out
}

// SetAudioEnabled toggles audio queueing: disabling drops anything queued
// and discards samples pushed while disabled; re-enabling resumes queueing
// with the same format. No audio device is opened or closed here.
func (b *Bridge) SetAudioEnabled(on bool) {
	b.audio.mu.Lock()
	b.audio.enabled = on
	if !on {
		b.audio.buf.Data = nil
	}
	b.audio.mu.Unlock()
}

// DrainAudio returns and clears the currently queued PCM buffer.
func (b *Bridge) DrainAudio() *audio.IntBuffer {
	return b.audio.Drain()
}
