package ansiterm

import (
	"errors"
	"io"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// MaxHistory bounds the in-memory command history.
const MaxHistory = 10000

// ErrInterrupt is returned by ReadLine when the user presses Ctrl-C.
var ErrInterrupt = errors.New("ansiterm: interrupt")

const (
	keyBackspace1 = 0x08
	keyBackspace2 = 0x7f
	keyInterrupt  = 0x03
	keyEOT        = 0x04
	keyEnterCR    = '\r'
	keyEnterLF    = '\n'
	keyEscape     = 0x1b
)

// Terminal wraps the input/output files of a running CLI session in raw
// mode, using the termios.Tcgetattr/Cfmakeraw/Tcsetattr discipline to
// switch the controlling terminal in and out of raw mode.
type Terminal struct {
	input  *os.File
	output *os.File

	canAttr unix.Termios
	rawAttr unix.Termios

	history   []string
	histLimit int
}

// New prepares a Terminal over in/out. Call RawMode before ReadLine and
// CanonicalMode (or Close) when done.
func New(in, out *os.File) (*Terminal, error) {
	if in == nil || out == nil {
		return nil, errors.New("ansiterm: Terminal requires non-nil input and output files")
	}
	t := &Terminal{input: in, output: out, histLimit: MaxHistory}
	if err := termios.Tcgetattr(t.input.Fd(), &t.canAttr); err != nil {
		return nil, err
	}
	t.rawAttr = t.canAttr
	termios.Cfmakeraw(&t.rawAttr)
	return t, nil
}

// RawMode puts the terminal into raw mode (no line buffering, no echo).
func (t *Terminal) RawMode() error {
	return termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.rawAttr)
}

// CanonicalMode restores the terminal's original mode.
func (t *Terminal) CanonicalMode() error {
	return termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.canAttr)
}

// Close restores canonical mode. Safe to call multiple times.
func (t *Terminal) Close() error {
	return t.CanonicalMode()
}

// History returns a copy of the retained command history, oldest first.
func (t *Terminal) History() []string {
	out := make([]string, len(t.history))
	copy(out, t.history)
	return out
}

func (t *Terminal) pushHistory(line string) {
	if line == "" {
		return
	}
	if n := len(t.history); n > 0 && t.history[n-1] == line {
		return
	}
	t.history = append(t.history, line)
	if len(t.history) > t.histLimit {
		t.history = t.history[len(t.history)-t.histLimit:]
	}
}

// ReadLine prints prompt, then reads a single line from the terminal in raw
// mode, handling backspace and history navigation (up/down arrow escape
// sequences) and appending the result to history. Returns ErrInterrupt on
// Ctrl-C and io-level errors (including EOF on Ctrl-D with an empty line)
// unwrapped from the underlying Read.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	t.writeString(prompt)

	buf := make([]byte, 0, 256)
	histPos := len(t.history)
	one := make([]byte, 1)

	redraw := func() {
		t.writeString("\r\x1b[K")
		t.writeString(prompt)
		t.writeString(string(buf))
	}

	for {
		n, err := t.input.Read(one)
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}
		c := one[0]

		switch {
		case c == keyInterrupt:
			t.writeString("\r\n")
			return "", ErrInterrupt
		case c == keyEOT:
			if len(buf) == 0 {
				return "", io.EOF
			}
		case c == keyEnterCR || c == keyEnterLF:
			t.writeString("\r\n")
			line := string(buf)
			t.pushHistory(line)
			return line, nil
		case c == keyBackspace1 || c == keyBackspace2:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				redraw()
			}
		case c == keyEscape:
			// Consume a 2-byte CSI sequence (ESC '[' <letter>) for arrow
			// keys; any other escape sequence is swallowed silently.
			var seq [2]byte
			if _, err := t.input.Read(seq[:1]); err != nil {
				return "", err
			}
			if seq[0] != '[' {
				continue
			}
			if _, err := t.input.Read(seq[1:2]); err != nil {
				return "", err
			}
			switch seq[1] {
			case 'A': // up
				if histPos > 0 {
					histPos--
					buf = []byte(t.history[histPos])
					redraw()
				}
			case 'B': // down
				if histPos < len(t.history)-1 {
					histPos++
					buf = []byte(t.history[histPos])
					redraw()
				} else if histPos < len(t.history) {
					histPos = len(t.history)
					buf = buf[:0]
					redraw()
				}
			}
		default:
			if c >= 0x20 && c < 0x7f {
				buf = append(buf, c)
				t.writeString(string(c))
			}
		}
	}
}

func (t *Terminal) writeString(s string) {
	t.output.WriteString(s)
	t.output.Sync()
}
