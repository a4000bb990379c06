package inputrecord

// Kind discriminates an Event's payload.
type Kind int

const (
	JoypadPress Kind = iota
	JoypadClear
	KeyEvent
)

// Event is a single recorded input mutation, tagged with the frame it must
// be applied before.
type Event struct {
	FrameNo uint64
	Kind    Kind
	Port    uint8
	ID      uint8
	Pressed bool

	Keycode uint32
	Char    uint32
	Mods    uint16
}
