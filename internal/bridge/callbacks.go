package bridge

// Environment callback command ids. The concrete values only need to be
// stable within this module: both sides (core thunk and bridge) agree on
// them through this package, not an external ABI constant table.
const (
	EnvSetRotation = iota
	EnvSetSupportNoGame
	EnvSetMessage
	EnvGetSystemDirectory
	EnvGetSaveDirectory
	EnvGetVariable
	EnvSetVariable
	EnvSetVariables
	EnvSetPixelFormat
	EnvGetLogInterface
	EnvSetKeyboardCallback
	EnvSetCoreOptions
	EnvSetCoreOptionsIntl
	EnvGetCoreOptionsVersion
	EnvGetVariableUpdate
)

// environmentCallback is installed as the core's set_environment thunk. It
// dispatches by command id over the recognized environment-callback set.
func (b *Bridge) environmentCallback(cmd int, data interface{}) bool {
	switch cmd {
	case EnvSetRotation, EnvSetSupportNoGame, EnvSetMessage:
		return true // informational; nothing to mediate
	case EnvGetSystemDirectory:
		if out, ok := data.(*string); ok {
			*out = b.systemDir
			return true
		}
		return false
	case EnvGetSaveDirectory:
		if out, ok := data.(*string); ok {
			*out = b.saveDir
			return true
		}
		return false
	case EnvGetVariable:
		kv, ok := data.(*struct {
			Key   string
			Value string
		})
		if !ok {
			return false
		}
		v, ok := b.options[kv.Key]
		if !ok {
			return false
		}
		kv.Value = v
		return true
	case EnvSetVariable:
		kv, ok := data.(*struct {
			Key   string
			Value string
		})
		if !ok {
			return false
		}
		if _, exists := b.options[kv.Key]; !exists {
			b.options[kv.Key] = kv.Value
		}
		return true
	case EnvSetVariables:
		defaults, ok := data.(map[string]string)
		if !ok {
			return false
		}
		for k, v := range defaults {
			if _, exists := b.options[k]; !exists {
				b.options[k] = v
			}
		}
		return true
	case EnvSetPixelFormat:
		pf, ok := data.(*PixelFormat)
		if !ok {
			return false
		}
		// XRGB8888 is the only format the core needs to emit natively;
		// RGB565/0RGB1555 are converted in-bridge at video_refresh time.
		return *pf == PixelFormatXRGB8888 || *pf == PixelFormatRGB565 || *pf == PixelFormat0RGB1555
	case EnvGetLogInterface:
		if out, ok := data.(*LogPrintf); ok {
			*out = b.pushLog
		}
		return true
	case EnvSetKeyboardCallback:
		if fn, ok := data.(KeyboardCallback); ok {
			b.keyboard = fn
		}
		return true
	case EnvSetCoreOptions, EnvSetCoreOptionsIntl:
		return true
	case EnvGetCoreOptionsVersion:
		if out, ok := data.(*int); ok {
			*out = 1
			return true
		}
		return false
	case EnvGetVariableUpdate:
		if out, ok := data.(*bool); ok {
			*out = false
			return true
		}
		return false
	default:
		return false
	}
}

// VideoRefresh is called by the core (through its video_refresh thunk
// registration) with a fresh framebuffer. Pixel data in RGB565/0RGB1555 is
// converted to XRGB8888 here so every downstream consumer only ever sees one
// format.
func (b *Bridge) VideoRefresh(data []byte, width, height, pitch int, format PixelFormat) {
	out := make([]byte, width*height*4)
	switch format {
	case PixelFormatXRGB8888:
		copy(out, data)
	case PixelFormatRGB565:
		convertRGB565(data, out, width, height, pitch)
	case PixelFormat0RGB1555:
		convert0RGB1555(data, out, width, height, pitch)
	}
	b.frame = frameBuffer{pixels: out, width: width, height: height, pitch: width * 4}
}

func convertRGB565(src, dst []byte, width, height, pitch int) {
	for y := 0; y < height; y++ {
		srow := src[y*pitch:]
		drow := dst[y*width*4:]
		for x := 0; x < width; x++ {
			px := uint16(srow[x*2]) | uint16(srow[x*2+1])<<8
			r := (px >> 11) & 0x1f
			g := (px >> 5) & 0x3f
			bch := px & 0x1f
			drow[x*4+0] = byte(bch << 3)
			drow[x*4+1] = byte(g << 2)
			drow[x*4+2] = byte(r << 3)
			drow[x*4+3] = 0
		}
	}
}

func convert0RGB1555(src, dst []byte, width, height, pitch int) {
	for y := 0; y < height; y++ {
		srow := src[y*pitch:]
		drow := dst[y*width*4:]
		for x := 0; x < width; x++ {
			px := uint16(srow[x*2]) | uint16(srow[x*2+1])<<8
			r := (px >> 10) & 0x1f
			g := (px >> 5) & 0x1f
			bch := px & 0x1f
			drow[x*4+0] = byte(bch << 3)
			drow[x*4+1] = byte(g << 3)
			drow[x*4+2] = byte(r << 3)
			drow[x*4+3] = 0
		}
	}
}

// AudioSample is called by the core for single-sample stereo output.
func (b *Bridge) AudioSample(left, right int16) {
	b.audio.push([]int16{left, right})
}

// AudioSampleBatch is called by the core for batched stereo output.
func (b *Bridge) AudioSampleBatch(data []int16, frames int) int {
	b.audio.push(data[:frames*2])
	return frames
}

// InputPoll is called by the core once per frame before a burst of
// InputState calls.
func (b *Bridge) InputPoll() {}

// InputState answers the core's input_state query from the bridge's joypad
// mirror.
func (b *Bridge) InputState(port, device, index, id int) int16 {
	if port < 0 || port >= len(b.joypad) || id < 0 || id >= len(b.joypad[0]) {
		return 0
	}
	if b.joypad[port][id] {
		return 1
	}
	return 0
}
