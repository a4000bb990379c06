package modalflag

import (
	"flag"
	"fmt"
	"io"
)

// ParseContinuation indicates how the caller should proceed after Parse().
type ParseContinuation int

const (
	// ParseContinue means the program should continue normally.
	ParseContinue ParseContinuation = iota
	// ParseHelp means help text was printed (e.g. -h) and the program
	// should exit cleanly.
	ParseHelp
)

// Modes is a chain of flag.FlagSets: a top-level set, and then one set per
// named mode. Only one mode may be active at a time.
type Modes struct {
	Output io.Writer

	args []string

	top      *flag.FlagSet
	modes    map[string]*flag.FlagSet
	modeList []string

	activeMode string
	modePath   []string
}

// NewArgs sets (or resets) the argument list to be parsed, excluding the
// program name.
func (m *Modes) NewArgs(args []string) {
	m.args = args
	m.top = flag.NewFlagSet("", flag.ContinueOnError)
	if m.Output != nil {
		m.top.SetOutput(m.Output)
	}
	m.activeMode = ""
	m.modePath = nil
}

func (m *Modes) ensureTop() *flag.FlagSet {
	if m.top == nil {
		m.NewArgs(nil)
	}
	return m.top
}

// AddBool adds a boolean flag to the top-level flag set.
func (m *Modes) AddBool(name string, value bool, usage string) *bool {
	return m.ensureTop().Bool(name, value, usage)
}

// AddString adds a string flag to the top-level flag set.
func (m *Modes) AddString(name string, value string, usage string) *string {
	return m.ensureTop().String(name, value, usage)
}

// NewMode registers a named mode with its own flag set, returned for the
// caller to add mode-specific flags to.
func (m *Modes) NewMode(name string) *flag.FlagSet {
	if m.modes == nil {
		m.modes = make(map[string]*flag.FlagSet)
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if m.Output != nil {
		fs.SetOutput(m.Output)
	}
	m.modes[name] = fs
	m.modeList = append(m.modeList, name)
	return fs
}

// Parse parses the top-level flags, then — if the first non-flag argument
// names a registered mode — parses that mode's flags from the remainder.
func (m *Modes) Parse() (ParseContinuation, error) {
	top := m.ensureTop()
	if err := top.Parse(m.args); err != nil {
		if err == flag.ErrHelp {
			return ParseHelp, nil
		}
		return ParseContinue, err
	}

	rest := top.Args()
	if len(rest) == 0 {
		return ParseContinue, nil
	}

	fs, ok := m.modes[rest[0]]
	if !ok {
		return ParseContinue, nil
	}

	m.activeMode = rest[0]
	m.modePath = append(m.modePath, rest[0])

	if err := fs.Parse(rest[1:]); err != nil {
		if err == flag.ErrHelp {
			return ParseHelp, nil
		}
		return ParseContinue, err
	}

	return ParseContinue, nil
}

// Mode returns the name of the active mode, or "" if none was selected.
func (m *Modes) Mode() string {
	return m.activeMode
}

// Path returns the mode path (currently at most one level) as a slash
// separated string, or "" if no mode was selected.
func (m *Modes) Path() string {
	if len(m.modePath) == 0 {
		return ""
	}
	s := m.modePath[0]
	for _, p := range m.modePath[1:] {
		s += "/" + p
	}
	return s
}

// Args returns the arguments remaining after top-level and mode flags have
// been consumed.
func (m *Modes) Args() []string {
	if fs, ok := m.modes[m.activeMode]; ok {
		return fs.Args()
	}
	return m.top.Args()
}

// Usage prints top-level usage information followed by each mode's usage.
func (m *Modes) Usage() {
	out := m.Output
	if out == nil {
		out = m.top.Output()
	}
	fmt.Fprintln(out, "usage: e9kdebugger [flags] <mode> [mode flags]")
	m.top.PrintDefaults()
	for _, name := range m.modeList {
		fmt.Fprintf(out, "\nmode %q:\n", name)
		m.modes[name].PrintDefaults()
	}
}
