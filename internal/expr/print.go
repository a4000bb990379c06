package expr

import (
	"fmt"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/dwarfinfo"
)

// unreadable is substituted for any field whose memory load fails, rather
// than aborting the whole print.
const unreadable = "<unreadable>"

// EvalAndPrint parses text, evaluates it against env, and formats the
// result as one or more "label: rendering" lines. text is echoed back
// verbatim as the label, matching `print &x` -> "&x: 0x...". Struct and
// array values expand into a header line followed by one indented line
// per member or element.
func EvalAndPrint(text string, env Env) (string, error) {
	n, err := Parse(text)
	if err != nil {
		return "", err
	}
	v, err := Eval(n, env)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	renderValue(&sb, strings.TrimSpace(text), v, env, 0)
	return strings.TrimRight(sb.String(), "\n"), nil
}

// renderValue writes label's rendering of v to sb at the given indent
// level, recursing into struct members and array elements as further
// indented lines. Scalars print inline as "label: decimal (0xHEX)",
// pointers as a bare hex address.
func renderValue(sb *strings.Builder, label string, v Value, env Env, indent int) {
	if v.IsSyntheticPointer {
		writeLine(sb, indent, label, fmt.Sprintf("0x%X", v.Immediate))
		return
	}
	if !v.HasType {
		writeLine(sb, indent, label, renderScalar(v, env))
		return
	}

	_, t, ok := env.Deref(v.TypeRef)
	if !ok || t == nil {
		writeLine(sb, indent, label, renderScalar(v, env))
		return
	}

	switch t.Kind {
	case dwarfinfo.TypePointer:
		raw, _, err := valueScalar(v, env)
		if err != nil {
			writeLine(sb, indent, label, unreadable)
			return
		}
		writeLine(sb, indent, label, fmt.Sprintf("0x%X", raw))
	case dwarfinfo.TypeStruct:
		renderStruct(sb, label, v, t, env, indent)
	case dwarfinfo.TypeArray:
		renderArray(sb, label, v, t, env, indent)
	default:
		writeLine(sb, indent, label, renderScalar(v, env))
	}
}

// writeLine emits "label: value" padded by indent spaces.
func writeLine(sb *strings.Builder, indent int, label, value string) {
	sb.WriteString(strings.Repeat(" ", indent))
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString("\n")
}

// writeHeader emits "label:" with no value, the header a struct or array
// prints before its indented members.
func writeHeader(sb *strings.Builder, indent int, label string) {
	sb.WriteString(strings.Repeat(" ", indent))
	sb.WriteString(label)
	sb.WriteString(":\n")
}

func renderScalar(v Value, env Env) string {
	raw, _, err := valueScalar(v, env)
	if err != nil {
		return unreadable
	}
	if v.HasType {
		if t, ok := env.ResolveType(v.TypeRef); ok && t.Encoding == dwarfinfo.EncUnsigned {
			return fmt.Sprintf("%d (0x%X)", raw, raw)
		}
	}
	return fmt.Sprintf("%d (0x%X)", int32(raw), raw)
}

func renderStruct(sb *strings.Builder, label string, v Value, t *dwarfinfo.Type, env Env, indent int) {
	if !v.HasAddress {
		writeLine(sb, indent, label, unreadable)
		return
	}
	writeHeader(sb, indent, label)
	for _, m := range t.Members {
		member := Value{HasType: true, TypeRef: m.Type, HasAddress: true, Address: v.Address + uint32(m.Offset)}
		renderValue(sb, m.Name, member, env, indent+2)
	}
}

func renderArray(sb *strings.Builder, label string, v Value, t *dwarfinfo.Type, env Env, indent int) {
	if !v.HasAddress {
		writeLine(sb, indent, label, unreadable)
		return
	}
	writeHeader(sb, indent, label)
	elemSize := 1
	if t.HasTarget {
		elemSize = byteSizeOfType(t.TargetType, env)
	}
	for i := int64(0); i < t.ArrayCount; i++ {
		elem := Value{HasType: t.HasTarget, TypeRef: t.TargetType, HasAddress: true, Address: v.Address + uint32(i)*uint32(elemSize)}
		renderValue(sb, fmt.Sprintf("[%d]", i), elem, env, indent+2)
	}
}
