package dwarfinfo

import (
	"os"
	"strconv"
	"strings"
)

// stabsSectionGuess approximates the ELF section layout well enough to
// classify STSYM/LCSYM symbols without a real section table
// cross-reference.
type stabsSectionGuess struct {
	dataBase, dataSize uint32
	bssBase, bssSize   uint32
}

// parseSTABS is the fallback path, invoked only when the readelf DWARF
// dump produced no DIEs at all. It recognizes `LSYM` type definitions and
// `STSYM`/`LCSYM` global/static symbols from `objdump -G` output.
//
// `preferDataForSTSYM` is the E9K_STABS_PREFER_DATA env-var override;
// section bases/sizes come from key so the overflow heuristic has
// something to test against.
func parseSTABS(idx *Index, text string, key Key, preferDataForSTSYM bool) {
	guess := stabsSectionGuess{
		dataBase: key.DataBase,
		bssBase:  key.BSSBase,
	}
	// Without a real section table, "size" is approximated as the distance
	// to the next known base; both go unbounded if only one of the two is
	// known, which only affects the overflow-based flip heuristic below.
	if key.BSSBase > key.DataBase {
		guess.dataSize = key.BSSBase - key.DataBase
	}

	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "LSYM") && !strings.Contains(line, "STSYM") && !strings.Contains(line, "LCSYM") {
			continue
		}
		name, rest, ok := stabsNameField(line)
		if !ok {
			continue
		}

		switch {
		case strings.Contains(line, "LCSYM"):
			// LCSYM belongs to .bss.
			addr, ok := stabsValue(line)
			if !ok {
				continue
			}
			idx.globals = append(idx.globals, Variable{Name: name, Addr: addr})

		case strings.Contains(line, "STSYM"):
			addr, ok := stabsValue(line)
			if !ok {
				continue
			}
			section := "bss"
			if preferDataForSTSYM {
				section = "data"
			}
			if section == "bss" && guess.bssBase != 0 && (addr < guess.bssBase) {
				section = "data" // flip: doesn't fall in .bss's range
			}
			if section == "data" && guess.dataBase != 0 && guess.dataSize != 0 &&
				(addr < guess.dataBase || addr >= guess.dataBase+guess.dataSize) {
				section = "bss" // flip: doesn't fall in .data's range either
			}
			idx.globals = append(idx.globals, Variable{Name: name, Addr: addr})

		case strings.Contains(line, "LSYM"):
			// Type definitions ("name:t..." / "name:size,alias...") are
			// recognized and skipped: neither the name, the size nor the
			// alias is stored, and STABS variables carry no TypeRef.
			_ = rest
		}
	}
}

// stabsNameField extracts the "name" before the first ':' on a STABS
// string-table line, and returns the remainder after the colon.
func stabsNameField(line string) (name string, rest string, ok bool) {
	// Find the string-table column: STABS dump rows put the symbol string
	// as the final field, commonly after the last whitespace run.
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", "", false
	}
	last := fields[len(fields)-1]
	colon := strings.IndexByte(last, ':')
	if colon <= 0 {
		return "", "", false
	}
	return last[:colon], last[colon+1:], true
}

// stabsValue extracts the n_value field (hex or decimal address), which
// `objdump -G` prints earlier on the line than the symbol string.
func stabsValue(line string) (uint32, bool) {
	fields := strings.Fields(line)
	for _, f := range fields {
		if strings.HasPrefix(f, "0x") {
			v, err := strconv.ParseUint(strings.TrimPrefix(f, "0x"), 16, 32)
			if err == nil {
				return uint32(v), true
			}
		}
	}
	// Fall back to an 8-hex-digit token with no explicit prefix, which is
	// how plain `objdump -G` renders n_value.
	for _, f := range fields {
		if len(f) == 8 && isAllHex(f) {
			v, err := strconv.ParseUint(f, 16, 32)
			if err == nil {
				return uint32(v), true
			}
		}
	}
	return 0, false
}

func isAllHex(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

// sTABSPreferDataEnv is the environment variable name, read by
// STABSPreferDataFromEnv; the package does no other environment lookups.
const sTABSPreferDataEnv = "E9K_STABS_PREFER_DATA"

// STABSPreferDataFromEnv reports whether E9K_STABS_PREFER_DATA is set to a
// non-empty, non-"0" value.
func STABSPreferDataFromEnv() bool {
	v := os.Getenv(sTABSPreferDataEnv)
	return v != "" && v != "0"
}
