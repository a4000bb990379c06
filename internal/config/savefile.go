package config

import (
	"path/filepath"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/statehistory"
)

// saveExt is the rewind-snapshot file extension.
const saveExt = ".e9k-save"

// SaveStatePath returns <saveDir>/<rom_basename>.e9k-save, the rolling
// buffer's persisted "save slice" path.
func SaveStatePath(saveDir, romPath string) string {
	base := filepath.Base(romPath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(saveDir, base+saveExt)
}

// SaveRewindState clones r into a save slice and persists it to
// SaveStatePath(saveDir, romPath), bound to romChecksum.
func SaveRewindState(saveDir, romPath string, r *statehistory.Ring, romChecksum uint64) error {
	return statehistory.WriteSnapshotFile(SaveStatePath(saveDir, romPath), r.Clone(), romChecksum)
}

// LoadRewindState reads the persisted save slice for romPath and refuses it
// if its stored checksum doesn't match romChecksum: the save slice is only
// restored when the ROM's FNV-1a 64-bit checksum matches.
func LoadRewindState(saveDir, romPath string, romChecksum uint64) (*statehistory.Ring, error) {
	r, stored, err := statehistory.ReadSnapshotFile(SaveStatePath(saveDir, romPath))
	if err != nil {
		return nil, err
	}
	if stored != romChecksum {
		return nil, curated.Errorf(curated.ConfigError, "rewind save-state checksum mismatch for "+romPath)
	}
	return r, nil
}
