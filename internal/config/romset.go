package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/paths"
)

// romsetFile is the name of the ROM-set index beneath the dotdir.
const romsetFile = "romset.idx"

// Entry binds a ROM (by basename) to the directories and rewind position it
// was last run with, so re-opening a ROM restores its save-state binding
// without the user re-specifying save_dir.
type Entry struct {
	Basename    string
	SaveDir     string
	SystemDir   string
	LastFrameNo uint64
	Checksum    uint64
}

// ROMSet is the small on-disk index of every ROM basename seen so far.
type ROMSet struct {
	entries map[string]Entry
	order   []string
}

// NewROMSet returns an empty ROMSet.
func NewROMSet() *ROMSet {
	return &ROMSet{entries: make(map[string]Entry)}
}

// DefaultROMSetPath returns the romset index's path beneath the dotdir,
// creating the dotdir if needed.
func DefaultROMSetPath() (string, error) {
	dir, err := paths.ResourceDir("")
	if err != nil {
		return "", curated.Errorf(curated.ConfigError, err)
	}
	return dir + string(os.PathSeparator) + romsetFile, nil
}

// LoadROMSet reads path's tab-separated entries. A missing file yields an
// empty ROMSet.
func LoadROMSet(path string) (*ROMSet, error) {
	s := NewROMSet()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			continue
		}
		lastFrame, err1 := strconv.ParseUint(fields[3], 10, 64)
		checksum, err2 := strconv.ParseUint(fields[4], 16, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		s.Update(Entry{
			Basename:    fields[0],
			SaveDir:     fields[1],
			SystemDir:   fields[2],
			LastFrameNo: lastFrame,
			Checksum:    checksum,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, curated.Errorf(curated.ConfigError, err)
	}
	return s, nil
}

// Lookup returns the entry for basename, if known.
func (s *ROMSet) Lookup(basename string) (Entry, bool) {
	e, ok := s.entries[basename]
	return e, ok
}

// Update inserts or replaces basename's entry.
func (s *ROMSet) Update(e Entry) {
	if _, ok := s.entries[e.Basename]; !ok {
		s.order = append(s.order, e.Basename)
	}
	s.entries[e.Basename] = e
}

// Save writes every entry to path, tab-separated, one per line.
func (s *ROMSet) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, name := range s.order {
		e := s.entries[name]
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%x\n",
			e.Basename, e.SaveDir, e.SystemDir, e.LastFrameNo, e.Checksum); err != nil {
			return curated.Errorf(curated.ConfigError, err)
		}
	}
	return w.Flush()
}
