package config

import (
	"path/filepath"
	"testing"
)

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "e9k-debugger.cfg")

	c := New()
	c.Set("window.width", "800")
	c.SetComponent("rewind", "budget_mb", "128")
	c.Set("comp.unknown.future_key", "kept-verbatim")

	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if v, ok := loaded.Get("window.width"); !ok || v != "800" {
		t.Fatalf("window.width = %q, %v", v, ok)
	}
	if v, ok := loaded.Component("rewind", "budget_mb"); !ok || v != "128" {
		t.Fatalf("component rewind.budget_mb = %q, %v", v, ok)
	}
	if v, ok := loaded.Get("comp.unknown.future_key"); !ok || v != "kept-verbatim" {
		t.Fatalf("unknown key not preserved: %q, %v", v, ok)
	}
}

func TestConfigLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.cfg"))
	if err != nil {
		t.Fatalf("Load of missing file should not error: %v", err)
	}
	if _, ok := c.Get("anything"); ok {
		t.Fatalf("expected empty config")
	}
}

func TestROMSetSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "romset.idx")

	s := NewROMSet()
	s.Update(Entry{Basename: "game.rom", SaveDir: "/saves", SystemDir: "/system", LastFrameNo: 42, Checksum: 0xdeadbeef})

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadROMSet(path)
	if err != nil {
		t.Fatalf("LoadROMSet: %v", err)
	}
	e, ok := loaded.Lookup("game.rom")
	if !ok {
		t.Fatalf("expected entry for game.rom")
	}
	if e.SaveDir != "/saves" || e.SystemDir != "/system" || e.LastFrameNo != 42 || e.Checksum != 0xdeadbeef {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestSaveStatePathStripsROMExtension(t *testing.T) {
	got := SaveStatePath("/saves", "/roms/Contra.nes")
	want := filepath.Join("/saves", "Contra.e9k-save")
	if got != want {
		t.Fatalf("SaveStatePath = %q, want %q", got, want)
	}
}
