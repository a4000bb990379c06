package paths

import (
	"os"
	"path/filepath"
)

// DotDir is the name of the per-user resource directory, relative to the
// user's home. When %APPDATA% is set the directory is
// %APPDATA%/e9k-debugger instead.
const DotDir = ".e9k-debugger"

// ResourcePath returns the relative path DotDir/subdir/file — either or
// both of subdir and file may be empty. It does not create the directory.
func ResourcePath(subdir string, file string) (string, error) {
	p := DotDir
	if subdir != "" {
		p = filepath.Join(p, subdir)
	}
	if file != "" {
		p = filepath.Join(p, file)
	}
	return p, nil
}

// ConfigFilePath returns the platform-specific absolute path to the config
// file.
func ConfigFilePath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "e9k-debugger.cfg"), nil
}

// ResourceDir returns the absolute path to subdir beneath the dotdir,
// creating it (and any parents) if it doesn't exist.
func ResourceDir(subdir string) (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	if subdir != "" {
		dir = filepath.Join(dir, subdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func baseDir() (string, error) {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "e9k-debugger"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DotDir), nil
}
