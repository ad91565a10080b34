package cli

import (
	"os"
	"path/filepath"
)

func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".strat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// SavePath resolves a campaign save slot under the user's data directory.
// An absolute or relative path with a separator is used as-is.
func SavePath(name string) (string, error) {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name, nil
	}
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	if filepath.Ext(name) == "" {
		name += ".json"
	}
	return filepath.Join(dir, name), nil
}
