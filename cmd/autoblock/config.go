package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// configName is the configuration file looked for when --config is not given.
const configName = "autoblock.json"

// findWDFile looks for name in the working directory and then in each of its
// parents, returning the absolute path of the first one found, or "" if there
// is none.
func findWDFile(name string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(wd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", nil
		}
		wd = parent
	}
}

// configPaths returns the configuration files kong should load defaults from.
func configPaths() []string {
	path, err := findWDFile(configName)
	if err != nil || path == "" {
		return nil
	}
	return []string{path}
}
