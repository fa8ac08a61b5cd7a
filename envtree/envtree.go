// Package envtree loads .env files found in a directory and its parents.
// Files closer to the starting directory take precedence, and variables
// already present in the environment are never overwritten.
package envtree

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/presbrey/flex/logging"
)

// Config controls the search
type Config struct {
	// FileName is the file to look for in each directory
	FileName string
	// Dir is where the search starts, defaulting to the working directory
	Dir string
	// StopAt ends the search after this directory. Empty searches up to the
	// filesystem root.
	StopAt string
}

// DefaultConfig searches for .env from the working directory to the root
func DefaultConfig() Config {
	return Config{FileName: ".env"}
}

// Find returns the matching files, closest first
func Find(cfg Config) ([]string, error) {
	if cfg.FileName == "" {
		cfg.FileName = ".env"
	}
	dir := cfg.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("envtree: working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("envtree: %w", err)
	}
	stop := ""
	if cfg.StopAt != "" {
		if stop, err = filepath.Abs(cfg.StopAt); err != nil {
			return nil, fmt.Errorf("envtree: %w", err)
		}
	}

	var files []string
	for {
		path := filepath.Join(dir, cfg.FileName)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, path)
		}
		parent := filepath.Dir(dir)
		if dir == stop || parent == dir {
			break
		}
		dir = parent
	}
	return files, nil
}

// Load finds and loads the files for cfg, returning the paths loaded
func Load(cfg Config) ([]string, error) {
	files, err := Find(cfg)
	if err != nil {
		return nil, err
	}
	log := logging.With("envtree")
	if len(files) == 0 {
		log.Debug().Str("file", cfg.FileName).Msg("no env files found")
		return nil, nil
	}
	if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("envtree: load %v: %w", files, err)
	}
	log.Debug().Strs("files", files).Msg("loaded env files")
	return files, nil
}

// AutoLoad loads the default files, logging instead of failing
func AutoLoad() {
	if _, err := Load(DefaultConfig()); err != nil {
		logging.Warn().Err(err).Msg("env files not loaded")
	}
}
