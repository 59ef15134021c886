package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/security"
)

// applyTOMLFile overlays dir/.fsguard.toml onto cfg. Keys absent from the
// file keep their current values.
func applyTOMLFile(cfg *Config, dir string) (bool, error) {
	path := filepath.Join(dir, TOMLFileName)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return true, fserrors.NewConfigError("file", path, err)
	}
	if err := applyTOML(cfg, content, dir); err != nil {
		return true, fserrors.NewConfigError("file", path, err)
	}
	return true, nil
}

func applyTOML(cfg *Config, content []byte, baseDir string) error {
	// Decode lists into a fresh value so they extend rather than replace
	// what earlier sources configured.
	var overlay struct {
		AllowedPaths []struct {
			Path string `toml:"path"`
			Name string `toml:"name"`
		} `toml:"allowed_paths"`
		Exclude []string `toml:"exclude"`
	}
	if err := toml.Unmarshal(content, &overlay); err != nil {
		return err
	}

	allowed, exclude := cfg.AllowedPaths, cfg.Exclude
	if err := toml.Unmarshal(content, cfg); err != nil {
		return err
	}
	cfg.AllowedPaths, cfg.Exclude = allowed, append(exclude, overlay.Exclude...)

	for _, entry := range overlay.AllowedPaths {
		if entry.Path == "" {
			continue
		}
		p := entry.Path
		if !filepath.IsAbs(p) && baseDir != "" {
			p = filepath.Join(baseDir, p)
		}
		cfg.AllowedPaths = append(cfg.AllowedPaths, security.AllowedPath{Path: filepath.Clean(p), Name: entry.Name})
	}
	return nil
}

// MarshalTOML renders cfg as TOML, used by `config show`
func MarshalTOML(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
