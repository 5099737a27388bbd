// Package config loads service configuration from TOML with environment
// variable overrides, via cleanenv.
package config

import (
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// Path is a filesystem path with a chainable Join.
type Path string

func (p Path) Join(elem ...string) Path {
	parts := append([]string{string(p)}, elem...)
	return Path(filepath.Join(parts...))
}

func (p Path) ToString() string {
	return string(p)
}

// Load reads a TOML file at path into cfg, applying env/env-default struct
// tag overrides.
func Load(path Path, cfg any) error {
	return cleanenv.ReadConfig(path.ToString(), cfg)
}
