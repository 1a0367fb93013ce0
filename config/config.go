// Package config loads bellos's optional startup file, ~/.bellosrc.toml.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the set of settings bellos reads from its startup file.
// Every field is optional; a missing or unreadable file simply leaves
// the zero Config, which callers should treat as "use the built-in
// defaults".
type Config struct {
	IFS               string   `toml:"ifs"`
	ExtraPath         []string `toml:"extra_path"`
	InteractivePrompt string   `toml:"interactive_prompt"`
}

// Load reads ~/.bellosrc.toml, if it exists. A missing file is not an
// error: it returns a zero Config. A present-but-malformed file is an
// error, since that almost always means the user meant to configure
// something and mistyped it.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, nil
	}
	return LoadPath(filepath.Join(home, ".bellosrc.toml"))
}

// LoadPath reads and parses the startup file at path.
func LoadPath(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
