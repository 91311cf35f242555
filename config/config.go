package config

import (
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

type Path string

func (p Path) Join(elem ...string) Path {
	parts := append([]string{string(p)}, elem...)
	return Path(filepath.Join(parts...))
}

func (p Path) ToString() string {
	return string(p)
}

func Load(path Path, cfg any) error {
	// cleanenv routes by extension and does not know ".conf"; decode those
	// as TOML directly, then apply the same env-var overlay.
	if filepath.Ext(path.ToString()) == ".conf" {
		if _, err := toml.DecodeFile(path.ToString(), cfg); err != nil {
			return err
		}
		return cleanenv.ReadEnv(cfg)
	}
	err := cleanenv.ReadConfig(path.ToString(), cfg)
	return err
}

// LoadEnv fills cfg from environment variables and env-default tags only,
// for first runs where no config file exists yet.
func LoadEnv(cfg any) error {
	return cleanenv.ReadEnv(cfg)
}
