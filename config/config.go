package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"
)

// Config carries the CLI's settings. All fields have working defaults; a
// TOML file overrides them.
type Config struct {
	// RepoDir holds the client's local state (transfer history, account
	// snapshot).
	RepoDir string

	LogLevel string

	Stress StressConfig
}

type StressConfig struct {
	// Immutable is the number of immutable chunks to put and get.
	Immutable int
	// Mutable is the number of mutable records to put and get.
	Mutable int
	// ChunkSize is the size of each generated chunk in bytes.
	ChunkSize int
	// Payout is the simulated balance minted into the test account.
	Payout uint64
}

func Default() *Config {
	return &Config{
		RepoDir:  "~/.safe-client",
		LogLevel: "info",
		Stress: StressConfig{
			Immutable: 100,
			Mutable:   100,
			ChunkSize: 1024,
			Payout:    1000000,
		},
	}
}

// FromFile loads a config, layering the file's values over the defaults. A
// missing file just yields the defaults.
func FromFile(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, xerrors.Errorf("reading config %s: %w", path, err)
	}

	return cfg, nil
}

// ExpandRepoDir resolves the repo dir against the user's home directory.
func (c *Config) ExpandRepoDir() (string, error) {
	return homedir.Expand(c.RepoDir)
}
