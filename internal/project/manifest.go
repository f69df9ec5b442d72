package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the project manifest file looked up from the working directory.
const ManifestName = "ravens.toml"

// DeadCodePolicy decides what happens to declarations unreachable from every
// placement seed.
type DeadCodePolicy string

const (
	// DeadCodeShared warns and emits the declaration on both sides.
	DeadCodeShared DeadCodePolicy = "shared"
	// DeadCodeKeep emits on both sides without a warning.
	DeadCodeKeep DeadCodePolicy = "keep"
	// DeadCodeDrop warns and leaves the declaration out of both outputs.
	DeadCodeDrop DeadCodePolicy = "drop"
)

// ParseDeadCodePolicy validates a policy string.
func ParseDeadCodePolicy(s string) (DeadCodePolicy, error) {
	switch p := DeadCodePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DeadCodeShared, DeadCodeKeep, DeadCodeDrop:
		return p, nil
	case "":
		return DeadCodeShared, nil
	}
	return "", fmt.Errorf("invalid dead_code policy %q (expected: shared|keep|drop)", s)
}

// Manifest is a loaded ravens.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the ravens.toml layout.
type Config struct {
	Package   PackageConfig   `toml:"package"`
	Partition PartitionConfig `toml:"partition"`
	Cache     CacheConfig     `toml:"cache"`
}

type PackageConfig struct {
	Name    string `toml:"name"`
	Program string `toml:"program"` // resolved program document, relative to the manifest
}

type PartitionConfig struct {
	DeadCode       DeadCodePolicy `toml:"dead_code"`
	Jobs           int            `toml:"jobs"`
	MaxDiagnostics int            `toml:"max_diagnostics"`
}

type CacheConfig struct {
	Enabled       bool   `toml:"enabled"`
	Dir           string `toml:"dir"`
	MemoryEntries int    `toml:"memory_entries"`
}

// DefaultConfig returns the settings used when no manifest exists.
func DefaultConfig() Config {
	return Config{
		Partition: PartitionConfig{
			DeadCode:       DeadCodeShared,
			MaxDiagnostics: 100,
		},
		Cache: CacheConfig{
			Enabled:       true,
			MemoryEntries: 64,
		},
	}
}

// FindManifest walks up from startDir to locate ravens.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest finds and parses ravens.toml starting at startDir. ok is false
// when no manifest exists; the caller then falls back to DefaultConfig.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// LoadConfig parses a manifest file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	policy, err := ParseDeadCodePolicy(string(cfg.Partition.DeadCode))
	if err != nil {
		return Config{}, fmt.Errorf("%s: [partition]: %w", path, err)
	}
	cfg.Partition.DeadCode = policy
	if cfg.Partition.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: [partition].jobs must be >= 0", path)
	}
	if cfg.Cache.MemoryEntries < 0 {
		return Config{}, fmt.Errorf("%s: [cache].memory_entries must be >= 0", path)
	}
	return cfg, nil
}

// ProgramPath resolves [package].program against the manifest directory.
func (m *Manifest) ProgramPath() (string, bool) {
	if m == nil || strings.TrimSpace(m.Config.Package.Program) == "" {
		return "", false
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Package.Program)), true
}
