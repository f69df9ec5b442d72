package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ravens/internal/diagfmt"
	"ravens/internal/driver"
	"ravens/internal/partition"
	"ravens/internal/program"
	"ravens/internal/project"
)

// settings is the manifest merged with explicitly set flags.
type settings struct {
	programPath string
	format      program.Format
	partition   partition.Options
	cache       driver.CacheOptions
	color       bool
	quiet       bool
	timings     bool
	pathMode    diagfmt.PathMode
	baseDir     string
}

// loadSettings reads ravens.toml from the working directory upwards and
// applies flag overrides. A flag wins only when the user set it.
func loadSettings(cmd *cobra.Command, args []string) (*settings, error) {
	cfg := project.DefaultConfig()
	manifest, ok, err := project.LoadManifest(".")
	if err != nil {
		return nil, err
	}
	s := &settings{}
	if ok {
		cfg = manifest.Config
		s.baseDir = manifest.Root
	} else if wd, err := os.Getwd(); err == nil {
		s.baseDir = wd
	}

	flags := cmd.Flags()
	if flags.Changed("dead-code") {
		raw, _ := flags.GetString("dead-code")
		policy, err := project.ParseDeadCodePolicy(raw)
		if err != nil {
			return nil, err
		}
		cfg.Partition.DeadCode = policy
	}
	if flags.Changed("jobs") {
		jobs, _ := flags.GetInt("jobs")
		if jobs < 0 {
			return nil, fmt.Errorf("--jobs must be >= 0")
		}
		cfg.Partition.Jobs = jobs
	}
	if flags.Changed("max-diagnostics") {
		cfg.Partition.MaxDiagnostics, _ = flags.GetInt("max-diagnostics")
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}

	switch {
	case len(args) > 0:
		s.programPath = args[0]
	case ok:
		path, has := manifest.ProgramPath()
		if !has {
			return nil, fmt.Errorf("%s: [package].program is not set and no program path was given", manifest.Path)
		}
		s.programPath = path
	default:
		return nil, fmt.Errorf("no program path given and no %s found", project.ManifestName)
	}

	rawFormat, _ := flags.GetString("program-format")
	if s.format, err = program.ParseFormat(rawFormat); err != nil {
		return nil, err
	}
	rawMode, _ := flags.GetString("path-mode")
	mode, valid := diagfmt.ParsePathMode(rawMode)
	if !valid {
		return nil, fmt.Errorf("invalid --path-mode value %q (expected auto|absolute|relative|basename)", rawMode)
	}
	s.pathMode = mode

	colorFlag, _ := flags.GetString("color")
	if s.color, err = readColorMode(colorFlag); err != nil {
		return nil, err
	}
	s.quiet, _ = flags.GetBool("quiet")
	s.timings, _ = flags.GetBool("timings")

	s.partition = partition.Options{
		DeadCode:       cfg.Partition.DeadCode,
		Jobs:           cfg.Partition.Jobs,
		MaxDiagnostics: cfg.Partition.MaxDiagnostics,
	}
	s.cache = driver.CacheOptions{
		Enabled:       cfg.Cache.Enabled,
		Dir:           cfg.Cache.Dir,
		MemoryEntries: cfg.Cache.MemoryEntries,
	}
	return s, nil
}

func readColorMode(value string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}
