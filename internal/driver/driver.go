// Package driver runs the partition phase for the CLI: it loads the program
// document, consults the result cache, runs partition.Run and collects
// timings.
package driver

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"ravens/internal/diag"
	"ravens/internal/observ"
	"ravens/internal/partition"
	"ravens/internal/program"
	"ravens/internal/project"
	"ravens/internal/source"
	"ravens/internal/trace"
)

// CacheOptions configures the two cache tiers.
type CacheOptions struct {
	Enabled       bool
	Dir           string // disk tier root; empty means $XDG_CACHE_HOME/ravens
	MemoryEntries int    // in-memory tier size; 0 disables it
}

// Options describes one partition request.
type Options struct {
	ProgramPath string
	Format      program.Format
	Partition   partition.Options
}

// CacheTier names where a result came from.
type CacheTier string

const (
	CacheMiss   CacheTier = ""
	CacheMemory CacheTier = "memory"
	CacheDisk   CacheTier = "disk"
)

// Outcome is everything the CLI renders. Bag holds document errors when the
// program could not be loaded, and the phase diagnostics otherwise.
type Outcome struct {
	Program *program.Program
	Files   *source.FileSet
	Result  *partition.Result
	Bag     *diag.Bag
	Digest  project.Digest
	Cache   CacheTier
	Timings observ.Report
}

// Session holds state shared by consecutive requests, currently the caches.
type Session struct {
	mem  *lru.Cache[project.Digest, partition.Snapshot]
	disk *DiskCache
}

// NewSession opens the configured caches.
func NewSession(cfg CacheOptions) (*Session, error) {
	s := &Session{}
	if !cfg.Enabled {
		return s, nil
	}
	if cfg.MemoryEntries > 0 {
		mem, err := lru.New[project.Digest, partition.Snapshot](cfg.MemoryEntries)
		if err != nil {
			return nil, fmt.Errorf("memory cache: %w", err)
		}
		s.mem = mem
	}
	disk, err := OpenDiskCache("ravens", cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("disk cache: %w", err)
	}
	s.disk = disk
	return s, nil
}

// Disk returns the disk tier, nil when caching is off.
func (s *Session) Disk() *DiskCache { return s.disk }

// CacheKey combines the program digest with the settings that change the
// result. Jobs is not part of it: results do not depend on parallelism.
func CacheKey(digest project.Digest, opts partition.Options) project.Digest {
	settings := fmt.Sprintf("schema=%d;dead_code=%s;max_diagnostics=%d",
		diskCacheSchemaVersion, opts.DeadCode, opts.MaxDiagnostics)
	return project.Combine(digest, project.HashString(settings))
}

// Partition loads opts.ProgramPath and partitions it.
func (s *Session) Partition(ctx context.Context, opts Options) (*Outcome, error) {
	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "driver/partition")
	defer span.End("")

	timer := opts.Partition.Timer
	if timer == nil {
		timer = observ.NewTimer()
		opts.Partition.Timer = timer
	}
	out := &Outcome{}
	defer func() { out.Timings = timer.Report() }()

	done := timer.Track("load")
	prog, err := program.Load(opts.ProgramPath, opts.Format)
	if err != nil {
		done("failed")
		if de, ok := program.IsDocError(err); ok {
			out.Bag, out.Files = de.Bag, de.Files
			return out, nil
		}
		return nil, err
	}
	done(fmt.Sprintf("%d decls", prog.Len()))
	out.Program, out.Files = prog, prog.Files

	digest, err := prog.Digest()
	if err != nil {
		return nil, err
	}
	out.Digest = digest
	key := CacheKey(digest, opts.Partition)

	done = timer.Track("cache")
	snap, tier, err := s.lookup(key)
	done(string(tier))
	if err != nil {
		// битый кэш не должен ломать сборку
		trace.Point(trace.FromContext(ctx), trace.ScopeDriver, "cache", err.Error(), span.ID())
	}
	if tier != CacheMiss {
		out.Result = snap.Restore()
		out.Bag = out.Result.Bag
		out.Cache = tier
		diag.ReportInfo(infoReporter{bag: out.Bag}, diag.ObsCacheHit, source.Span{},
			fmt.Sprintf("partition of %q served from %s cache (%s)", prog.Name, tier, key.Short())).
			Emit()
		if tier == CacheDisk && s.mem != nil {
			s.mem.Add(key, snap)
		}
		return out, nil
	}

	res, err := partition.Run(ctx, prog, opts.Partition)
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", prog.Name, err)
	}
	out.Result, out.Bag = res, res.Bag
	if err := s.store(key, prog.Name, res.Snapshot()); err != nil {
		trace.Point(trace.FromContext(ctx), trace.ScopeDriver, "cache", err.Error(), span.ID())
	}
	return out, nil
}

func (s *Session) lookup(key project.Digest) (partition.Snapshot, CacheTier, error) {
	if s.mem != nil {
		if snap, ok := s.mem.Get(key); ok {
			return snap, CacheMemory, nil
		}
	}
	if s.disk == nil {
		return partition.Snapshot{}, CacheMiss, nil
	}
	var payload DiskPayload
	ok, err := s.disk.Get(key, &payload)
	if err != nil || !ok {
		return partition.Snapshot{}, CacheMiss, err
	}
	return payload.Result, CacheDisk, nil
}

func (s *Session) store(key project.Digest, name string, snap partition.Snapshot) error {
	if s.mem != nil {
		s.mem.Add(key, snap)
	}
	if s.disk == nil {
		return nil
	}
	return s.disk.Put(key, &DiskPayload{Program: name, Result: snap})
}

// ExitCode maps an outcome to the process exit status: 0 success, 1 fatal
// diagnostics or unreadable program.
func (o *Outcome) ExitCode() int {
	if o == nil || o.Result == nil {
		return 1
	}
	if err := o.Result.Err(); err != nil {
		return 1
	}
	return 0
}

// IsInternal reports whether err is a broken input invariant or an internal
// bug rather than a user-facing problem.
func IsInternal(err error) bool {
	return errors.Is(err, partition.ErrUnresolvedReference) ||
		errors.Is(err, partition.ErrConcurrentPlacementWrite) ||
		errors.Is(err, partition.ErrUnresolvedPlacement) ||
		errors.Is(err, partition.ErrMissingServerDecl) ||
		errors.Is(err, partition.ErrStubTable)
}
