package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ravens/internal/diag"
	"ravens/internal/diagfmt"
	"ravens/internal/driver"
	"ravens/internal/observ"
)

// runPhase loads settings and runs the partition phase. Diagnostics stay in
// the outcome; callers render them in their own format.
func runPhase(cmd *cobra.Command, args []string) (*driver.Outcome, *settings, error) {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	s, err := loadSettings(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	session, err := driver.NewSession(s.cache)
	if err != nil {
		return nil, nil, err
	}

	opts := driver.Options{
		ProgramPath: s.programPath,
		Format:      s.format,
		Partition:   s.partition,
	}
	opts.Partition.Timer = observ.NewTimer()
	out, err := session.Partition(cmd.Context(), opts)
	if err != nil {
		dumpRing(cmd)
		if driver.IsInternal(err) {
			return nil, s, &exitError{code: 2, err: fmt.Errorf("internal error: %w", err)}
		}
		return nil, s, err
	}
	return out, s, nil
}

// outcomeError converts fatal diagnostics into the process status.
func outcomeError(out *driver.Outcome, s *settings) error {
	if code := out.ExitCode(); code != 0 {
		return &exitError{code: code, err: fmt.Errorf("partition of %s failed", s.programPath)}
	}
	return nil
}

// printDiagnostics renders the outcome's diagnostics and, with --timings,
// the phase durations to stderr.
func printDiagnostics(cmd *cobra.Command, out *driver.Outcome, s *settings) {
	w := cmd.ErrOrStderr()
	if out.Bag != nil && out.Bag.Len() > 0 {
		bag := out.Bag
		if s.quiet {
			bag = bag.Filter(func(d diag.Diagnostic) bool { return d.Severity >= diag.SevWarning })
		}
		diagfmt.Pretty(w, bag, out.Files, diagfmt.PrettyOpts{
			Color:     s.color,
			PathMode:  s.pathMode,
			BaseDir:   s.baseDir,
			ShowNotes: true,
		})
		truncated := 0
		if out.Result != nil {
			truncated = out.Result.Truncated()
		}
		diagfmt.Summary(w, bag, truncated, s.color)
	}
	if s.timings && !s.quiet {
		printTimings(w, out)
	}
}
