package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ravens/internal/version"
)

// exitError carries a non-default process status out of RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ravens",
		Short:         "Client/server placement partitioner",
		Long:          `ravens splits a resolved program into server and client halves and synthesizes RPC stubs for the calls that cross between them`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newPartitionCmd())
	rootCmd.AddCommand(newStubsCmd())
	rootCmd.AddCommand(newPlacementCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to report")
	pf.Int("jobs", 0, "max parallel component solvers (0=auto)")
	pf.String("dead-code", "shared", "policy for unreachable declarations (shared|keep|drop)")
	pf.Bool("no-cache", false, "disable the result cache")
	pf.String("program-format", "auto", "program document format (auto|yaml|json|msgpack)")
	pf.String("path-mode", "auto", "how diagnostic paths are shown (auto|absolute|relative|basename)")
	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept in ring mode")
	return rootCmd
}

// main initializes the CLI and executes the root command. Fatal diagnostics
// exit with 1, internal errors with 2.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func terminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
