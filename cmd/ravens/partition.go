package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ravens/internal/diagfmt"
	"ravens/internal/driver"
	"ravens/internal/partition"
	"ravens/internal/program"
)

type partitionReport struct {
	Program     string                    `json:"program"`
	Digest      string                    `json:"digest"`
	Cache       string                    `json:"cache,omitempty"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics"`
	Output      *partition.Output         `json:"output,omitempty"`
	Stats       *partition.Stats          `json:"stats,omitempty"`
}

func newPartitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition [program]",
		Short: "Assign every declaration to server, client or shared",
		Long: `Runs the placement phase over a resolved program document and prints the
placement map, the boundary calls and the RPC stub table.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPartition,
	}
	cmd.Flags().String("format", "text", "output format (text|json|msgpack)")
	cmd.Flags().StringP("output", "o", "", "write the result to a file instead of stdout")
	return cmd
}

func runPartition(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "text", "json", "msgpack":
	default:
		return fmt.Errorf("unsupported format %q (must be text, json or msgpack)", format)
	}

	out, s, err := runPhase(cmd, args)
	if err != nil {
		return err
	}

	target := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		target = f
	}

	switch format {
	case "json":
		if s.timings {
			out.AppendTimingDiagnostic(s.programPath)
		}
		if err := writePartitionJSON(target, out, s); err != nil {
			return err
		}
	case "msgpack":
		printDiagnostics(cmd, out, s)
		if out.Result != nil && out.Result.Output != nil {
			data, err := out.Result.Output.Encode()
			if err != nil {
				return err
			}
			if _, err := target.Write(data); err != nil {
				return err
			}
		}
	default:
		printDiagnostics(cmd, out, s)
		if out.Result != nil && out.Result.Output != nil && !s.quiet {
			writePartitionText(target, out)
		}
	}
	return outcomeError(out, s)
}

func writePartitionJSON(w io.Writer, out *driver.Outcome, s *settings) error {
	report := partitionReport{
		Cache: string(out.Cache),
		Diagnostics: diagfmt.BuildDiagnosticsOutput(out.Bag, out.Files, diagfmt.JSONOpts{
			PathMode:     s.pathMode,
			BaseDir:      s.baseDir,
			IncludeNotes: true,
		}),
	}
	if out.Program != nil {
		report.Program = out.Program.Name
		report.Digest = out.Digest.String()
	}
	if out.Result != nil {
		report.Output = out.Result.Output
		report.Stats = &out.Result.Stats
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writePartitionText(w io.Writer, out *driver.Outcome) {
	o := out.Result.Output
	names := func(ids []program.DeclID) string {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = out.Program.Path(id)
		}
		return strings.Join(parts, ", ")
	}
	fmt.Fprintf(w, "program %s: %d declarations, %d boundary call(s), %d stub(s)\n",
		o.Program, len(o.Placements), len(o.Boundary), len(o.Stubs))
	fmt.Fprintf(w, "server (%d): %s\n", len(o.Server), names(o.Server))
	fmt.Fprintf(w, "client (%d): %s\n", len(o.Client), names(o.Client))
	fmt.Fprintf(w, "shared (%d): %s\n", len(o.Shared), names(o.Shared))
	if len(o.Dropped) > 0 {
		fmt.Fprintf(w, "dropped (%d): %s\n", len(o.Dropped), names(o.Dropped))
	}
	for _, st := range o.Stubs {
		callers := make([]string, len(st.Callers))
		for i, id := range st.Callers {
			callers[i] = out.Program.Path(id)
		}
		fmt.Fprintf(w, "rpc %s: %s -> %s (%s)\n", st.StableName, strings.Join(callers, ", "), st.Path, st.Proxy.Returns)
	}
}
