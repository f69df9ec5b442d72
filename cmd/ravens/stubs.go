package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"ravens/internal/partition"
)

type stubsPayload struct {
	Program string              `json:"program"`
	Stubs   []partition.RpcStub `json:"stubs"`
}

func newStubsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stubs [program]",
		Short: "Print the RPC stub table as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, s, err := runPhase(cmd, args)
			if err != nil {
				return err
			}
			printDiagnostics(cmd, out, s)
			if out.Result == nil || out.Result.Output == nil {
				return outcomeError(out, s)
			}
			payload := stubsPayload{
				Program: out.Result.Output.Program,
				Stubs:   out.Result.Output.Stubs,
			}
			if payload.Stubs == nil {
				payload.Stubs = []partition.RpcStub{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(payload); err != nil {
				return err
			}
			return outcomeError(out, s)
		},
	}
}
