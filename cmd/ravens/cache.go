package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ravens/internal/driver"
	"ravens/internal/project"
)

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the partition result cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Remove every cached partition result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := project.DefaultConfig()
			if m, ok, err := project.LoadManifest("."); err != nil {
				return err
			} else if ok {
				cfg = m.Config
			}
			dc, err := driver.OpenDiskCache("ravens", cfg.Cache.Dir)
			if err != nil {
				return err
			}
			if err := dc.DropAll(); err != nil {
				return fmt.Errorf("clean %s: %w", dc.Dir(), err)
			}
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "cleaned %s\n", dc.Dir())
			}
			return nil
		},
	})
	return cacheCmd
}
