package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustle-deploy/rustle-deploy/internal/cache"
	"github.com/rustle-deploy/rustle-deploy/internal/ports"
)

func newCacheCmd(flags *rootFlags, logger ports.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the compilation cache",
	}

	cmd.AddCommand(newCacheInspectCmd(flags))
	cmd.AddCommand(newCachePruneCmd(flags))
	return cmd
}

func newCacheInspectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List every cached compiled artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.New(flags.cacheDir)
			if err != nil {
				return err
			}
			entries, err := c.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "cache is empty")
				return nil
			}
			for _, m := range entries {
				fmt.Fprintf(out, "%s  %-28s  %8d bytes  %s\n", m.Fingerprint, m.TargetTriple, m.Size, m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}

func newCachePruneCmd(flags *rootFlags) *cobra.Command {
	var targetTriple string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Evict cached artifacts matching a filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.New(flags.cacheDir)
			if err != nil {
				return err
			}

			removed := 0
			err = c.Evict(func(m cache.Metadata) bool {
				match := targetTriple == "" || m.TargetTriple == targetTriple
				if match {
					removed++
				}
				return match
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "evicted %d cache entries\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetTriple, "target-triple", "", "Only evict artifacts built for this target triple")
	return cmd
}
