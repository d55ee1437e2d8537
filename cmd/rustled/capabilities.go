package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustle-deploy/rustle-deploy/internal/compiler"
	"github.com/rustle-deploy/rustle-deploy/internal/ports"
)

func newCapabilitiesCmd(logger ports.Logger) *cobra.Command {
	var hostTriple string

	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Probe compilation backends and report the host's capability level",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := compiler.NewRegistry()
			if hostTriple == "" {
				hostTriple = defaultHostTriple()
			}
			if err := reg.Register(compiler.NewNativeBackend(hostTriple)); err != nil {
				return err
			}
			if err := reg.Register(compiler.NewCrossBackend()); err != nil {
				return err
			}

			report := compiler.Discover(cmd.Context(), reg, hostTriple)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "host triple:       %s\n", report.HostTriple)
			fmt.Fprintf(out, "capability level:  %s\n", report.Level)
			fmt.Fprintf(out, "native available:  %t\n", report.NativeAvailable)
			fmt.Fprintf(out, "cross available:   %t\n", report.CrossAvailable)
			if len(report.Details) > 0 {
				fmt.Fprintln(out, "backend notes:")
				for name, msg := range report.Details {
					fmt.Fprintf(out, "  - %s: %s\n", name, msg)
				}
			}

			if report.Level == compiler.Insufficient {
				return fmt.Errorf("no usable native compiler toolchain found for %s", report.HostTriple)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hostTriple, "host-triple", "", "Override the detected host target triple")
	return cmd
}
