package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-vcf/internal/stats"
	"github.com/inodb/vibe-vcf/internal/transport"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats <input>",
		Short: "Summarize the records of a VCF file",
		Example: `  vibe-vcf stats input.vcf.gz
  vibe-vcf stats --format tab input.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "tab" {
				return usageError{fmt.Errorf("unknown format %q (want yaml or tab)", format)}
			}

			logger := newLogger()
			defer logger.Sync()

			in, err := transport.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			r, err := vcf.NewReader(in)
			if err != nil {
				return err
			}
			r.SetLogger(logger)

			s, err := stats.Collect(r)
			if err != nil {
				return err
			}

			if format == "tab" {
				return s.WriteTab(cmd.OutOrStdout())
			}
			out, err := yaml.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshaling stats: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, tab")
	return cmd
}
