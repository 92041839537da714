package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-vcf/internal/transport"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func newHeaderCmd() *cobra.Command {
	var samples bool

	cmd := &cobra.Command{
		Use:   "header <input>",
		Short: "Print the header of a VCF file",
		Example: `  vibe-vcf header input.vcf.gz
  vibe-vcf header --samples input.vcf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := transport.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			r, err := vcf.NewReader(in)
			if err != nil {
				return err
			}

			h := r.Header()
			if samples {
				if len(h.Samples) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), strings.Join(h.Samples, "\n"))
				}
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), vcf.FormatHeader(h))
			return nil
		},
	}

	cmd.Flags().BoolVar(&samples, "samples", false, "Only list sample names, one per line")
	return cmd
}
