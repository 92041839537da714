package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/transport"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func newCopyCmd() *cobra.Command {
	var (
		output     string
		timing     bool
		repeat     int
		cpuProfile string
	)

	cmd := &cobra.Command{
		Use:   "copy <input>",
		Short: "Parse a VCF file and write it back out",
		Long: `Parse every record of a VCF file against its header and serialize it again
under the same header. Input may be plain, gzip or BGZF; '-' reads stdin.`,
		Example: `  vibe-vcf copy input.vcf.gz -o output.vcf
  vibe-vcf copy --gzip -o output.vcf.gz input.vcf
  vibe-vcf copy --time --repeat 5 -o /dev/null 1kg.vcf.gz
  cat input.vcf | vibe-vcf copy -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return fmt.Errorf("creating profile: %w", err)
				}
				defer f.Close()
				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("starting profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			opts := copyOptions{
				input:   args[0],
				output:  output,
				threads: viper.GetInt("threads"),
				gzip:    viper.GetBool("output.gzip"),
			}

			if !timing {
				_, err := runCopy(opts, logger)
				return err
			}

			if repeat < 1 {
				repeat = 1
			}
			var total time.Duration
			for i := 0; i < repeat; i++ {
				start := time.Now()
				n, err := runCopy(opts, logger)
				if err != nil {
					return err
				}
				elapsed := time.Since(start)
				total += elapsed
				logger.Debug("copy pass finished",
					zap.Int("pass", i+1),
					zap.Int("records", n),
					zap.Duration("elapsed", elapsed))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%.6f\n", (total / time.Duration(repeat)).Seconds())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	f.IntP("threads", "t", 0, "Decode workers; 1 decodes sequentially (default: number of CPUs)")
	f.Bool("gzip", false, "Write BGZF-compressed output")
	f.BoolVar(&timing, "time", false, "Report mean wall-clock seconds per pass on stderr")
	f.IntVar(&repeat, "repeat", 1, "Number of passes with --time")
	f.StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile to file")
	viper.BindPFlag("threads", f.Lookup("threads"))
	viper.BindPFlag("output.gzip", f.Lookup("gzip"))

	return cmd
}

type copyOptions struct {
	input   string
	output  string
	threads int
	gzip    bool
}

// runCopy streams input through a Reader into a Writer templated on the
// input header and returns the number of records copied.
func runCopy(opts copyOptions, logger *zap.Logger) (int, error) {
	in, err := transport.Open(opts.input)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	r, err := vcf.NewReader(in)
	if err != nil {
		return 0, err
	}
	r.SetLogger(logger)

	out, err := transport.Create(opts.output, opts.gzip)
	if err != nil {
		return 0, err
	}

	w, err := vcf.NewWriter(out, r.Header())
	if err != nil {
		out.Close()
		return 0, err
	}

	if err := copyRecords(r, w, opts.threads); err != nil {
		out.Close()
		return r.RecordCount(), err
	}
	if err := out.Close(); err != nil {
		return r.RecordCount(), fmt.Errorf("closing output: %w", err)
	}

	logger.Debug("copied records",
		zap.String("input", opts.input),
		zap.Int("records", r.RecordCount()),
		zap.Int("lines", r.LineNumber()))
	return r.RecordCount(), nil
}

func copyRecords(r *vcf.Reader, w *vcf.Writer, threads int) error {
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if threads > 1 {
		if err := vcf.DecodeOrdered(r, threads, w.Write); err != nil {
			return err
		}
		return w.Flush()
	}

	for {
		rec, err := r.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing record %d: %w", r.RecordCount(), err)
		}
	}
	return w.Flush()
}
