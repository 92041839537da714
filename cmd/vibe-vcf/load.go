package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/duckdb"
	"github.com/inodb/vibe-vcf/internal/transport"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func newLoadCmd() *cobra.Command {
	var (
		batch int
		force bool
	)

	cmd := &cobra.Command{
		Use:   "load <input>",
		Short: "Load VCF records into a DuckDB database",
		Long: `Load records into the variants and genotypes tables of a DuckDB database
for ad-hoc SQL. A file whose size and modification time match a previous load
is skipped unless --force is given.`,
		Example: `  vibe-vcf load --db calls.duckdb input.vcf.gz
  duckdb calls.duckdb "SELECT chrom, count(*) FROM variants GROUP BY chrom"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()

			return runLoad(args[0], viper.GetString("duckdb.path"), batch, force, logger)
		},
	}

	f := cmd.Flags()
	f.String("db", "", "DuckDB database path (default: duckdb.path from config)")
	f.IntVar(&batch, "batch", duckdb.DefaultBatchSize, "Records per appender flush")
	f.BoolVar(&force, "force", false, "Load even if the file was loaded before")
	viper.BindPFlag("duckdb.path", f.Lookup("db"))

	return cmd
}

func runLoad(input, dbPath string, batch int, force bool, logger *zap.Logger) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var fp duckdb.FileFingerprint
	fromFile := input != "-"
	if fromFile {
		if fp, err = duckdb.StatFile(input); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
		loaded, err := store.SourceLoaded(fp)
		if err != nil {
			return err
		}
		if loaded && !force {
			logger.Info("input already loaded, skipping",
				zap.String("input", input),
				zap.String("db", dbPath))
			return nil
		}
	}

	in, err := transport.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	r, err := vcf.NewReader(in)
	if err != nil {
		return err
	}
	r.SetLogger(logger)

	n, err := store.Load(r, batch)
	if err != nil {
		return fmt.Errorf("loading %s: %w", input, err)
	}
	loadID := ""
	if fromFile {
		if loadID, err = store.RecordSource(fp, n); err != nil {
			return err
		}
	}

	logger.Info("loaded records",
		zap.String("input", input),
		zap.String("db", dbPath),
		zap.String("load_id", loadID),
		zap.Int64("records", n))
	return nil
}
