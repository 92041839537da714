package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// DefaultBatchSize is the number of records buffered per appender flush.
const DefaultBatchSize = 10000

// VariantRow is one row of the variants table. Text columns hold the
// serialized VCF column.
type VariantRow struct {
	Record      int64
	Chrom       string
	Pos         int64
	ID          string
	Ref         string
	Alt         string
	Qual        *float64
	Filter      string
	Info        string
	VariantType string
}

// GenotypeRow is one row of the genotypes table.
type GenotypeRow struct {
	Record int64
	Sample string
	GT     string
	Fields string
}

// WriteRecords batch-inserts records using the Appender API, numbering them
// from start. Each record is serialized under h first, so a record that
// cannot be written aborts the batch before anything is appended.
func (s *Store) WriteRecords(h *vcf.Header, start int64, recs []*vcf.Record) error {
	if len(recs) == 0 {
		return nil
	}

	lines := make([][]string, len(recs))
	for i, rec := range recs {
		line, err := vcf.FormatRecord(h, rec)
		if err != nil {
			return fmt.Errorf("format record %d: %w", start+int64(i), err)
		}
		lines[i] = strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var variants, genotypes *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		variants, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "variants")
		if err != nil {
			return err
		}
		genotypes, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "genotypes")
		if err != nil {
			variants.Close()
		}
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer variants.Close()
	defer genotypes.Close()

	for i, rec := range recs {
		idx := start + int64(i)
		cols := lines[i]

		var qual any
		if q, ok := rec.QualValue(); ok {
			qual = q
		}
		if err := variants.AppendRow(
			idx, rec.Chrom, rec.Pos, cols[2], rec.Ref, cols[4],
			qual, cols[6], cols[7], rec.VariantType(),
		); err != nil {
			return fmt.Errorf("append variant: %w", err)
		}

		for j, sample := range h.Samples {
			if 9+j >= len(cols) {
				break
			}
			gt := ""
			if v, ok := rec.Samples[j].Get("GT"); ok {
				gt = vcf.EncodeValue(v)
			}
			if err := genotypes.AppendRow(idx, int64(j), sample, gt, cols[9+j]); err != nil {
				return fmt.Errorf("append genotype: %w", err)
			}
		}
	}

	if err := variants.Flush(); err != nil {
		return fmt.Errorf("flush variants: %w", err)
	}
	return genotypes.Flush()
}

// Load appends every record from r in batches, numbering records after the
// ones already stored. It returns the number of records loaded.
func (s *Store) Load(r vcf.RecordReader, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	start, err := s.nextRecord()
	if err != nil {
		return 0, err
	}

	var loaded int64
	batch := make([]*vcf.Record, 0, batchSize)
	flush := func() error {
		if err := s.WriteRecords(r.Header(), start+loaded, batch); err != nil {
			return err
		}
		loaded += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := r.Next()
		if err != nil {
			return loaded, err
		}
		if rec == nil {
			break
		}
		batch = append(batch, rec)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return loaded, err
			}
		}
	}
	if err := flush(); err != nil {
		return loaded, err
	}
	return loaded, nil
}

func (s *Store) nextRecord() (int64, error) {
	var next int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(record) + 1, 0) FROM variants`).Scan(&next); err != nil {
		return 0, fmt.Errorf("query record count: %w", err)
	}
	return next, nil
}

// CountVariants returns the number of stored records.
func (s *Store) CountVariants() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM variants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count variants: %w", err)
	}
	return n, nil
}

// ClearVariants removes all loaded records, genotypes and source fingerprints.
func (s *Store) ClearVariants() error {
	for _, table := range []string{"variants", "genotypes", "sources"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// LookupPosition returns the records starting at chrom:pos.
func (s *Store) LookupPosition(chrom string, pos int64) ([]VariantRow, error) {
	rows, err := s.db.Query(`SELECT
		record, chrom, pos, id, ref, alt, qual, filter, info, variant_type
		FROM variants
		WHERE chrom=? AND pos=?
		ORDER BY record`, chrom, pos)
	if err != nil {
		return nil, fmt.Errorf("query position: %w", err)
	}
	defer rows.Close()

	return scanVariantRows(rows)
}

// SearchByFilter returns the records whose FILTER column equals filter.
func (s *Store) SearchByFilter(filter string) ([]VariantRow, error) {
	rows, err := s.db.Query(`SELECT
		record, chrom, pos, id, ref, alt, qual, filter, info, variant_type
		FROM variants
		WHERE filter=?
		ORDER BY record`, filter)
	if err != nil {
		return nil, fmt.Errorf("query by filter: %w", err)
	}
	defer rows.Close()

	return scanVariantRows(rows)
}

// Genotypes returns the sample calls of one record in sample order.
func (s *Store) Genotypes(record int64) ([]GenotypeRow, error) {
	rows, err := s.db.Query(`SELECT record, sample, gt, fields
		FROM genotypes WHERE record=?
		ORDER BY sample_index`, record)
	if err != nil {
		return nil, fmt.Errorf("query genotypes: %w", err)
	}
	defer rows.Close()

	var out []GenotypeRow
	for rows.Next() {
		var g GenotypeRow
		if err := rows.Scan(&g.Record, &g.Sample, &g.GT, &g.Fields); err != nil {
			return nil, fmt.Errorf("scan genotype: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genotypes: %w", err)
	}
	return out, nil
}

// scanVariantRows scans rows into VariantRow slices.
func scanVariantRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]VariantRow, error) {
	var results []VariantRow
	for rows.Next() {
		var v VariantRow
		if err := rows.Scan(
			&v.Record, &v.Chrom, &v.Pos, &v.ID, &v.Ref, &v.Alt,
			&v.Qual, &v.Filter, &v.Info, &v.VariantType,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return results, nil
}
