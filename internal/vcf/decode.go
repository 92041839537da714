package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Decode decodes one record line against h. Fatal problems are returned as
// an error; recoverable ones are collected in the record's Warnings. Decode
// only reads h and is safe to call from several goroutines.
func Decode(h *Header, line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	if err := checkColumns(h, len(fields)); err != nil {
		return nil, err
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPosition, fields[1])
	}

	rec := &Record{
		Chrom: fields[0],
		Pos:   pos,
		Ref:   fields[3],
	}
	if fields[2] != "." {
		rec.ID = strings.Split(fields[2], ";")
	}
	if fields[4] != "." {
		rec.Alt = strings.Split(fields[4], ",")
	}
	if fields[5] != "." {
		q, err := parseFloat(fields[5])
		if err != nil {
			return nil, fmt.Errorf("%w: QUAL %q is not a Float", ErrTypeMismatch, fields[5])
		}
		rec.Qual = &q
	}

	decodeFilter(h, rec, fields[6])

	if err := decodeInfo(h, rec, fields[7]); err != nil {
		return nil, err
	}

	if len(fields) > len(fixedColumns) {
		if err := decodeSamples(h, rec, fields[len(fixedColumns)], fields[len(fixedColumns)+1:]); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// checkColumns enforces 8 columns for sites-only headers (a trailing FORMAT
// column is tolerated) and 9+N columns otherwise.
func checkColumns(h *Header, n int) error {
	want := len(fixedColumns)
	if len(h.Samples) > 0 {
		want += 1 + len(h.Samples)
	} else if n == want+1 {
		return nil
	}
	if n != want {
		return fmt.Errorf("%w: expected %d columns, found %d", ErrColumnCount, want, n)
	}
	return nil
}

func (r *Record) warn(err error) {
	r.Warnings = append(r.Warnings, err)
}

func decodeFilter(h *Header, rec *Record, col string) {
	switch col {
	case ".":
		rec.Filter = Filter{Status: NotEvaluated}
		return
	case "PASS":
		rec.Filter = Filter{Status: Pass}
		return
	}

	ids := strings.Split(col, ";")
	for _, id := range ids {
		if _, ok := h.Filters[id]; !ok {
			rec.warn(fmt.Errorf("%w: %s", ErrUnknownFilter, id))
		}
	}
	rec.Filter = Filter{Status: Failed, IDs: ids}
}

func decodeInfo(h *Header, rec *Record, col string) error {
	if col == "." || col == "" {
		return nil
	}

	items := strings.Split(col, ";")
	rec.Info = make(Fields, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		key, raw, hasValue := strings.Cut(item, "=")

		def, declared := h.Infos[key]
		switch {
		case !declared:
			rec.warn(fmt.Errorf("%w: %s", ErrUnknownInfo, key))
			if !hasValue {
				rec.Info.Set(key, FlagValue())
				continue
			}
			v, _ := DecodeValue(raw, nil, Unbounded)
			rec.Info.Set(key, v)
			continue
		case def.Type == Flag:
			if hasValue {
				rec.warn(fmt.Errorf("%w: flag %s carries value %q", ErrTypeMismatch, key, raw))
			}
			rec.Info.Set(key, FlagValue())
			continue
		case !hasValue:
			rec.warn(fmt.Errorf("%w: %s has no value", ErrTypeMismatch, key))
			rec.Info.Set(key, FlagValue())
			continue
		}

		v, err := DecodeValue(raw, def, def.Resolve(len(rec.Alt), 0))
		if err != nil {
			return fmt.Errorf("INFO %s: %w", key, err)
		}
		rec.Info.Set(key, v)
	}
	return nil
}

func decodeSamples(h *Header, rec *Record, format string, cols []string) error {
	if format != "." && format != "" {
		rec.Format = strings.Split(format, ":")
	}

	defs := make([]*FieldDefinition, len(rec.Format))
	for i, key := range rec.Format {
		def, ok := h.Formats[key]
		if !ok {
			rec.warn(fmt.Errorf("%w: %s", ErrUnknownFormat, key))
		}
		defs[i] = def
	}

	if len(h.Samples) == 0 {
		return nil
	}

	rec.Samples = make([]Fields, len(cols))
	for s, col := range cols {
		slots := strings.Split(col, ":")
		if len(slots) > len(rec.Format) && col != "." {
			return fmt.Errorf("sample %s: %w: %d values for %d keys",
				h.Samples[s], ErrFormatArityMismatch, len(slots), len(rec.Format))
		}

		sample := make(Fields, len(rec.Format))
		ploidy := 0
		for i, key := range rec.Format {
			sample[i].Key = key
			if i >= len(slots) {
				continue
			}

			arity := Unbounded
			if defs[i] != nil {
				arity = defs[i].Resolve(len(rec.Alt), ploidy)
			}
			v, err := DecodeValue(slots[i], defs[i], arity)
			if err != nil {
				return fmt.Errorf("sample %s FORMAT %s: %w", h.Samples[s], key, err)
			}
			if arity.Advisory && v.Kind() == KindVector && v.Len() != arity.N {
				rec.warn(fmt.Errorf("%w: sample %s FORMAT %s has %d values, ploidy suggests %d",
					ErrArityMismatch, h.Samples[s], key, v.Len(), arity.N))
			}
			sample[i].Value = v

			if key == "GT" {
				ploidy = genotypePloidy(slots[i])
			}
		}
		rec.Samples[s] = sample
	}
	return nil
}
