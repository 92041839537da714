package stats

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// WriteTab writes the summary as "section\tkey\tvalue" lines.
func (s *Summary) WriteTab(w io.Writer) error {
	bw := bufio.NewWriter(w)

	row := func(section, key string, value any) {
		fmt.Fprintf(bw, "%s\t%s\t%v\n", section, key, value)
	}

	row("count", "records", s.Records)
	row("count", "snps", s.SNPs)
	row("count", "mnps", s.MNPs)
	row("count", "indels", s.Indels)
	row("count", "svs", s.SVs)
	row("count", "other", s.Other)
	row("count", "multi_allelic", s.MultiAllelic)
	row("count", "with_id", s.WithID)
	row("count", "warnings", s.Warnings)

	row("filter", "PASS", s.Pass)
	row("filter", ".", s.NotEvaluated)
	ids := make([]string, 0, len(s.Filters))
	for id := range s.Filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		row("filter", id, s.Filters[id])
	}

	row("substitution", "transitions", s.Transitions)
	row("substitution", "transversions", s.Transversions)
	row("substitution", "ts_tv", strconv.FormatFloat(s.TsTv, 'f', 3, 64))
	row("qual", "mean", strconv.FormatFloat(s.MeanQual, 'f', 2, 64))

	for _, c := range s.Chroms {
		row("chrom", c.Chrom, c.Records)
	}
	for _, ss := range s.Samples {
		fmt.Fprintf(bw, "sample\t%s\t%d\t%d\t%d\t%d\t%d\n",
			ss.Name, ss.Called, ss.Missing, ss.HomRef, ss.Het, ss.HomAlt)
	}

	return bw.Flush()
}
