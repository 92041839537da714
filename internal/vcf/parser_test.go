package vcf

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestReader(t *testing.T, header string, lines ...string) *Reader {
	t.Helper()
	text := header + "\n" + strings.Join(lines, "\n")
	r, err := NewReader(strings.NewReader(text))
	require.NoError(t, err, "creating reader")
	return r
}

func readAll(t *testing.T, r *Reader) []*Record {
	t.Helper()
	var recs []*Record
	for {
		rec, err := r.Next()
		require.NoError(t, err)
		if rec == nil {
			return recs
		}
		recs = append(recs, rec)
	}
}

const scenarioHeader = `##fileformat=VCFv4.2
##INFO=<ID=DP,Number=1,Type=Integer,Description="Total Depth">
##FILTER=<ID=q10,Description="Quality below 10">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read Depth">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2`

func TestReader_TwoSampleRecord(t *testing.T) {
	r := newTestReader(t, scenarioHeader, "chr1\t100\t.\tA\tT,G\t50\tPASS\tDP=10\tGT:DP\t0/1:5\t1/1:8")

	rec, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "chr1", rec.Chrom)
	assert.Equal(t, int64(100), rec.Pos)
	assert.Nil(t, rec.ID)
	assert.Equal(t, "A", rec.Ref)
	assert.Equal(t, []string{"T", "G"}, rec.Alt)
	q, ok := rec.QualValue()
	assert.True(t, ok)
	assert.Equal(t, 50.0, q)
	assert.Equal(t, Filter{Status: Pass}, rec.Filter)
	assert.Equal(t, Fields{{Key: "DP", Value: IntValue(10)}}, rec.Info)
	assert.Equal(t, []string{"GT", "DP"}, rec.Format)
	assert.Equal(t, []Fields{
		{{Key: "GT", Value: StringValue("0/1")}, {Key: "DP", Value: IntValue(5)}},
		{{Key: "GT", Value: StringValue("1/1")}, {Key: "DP", Value: IntValue(8)}},
	}, rec.Samples)
	assert.Empty(t, rec.Warnings)

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Nil(t, rec, "expected end of stream")
}

func TestReader_UndeclaredFilter(t *testing.T) {
	r := newTestReader(t, scenarioHeader, "chr1\t100\t.\tA\tT\t50\tq10;s50\tDP=10\tGT:DP\t0/1:5\t1/1:8")

	rec, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, FailedFilter("q10", "s50"), rec.Filter)
	require.Len(t, rec.Warnings, 1)
	assert.ErrorIs(t, rec.Warnings[0], ErrUnknownFilter)
	assert.Contains(t, rec.Warnings[0].Error(), "s50")
	assert.False(t, rec.IsPassing())
}

func TestReader_InfoFlag(t *testing.T) {
	header := `##fileformat=VCFv4.2
##INFO=<ID=DB,Number=0,Type=Flag,Description="dbSNP">
##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO`
	r := newTestReader(t, header,
		"1\t10\t.\tA\tC\t.\t.\tDP=3;DB",
		"1\t20\t.\tA\tC\t.\t.\tDP=4")

	recs := readAll(t, r)
	require.Len(t, recs, 2)

	v, ok := recs[0].Info.Get("DB")
	require.True(t, ok)
	assert.Equal(t, FlagValue(), v)
	assert.Equal(t, []string{"DP", "DB"}, recs[0].Info.Keys())

	assert.False(t, recs[1].Info.Has("DB"), "absent flag is not a key")
}

func TestReader_MissingValues(t *testing.T) {
	header := `##fileformat=VCFv4.2
##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth">
##INFO=<ID=AF,Number=A,Type=Float,Description="AF">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=AD,Number=R,Type=Integer,Description="Allelic depths">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1`
	r := newTestReader(t, header, "1\t10\t.\tA\tC,G\t.\t.\tDP=.;AF=.\tGT:AD\t./.:.")

	rec, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Nil(t, rec.ID)
	assert.Nil(t, rec.Qual)
	assert.Equal(t, NotEvaluated, rec.Filter.Status)

	dp, _ := rec.Info.Get("DP")
	assert.True(t, dp.IsMissing())
	af, _ := rec.Info.Get("AF")
	assert.True(t, af.IsMissing(), "whole-token '.' skips the arity check")

	ad, _ := rec.Samples[0].Get("AD")
	assert.True(t, ad.IsMissing())

	line, err := FormatRecord(r.Header(), rec)
	require.NoError(t, err)
	assert.Equal(t, "1\t10\t.\tA\tC,G\t.\t.\tDP=.;AF=.\tGT:AD\t./.:.\n", line)
}

func TestReader_EmptyInfoAndAlt(t *testing.T) {
	r := newTestReader(t, "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
		"1\t10\trs1;rs2\tA\t.\t.\t.\t.")

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"rs1", "rs2"}, rec.ID)
	assert.Empty(t, rec.Alt)
	assert.Empty(t, rec.Info)
	assert.Nil(t, rec.Samples)
}

func TestReader_TrailingSampleValuesMissing(t *testing.T) {
	r := newTestReader(t, scenarioHeader, "chr1\t100\t.\tA\tT\t50\tPASS\tDP=10\tGT:DP\t0/1\t1/1:8")

	rec, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)

	dp, ok := rec.Samples[0].Get("DP")
	require.True(t, ok, "trailing keys are present as Missing")
	assert.True(t, dp.IsMissing())
	assert.Equal(t, []string{"GT", "DP"}, rec.Samples[0].Keys())
}

func TestReader_UndeclaredKeys(t *testing.T) {
	r := newTestReader(t, scenarioHeader, "chr1\t100\t.\tA\tT\t50\tPASS\tDP=10;XY=1,2;SOMATIC;XX=.\tGT:DP:ZZ\t0/1:5:a\t1/1:8:.")

	rec, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)

	xy, _ := rec.Info.Get("XY")
	assert.Equal(t, StringValue("1,2"), xy)
	somatic, _ := rec.Info.Get("SOMATIC")
	assert.Equal(t, FlagValue(), somatic)
	xx, ok := rec.Info.Get("XX")
	require.True(t, ok)
	assert.True(t, xx.IsMissing())
	zz, _ := rec.Samples[0].Get("ZZ")
	assert.Equal(t, StringValue("a"), zz)
	zz, _ = rec.Samples[1].Get("ZZ")
	assert.True(t, zz.IsMissing())

	var unknownInfo, unknownFormat int
	for _, w := range rec.Warnings {
		switch {
		case errors.Is(w, ErrUnknownInfo):
			unknownInfo++
		case errors.Is(w, ErrUnknownFormat):
			unknownFormat++
		}
	}
	assert.Equal(t, 3, unknownInfo)
	assert.Equal(t, 1, unknownFormat)
}

func TestReader_GenotypeArity(t *testing.T) {
	header := `##fileformat=VCFv4.2
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=PL,Number=G,Type=Integer,Description="Likelihoods">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2`

	t.Run("matching ploidy", func(t *testing.T) {
		r := newTestReader(t, header, "1\t10\t.\tA\tC\t.\t.\t.\tGT:PL\t0/1:10,0,20\t1:30,0")
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Empty(t, rec.Warnings)
		pl, _ := rec.Samples[1].Get("PL")
		assert.Equal(t, 2, pl.Len())
	})

	t.Run("mismatch is recoverable", func(t *testing.T) {
		r := newTestReader(t, header, "1\t10\t.\tA\tC\t.\t.\t.\tGT:PL\t0/1:10,0\t0/0:0,10,20")
		rec, err := r.Next()
		require.NoError(t, err)
		require.Len(t, rec.Warnings, 1)
		assert.ErrorIs(t, rec.Warnings[0], ErrArityMismatch)
		pl, _ := rec.Samples[0].Get("PL")
		assert.Equal(t, 2, pl.Len(), "kept as observed")
	})

	t.Run("no GT accepts observed", func(t *testing.T) {
		r := newTestReader(t, header, "1\t10\t.\tA\tC\t.\t.\t.\tPL\t1,2\t1,2,3,4")
		rec, err := r.Next()
		require.NoError(t, err)
		assert.Empty(t, rec.Warnings)
	})
}

func TestReader_FatalErrors(t *testing.T) {
	header := `##fileformat=VCFv4.2
##INFO=<ID=DP,Number=1,Type=Integer,Description="Depth">
##INFO=<ID=AF,Number=A,Type=Float,Description="AF">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1`

	tests := []struct {
		name string
		line string
		want error
	}{
		{"too few columns", "1\t10\t.\tA\tC\t.\t.\tDP=1", ErrColumnCount},
		{"too many columns", "1\t10\t.\tA\tC\t.\t.\tDP=1\tGT\t0/1\t1/1", ErrColumnCount},
		{"bad position", "1\tten\t.\tA\tC\t.\t.\tDP=1\tGT\t0/1", ErrInvalidPosition},
		{"zero position", "1\t0\t.\tA\tC\t.\t.\tDP=1\tGT\t0/1", ErrInvalidPosition},
		{"negative position", "1\t-4\t.\tA\tC\t.\t.\tDP=1\tGT\t0/1", ErrInvalidPosition},
		{"bad qual", "1\t10\t.\tA\tC\thigh\t.\tDP=1\tGT\t0/1", ErrTypeMismatch},
		{"hex qual", "1\t10\t.\tA\tC\t0x1p4\t.\tDP=1\tGT\t0/1", ErrTypeMismatch},
		{"info type mismatch", "1\t10\t.\tA\tC\t.\t.\tDP=x\tGT\t0/1", ErrTypeMismatch},
		{"info arity mismatch", "1\t10\t.\tA\tC,G\t.\t.\tAF=0.1\tGT\t0/1", ErrArityMismatch},
		{"more sample values than keys", "1\t10\t.\tA\tC\t.\t.\tDP=1\tGT\t0/1:5", ErrFormatArityMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReader(t, header, "1\t5\t.\tA\tC\t.\t.\tDP=1\tGT\t0/0", tt.line, "1\t20\t.\tA\tC\t.\t.\tDP=1\tGT\t0/0")

			rec, err := r.Next()
			require.NoError(t, err)
			require.NotNil(t, rec)

			rec, err = r.Next()
			require.Error(t, err)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, tt.want)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 2, pe.Record)
			assert.Equal(t, 7, pe.Line)

			_, again := r.Next()
			assert.Equal(t, err, again, "fatal error is sticky")
		})
	}
}

func TestParseError(t *testing.T) {
	err := &ParseError{Line: 42, Record: 7, Err: ErrColumnCount}
	assert.Equal(t, "vcf parse error at line 42 (record 7): column count mismatch", err.Error())
}

func TestNewReader_HeaderErrors(t *testing.T) {
	_, err := NewReader(strings.NewReader("##fileformat=VCFv4.2\n"))
	assert.ErrorIs(t, err, ErrMissingColumnHeader)

	_, err = NewReader(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMissingColumnHeader)

	_, err = NewReader(strings.NewReader("##INFO=<ID=DP>\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"))
	assert.ErrorIs(t, err, ErrMalformedMeta)
}

func TestReader_CRLFAndBlankLines(t *testing.T) {
	text := "##fileformat=VCFv4.2\r\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\r\n\r\n1\t10\t.\tA\tC\t.\t.\t.\r\n\n1\t20\t.\tA\tC\t.\t.\t."
	r, err := NewReader(strings.NewReader(text))
	require.NoError(t, err)

	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(20), recs[1].Pos)
	assert.Equal(t, 2, r.RecordCount())
}

func TestReader_SampleFile(t *testing.T) {
	f, err := os.Open(findTestFile(t, "sample.vcf"))
	require.NoError(t, err)
	defer f.Close()

	r, err := NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"NA00001", "NA00002", "NA00003"}, r.Header().Samples)

	recs := readAll(t, r)
	require.Len(t, recs, 5)

	multi := recs[2]
	assert.Equal(t, []string{"rs6040355"}, multi.ID)
	af, _ := multi.Info.Get("AF")
	assert.Equal(t, VectorValue(FloatValue(0.333), FloatValue(0.667)), af)

	hq, _ := recs[0].Samples[2].Get("HQ")
	assert.Equal(t, VectorValue(MissingValue(), MissingValue()), hq)

	assert.Empty(t, recs[3].Alt)
	assert.Equal(t, []string{"GT", "GQ", "DP"}, recs[4].Format)
	for _, rec := range recs {
		assert.Empty(t, rec.Warnings, "%s:%d", rec.Chrom, rec.Pos)
	}
}

func TestReader_All(t *testing.T) {
	r := newTestReader(t, scenarioHeader,
		"chr1\t100\t.\tA\tT\t50\tPASS\tDP=10\tGT:DP\t0/1:5\t1/1:8",
		"chr1\t200\t.\tA\tT\t50\tPASS\tDP=x\tGT:DP\t0/1:5\t1/1:8",
		"chr1\t300\t.\tA\tT\t50\tPASS\tDP=10\tGT:DP\t0/1:5\t1/1:8")

	var positions []int64
	var lastErr error
	for rec, err := range r.All() {
		if err != nil {
			lastErr = err
			break
		}
		positions = append(positions, rec.Pos)
	}
	assert.Equal(t, []int64{100}, positions)
	assert.ErrorIs(t, lastErr, ErrTypeMismatch)
}

func TestReader_LogsWarningsOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := newTestReader(t, scenarioHeader,
		"chr1\t100\t.\tA\tT\t50\ts50\tDP=10\tGT:DP\t0/1:5\t1/1:8",
		"chr1\t200\t.\tA\tT\t50\ts50\tDP=10\tGT:DP\t0/1:5\t1/1:8")
	r.SetLogger(zap.New(core))

	recs := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Len(t, recs[1].Warnings, 1, "warnings stay on every record")
	assert.Equal(t, 1, logs.Len(), "log is deduplicated")
}
