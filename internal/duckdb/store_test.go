package duckdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openTestReader(t *testing.T, name string) *vcf.Reader {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "vcf", "testdata", name))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	r, err := vcf.NewReader(f)
	require.NoError(t, err)
	return r
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestLoadAndLookup(t *testing.T) {
	s := openInMemory(t)

	n, err := s.Load(openTestReader(t, "sample.vcf"), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	count, err := s.CountVariants()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	rows, err := s.LookupPosition("20", 1110696)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v := rows[0]
	assert.Equal(t, int64(2), v.Record)
	assert.Equal(t, "rs6040355", v.ID)
	assert.Equal(t, "A", v.Ref)
	assert.Equal(t, "G,T", v.Alt)
	require.NotNil(t, v.Qual)
	assert.Equal(t, 67.0, *v.Qual)
	assert.Equal(t, "PASS", v.Filter)
	assert.Equal(t, "NS=2;DP=10;AF=0.333,0.667;AA=T;DB", v.Info)
	assert.Equal(t, "snp", v.VariantType)

	gts, err := s.Genotypes(v.Record)
	require.NoError(t, err)
	require.Len(t, gts, 3)
	assert.Equal(t, GenotypeRow{Record: 2, Sample: "NA00001", GT: "1|2", Fields: "1|2:21:6:23,27"}, gts[0])
	assert.Equal(t, GenotypeRow{Record: 2, Sample: "NA00003", GT: "2/2", Fields: "2/2:35:4:.,."}, gts[2])

	rows, err = s.LookupPosition("20", 99999)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoad_SitesOnly(t *testing.T) {
	s := openInMemory(t)

	_, err := s.Load(openTestReader(t, "sites.vcf"), 0)
	require.NoError(t, err)

	rows, err := s.SearchByFilter("LowQual")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10235), rows[0].Pos)
	assert.Nil(t, rows[0].Qual, "missing QUAL is stored as NULL")
	assert.Equal(t, ".", rows[0].ID)

	rows, err = s.LookupPosition("1", 20000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "<DEL>", rows[0].Alt)
	assert.Equal(t, "sv", rows[0].VariantType)
	assert.Equal(t, "END=21000;SVTYPE=DEL", rows[0].Info)

	gts, err := s.Genotypes(rows[0].Record)
	require.NoError(t, err)
	assert.Empty(t, gts)
}

func TestLoad_AppendsAfterExisting(t *testing.T) {
	s := openInMemory(t)

	_, err := s.Load(openTestReader(t, "sample.vcf"), 0)
	require.NoError(t, err)
	_, err = s.Load(openTestReader(t, "sites.vcf"), 0)
	require.NoError(t, err)

	rows, err := s.LookupPosition("2", 500)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(8), rows[0].Record)
	assert.Equal(t, "rs1;rs2", rows[0].ID)

	require.NoError(t, s.ClearVariants())
	count, err := s.CountVariants()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLoad_ParseError(t *testing.T) {
	s := openInMemory(t)

	input := "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"1\t1\t.\tA\tC\t.\t.\t.\n" +
		"1\t2\t.\tA\tC\t.\t.\t.\n" +
		"1\tbad\t.\tA\tC\t.\t.\t.\n"
	r, err := vcf.NewReader(strings.NewReader(input))
	require.NoError(t, err)

	n, err := s.Load(r, 1)
	assert.ErrorIs(t, err, vcf.ErrInvalidPosition)
	assert.Equal(t, int64(2), n, "full batches before the error are kept")
}

func TestWriteRecords_SampleCountMismatch(t *testing.T) {
	s := openInMemory(t)
	h := openTestReader(t, "sample.vcf").Header()

	rec := &vcf.Record{Chrom: "20", Pos: 1, Ref: "A", Format: []string{"GT"}}
	err := s.WriteRecords(h, 0, []*vcf.Record{rec})
	assert.ErrorIs(t, err, vcf.ErrSampleCountMismatch)

	count, err := s.CountVariants()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSourceFingerprint(t *testing.T) {
	s := openInMemory(t)

	path := filepath.Join(t.TempDir(), "in.vcf")
	require.NoError(t, os.WriteFile(path, []byte("##fileformat=VCFv4.2\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(21), fp.Size)

	loaded, err := s.SourceLoaded(fp)
	require.NoError(t, err)
	assert.False(t, loaded)

	firstID, err := s.RecordSource(fp, 0)
	require.NoError(t, err)
	_, err = uuid.Parse(firstID)
	require.NoError(t, err)
	loaded, err = s.SourceLoaded(fp)
	require.NoError(t, err)
	assert.True(t, loaded)

	changed := fp
	changed.ModTime = fp.ModTime.Add(time.Second)
	loaded, err = s.SourceLoaded(changed)
	require.NoError(t, err)
	assert.False(t, loaded)

	// Re-recording replaces the old fingerprint.
	secondID, err := s.RecordSource(changed, 3)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)
	loaded, err = s.SourceLoaded(changed)
	require.NoError(t, err)
	assert.True(t, loaded)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM sources`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStatFile_Missing(t *testing.T) {
	_, err := StatFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
