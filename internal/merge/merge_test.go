package merge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/disclosure-cli/internal/model"
)

func metricRow(entity string, relate float64) model.EntityMetricRow {
	return model.EntityMetricRow{Entity: entity, Relatedness: relate}
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "XEL", NormalizeKey("  xel "))
	assert.Equal(t, "BRK.B", NormalizeKey("brk.b"))
	assert.Equal(t, "STRASSE", NormalizeKey("straße"))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestEntityFromName(t *testing.T) {
	assert.Equal(t, "XEL", EntityFromName("xel_2024_chunks"))
	assert.Equal(t, "AEP", EntityFromName("/data/aep_2023_chunks.txt"))
	assert.Equal(t, "NEE", EntityFromName("nee.txt"))
	assert.Equal(t, "BF_B", EntityFromName("bf_b_2024_chunks.txt"))
	assert.Equal(t, "BF_B", EntityFromName("BF_B_2024_chunks"))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, KeepFirst, p)

	p, err = ParsePolicy(" LAST ")
	require.NoError(t, err)
	assert.Equal(t, KeepLast, p)

	_, err = ParsePolicy("random")
	require.Error(t, err)
}

func TestDedupe(t *testing.T) {
	tbl := MetricsTable([]model.EntityMetricRow{
		metricRow("xel", 0.1),
		metricRow("AEP", 0.2),
		metricRow("XEL", 0.3),
	})

	first := Dedupe(tbl, KeepFirst)
	assert.Equal(t, []string{"XEL", "AEP"}, first.Keys())
	v, _ := first.Column("XEL", "relate")
	assert.Equal(t, "0.1", v)

	last := Dedupe(tbl, KeepLast)
	assert.Equal(t, []string{"XEL", "AEP"}, last.Keys())
	v, _ = last.Column("XEL", "relate")
	assert.Equal(t, "0.3", v)
}

func TestMerge_InnerThenLeftJoin(t *testing.T) {
	rows := []model.EntityMetricRow{
		metricRow("XEL", 0.5),
		metricRow("AEP", 0.25),
		metricRow("DUK", 0.75),
	}
	esg := Table{Name: "esg", Columns: []string{"esg_score"}, Rows: []Row{
		{Key: "XEL", Values: []string{"71"}},
		{Key: "AEP", Values: []string{"64"}},
	}}
	emissions := Table{Name: "emissions", Columns: []string{"all_total_emissions"}, Rows: []Row{
		{Key: "XEL", Values: []string{"50000"}},
	}}

	out, err := Merge(rows, &esg, &emissions, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"XEL", "AEP"}, out.Keys())
	assert.Equal(t, append(append([]string{"ticker"}, model.MetricColumns[1:]...), "esg_score", "all_total_emissions"), out.Header())

	v, ok := out.Column("AEP", "all_total_emissions")
	assert.True(t, ok)
	assert.Empty(t, v)
	v, _ = out.Column("XEL", "all_total_emissions")
	assert.Equal(t, "50000", v)
	v, _ = out.Column("AEP", "esg_score")
	assert.Equal(t, "64", v)
	for _, r := range out.Rows {
		assert.Len(t, r.Values, len(out.Columns))
	}
}

func TestMerge_NoReferences(t *testing.T) {
	out, err := Merge([]model.EntityMetricRow{metricRow("xel", 1), metricRow("XEL", 0)}, nil, nil, Options{Policy: KeepLast})
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	v, _ := out.Column("XEL", "relate")
	assert.Equal(t, "0", v)
}

func TestMerge_BadPolicy(t *testing.T) {
	_, err := Merge(nil, nil, nil, Options{Policy: "middle"})
	require.Error(t, err)
}

func TestJoin_ColumnCollision(t *testing.T) {
	left := Table{Name: "metrics", Columns: []string{"risk"}, Rows: []Row{{Key: "A", Values: []string{"0.5"}}}}
	right := Table{Name: "esg", Columns: []string{"Risk"}, Rows: []Row{{Key: "A", Values: []string{"high"}}}}
	out := InnerJoin(left, right)
	assert.Equal(t, []string{"risk", "Risk_esg"}, out.Columns)
}

func TestLoadReference_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esg.csv")
	require.NoError(t, os.WriteFile(path, []byte("Symbol,Name,ESG_Score\n xel ,Xcel,71\nAEP,American Electric,64\n,blank,1\n"), 0o644))

	tbl, err := LoadReference(path, nil, []string{"esg_score"})
	require.NoError(t, err)
	assert.Equal(t, "esg", tbl.Name)
	assert.Equal(t, []string{"ESG_Score"}, tbl.Columns)
	assert.Equal(t, []string{"XEL", "AEP"}, tbl.Keys())

	all, err := LoadReference(path, []string{"symbol"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "ESG_Score"}, all.Columns)
}

func TestLoadReference_MissingKeyColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "esg.csv")
	require.NoError(t, os.WriteFile(path, []byte("company,score\nXcel,71\n"), 0o644))

	_, err := LoadReference(path, nil, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingKeyColumn))
}

func TestLoadReference_MissingProjectedColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "em.csv")
	require.NoError(t, os.WriteFile(path, []byte("ticker,scope1\nXEL,1\n"), 0o644))

	_, err := LoadReference(path, nil, []string{"all_total_emissions"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingColumn))
}

func TestLoadReference_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Emissions")
	require.NoError(t, err)
	for _, rec := range [][]string{{"Ticker", "all_total_emissions"}, {"xel", "50000"}, {"duk", "72000"}} {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "emissions.xlsx")
	require.NoError(t, f.Save(path))

	tbl, err := LoadReference(path, nil, []string{"all_total_emissions"})
	require.NoError(t, err)
	assert.Equal(t, []string{"XEL", "DUK"}, tbl.Keys())
	v, _ := tbl.Column("DUK", "all_total_emissions")
	assert.Equal(t, "72000", v)
}

func TestLoadReference_UnsupportedFormat(t *testing.T) {
	_, err := LoadReference("scores.parquet", nil, nil)
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	tbl := Table{Columns: []string{"esg_score", "all_total_emissions"}, Rows: []Row{
		{Key: "XEL", Values: []string{"71", ""}},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, "ticker,esg_score,all_total_emissions\nXEL,71,\n", buf.String())
}
