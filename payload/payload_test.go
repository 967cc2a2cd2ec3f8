package payload

import (
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportstream/rs-acceptor/settings"
)

var simpleReport = settings.Sender{Name: "ignore-simple-report", OrganizationName: "ignore", Format: settings.FormatCSV}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestFakeFileDistributesAcrossCounties(t *testing.T) {
	path, err := FakeFile(Spec{
		Sender:   simpleReport,
		Count:    6,
		States:   []string{TestState},
		Counties: []string{"CSV", "HL7", "REDOX"},
		Dir:      t.TempDir(),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".csv"))

	records := readCSV(t, path)
	require.Len(t, records, 7)
	assert.Equal(t, header, records[0])
	counts := map[string]int{}
	for _, r := range records[1:] {
		assert.Equal(t, TestState, r[3])
		counts[r[4]]++
	}
	assert.Equal(t, map[string]int{"CSV": 2, "HL7": 2, "REDOX": 2}, counts)
}

func TestFakeFileUniqueNames(t *testing.T) {
	dir := t.TempDir()
	a, err := FakeFile(Spec{Sender: simpleReport, Count: 1, Dir: dir})
	require.NoError(t, err)
	b, err := FakeFile(Spec{Sender: simpleReport, Count: 1, Dir: dir})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestFakeFileEveryState(t *testing.T) {
	path, err := FakeFile(Spec{Sender: simpleReport, Count: len(States), Dir: t.TempDir()})
	require.NoError(t, err)
	records := readCSV(t, path)
	seen := map[string]bool{}
	for _, r := range records[1:] {
		seen[r[3]] = true
	}
	assert.Len(t, seen, len(States))
}

func TestFakeFileHL7(t *testing.T) {
	hl7 := settings.Sender{Name: "default", OrganizationName: "safehealth", Format: settings.FormatHL7}
	path, err := FakeFile(Spec{Sender: hl7, Count: 3, Format: settings.FormatHL7Batch, Dir: t.TempDir()})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "MSH|"))
	assert.Contains(t, string(data), "BTS|3")
}

func TestFakeFileChineseLocale(t *testing.T) {
	path, err := FakeFile(Spec{Sender: simpleReport, Count: 1, Locale: LocaleChinese, Dir: t.TempDir()})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Less(t, utf8.RuneCount(data), len(data))
}

func TestFakeFileInvalidCount(t *testing.T) {
	_, err := FakeFile(Spec{Sender: simpleReport, Count: -1, Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestTooManyColumns(t *testing.T) {
	path, err := TooManyColumns(t.TempDir())
	require.NoError(t, err)
	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Len(t, records[0], ReportMaxColumns+1)
}

func TestBadFiles(t *testing.T) {
	dir := t.TempDir()
	path, err := Empty(dir)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	path, err = NotACSV(dir)
	require.NoError(t, err)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = csv.NewReader(f).ReadAll()
	assert.Error(t, err)
}

func TestOTC(t *testing.T) {
	path, err := OTC(t.TempDir(), simpleReport, "QuickVue At-Home COVID-19 Test_Quidel Corporation")
	require.NoError(t, err)
	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "QuickVue At-Home COVID-19 Test_Quidel Corporation", records[1][7])

	path, err = OTC(t.TempDir(), simpleReport, "BinaxNOW COVID-19 Antigen Self Test_Abbott Diagnostics Scarborough, Inc.")
	require.NoError(t, err)
	records = readCSV(t, path)
	assert.Equal(t, "BinaxNOW COVID-19 Antigen Self Test_Abbott Diagnostics Scarborough, Inc.", records[1][7])
}
