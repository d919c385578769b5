package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"jobexport/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() []jobs.Record {
	return []jobs.Record{
		{Index: 1, Title: "Go Engineer", Company: "Acme", Location: "Berlin, Germany", URL: "https://www.linkedin.com/jobs/view/1/"},
		{Index: 2, Title: `The "Best" SRE`, Company: "Globex", Location: "Remote", URL: "https://www.linkedin.com/jobs/view/2/"},
	}
}

func TestEscapeField(t *testing.T) {
	assert.Equal(t, `"a,b"`, EscapeField("a,b"))
	assert.Equal(t, "5", EscapeField("5"))
	assert.Equal(t, `"he said ""hi"""`, EscapeField(`he said "hi"`))
	assert.Equal(t, "\"two\nlines\"", EscapeField("two\nlines"))
	assert.Equal(t, "", EscapeField(""))
	assert.Equal(t, " padded ", EscapeField(" padded "))
}

func TestEscapeFieldRoundTrip(t *testing.T) {
	inputs := []string{
		"plain",
		"a,b",
		`quote " inside`,
		`""`,
		"multi\nline, with \"everything\"",
		",",
	}
	for _, in := range inputs {
		r := csv.NewReader(strings.NewReader(EscapeField(in)))
		rec, err := r.Read()
		require.NoError(t, err, in)
		require.Len(t, rec, 1, in)
		assert.Equal(t, in, rec[0])
	}
}

func TestCSV(t *testing.T) {
	got := CSV(sample())
	want := "Index,Title,Company,Location,URL\n" +
		"1,Acme,\"Berlin, Germany\",Go Engineer,https://www.linkedin.com/jobs/view/1/\n" +
		"2,Globex,Remote,\"The \"\"Best\"\" SRE\",https://www.linkedin.com/jobs/view/2/"
	assert.Equal(t, want, got)
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestCSVHeaderOnly(t *testing.T) {
	assert.Equal(t, "Index,Title,Company,Location,URL", CSV(nil))
}

func TestCSVParsesBack(t *testing.T) {
	rows, err := csv.NewReader(strings.NewReader(CSV(sample()))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2", "Globex", "Remote", `The "Best" SRE`, "https://www.linkedin.com/jobs/view/2/"}, rows[2])
}

func TestFilename(t *testing.T) {
	pattern := regexp.MustCompile(`^Saved Jobs \d{4}-\d{2}-\d{2} \d{4}$`)
	times := []time.Time{
		time.Date(2024, 3, 1, 9, 5, 0, 0, time.Local),
		time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2030, 1, 9, 0, 0, 0, 0, time.FixedZone("X", 5*3600)),
		time.Now(),
	}
	for _, tm := range times {
		assert.Regexp(t, pattern, Filename(tm))
	}
	assert.Equal(t, "Saved Jobs 2024-03-01 0905", Filename(times[0]))
	assert.Equal(t, "Saved Jobs 2024-03-01 0905.csv", FileName(times[0], "csv"))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	path, err := WriteFile(dir, "out.csv", []byte("a,b"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(sample())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Index", "Company", "Location", "Title", "URL"}, rows[0])
	assert.Equal(t, []string{"1", "Acme", "Berlin, Germany", "Go Engineer", "Open Link"}, rows[1])

	ok, link, err := f.GetCellHyperLink(sheetName, "E3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/2/", link)

	width, err := f.GetColWidth(sheetName, "D")
	require.NoError(t, err)
	assert.Equal(t, 48.0, width)

	tables, err := f.GetTables(sheetName)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, tableName, tables[0].Name)
}

func TestXLSXEmpty(t *testing.T) {
	data, err := XLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
