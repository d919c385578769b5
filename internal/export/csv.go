// Package export serializes job records to the documents users download.
package export

import (
	"strconv"
	"strings"

	"jobexport/internal/jobs"
)

// csvHeader and the data row order in csvRow differ on purpose. Spreadsheets
// built from earlier exports depend on this exact layout.
var csvHeader = []string{"Index", "Title", "Company", "Location", "URL"}

func csvRow(r jobs.Record) []string {
	return []string{strconv.Itoa(r.Index), r.Company, r.Location, r.Title, r.URL}
}

// CSV renders records as comma separated rows joined by "\n", header first,
// without a trailing newline.
func CSV(records []jobs.Record) string {
	rows := make([]string, 0, len(records)+1)
	rows = append(rows, joinFields(csvHeader))
	for _, r := range records {
		rows = append(rows, joinFields(csvRow(r)))
	}
	return strings.Join(rows, "\n")
}

func joinFields(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = EscapeField(f)
	}
	return strings.Join(escaped, ",")
}

// EscapeField quotes s only when it contains a comma, a double quote or a
// newline, doubling embedded quotes.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
