package export

import (
	"jobexport/internal/jobs"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName  = "Saved Jobs"
	tableName  = "JobsTable"
	tableStyle = "TableStyleDark9"
	linkText   = "Open Link"
)

var (
	xlsxHeader    = []string{"Index", "Company", "Location", "Title", "URL"}
	xlsxColWidths = []float64{8, 24, 32, 48, 16}
)

// XLSX renders records as a styled workbook with one table. URL cells are
// hyperlinks labelled "Open Link" with the address as tooltip.
func XLSX(records []jobs.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, errors.Wrap(err, "rename sheet")
	}

	header := make([]interface{}, len(xlsxHeader))
	for i, h := range xlsxHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "write header")
	}

	linkStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "0000FF", Underline: "single"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create link style")
	}

	for i, r := range records {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		values := []interface{}{r.Index, r.Company, r.Location, r.Title, linkText}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, errors.Wrapf(err, "write row %d", row)
		}

		urlCell, err := excelize.CoordinatesToCellName(len(xlsxHeader), row)
		if err != nil {
			return nil, err
		}
		tooltip := r.URL
		if err := f.SetCellHyperLink(sheetName, urlCell, r.URL, "External", excelize.HyperlinkOpts{Tooltip: &tooltip}); err != nil {
			return nil, errors.Wrapf(err, "link row %d", row)
		}
		if err := f.SetCellStyle(sheetName, urlCell, urlCell, linkStyle); err != nil {
			return nil, errors.Wrapf(err, "style row %d", row)
		}
	}

	for i, w := range xlsxColWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, w); err != nil {
			return nil, errors.Wrap(err, "set column width")
		}
	}

	if len(records) > 0 {
		last, err := excelize.CoordinatesToCellName(len(xlsxHeader), len(records)+1)
		if err != nil {
			return nil, err
		}
		stripes := true
		if err := f.AddTable(sheetName, &excelize.Table{
			Range:          "A1:" + last,
			Name:           tableName,
			StyleName:      tableStyle,
			ShowRowStripes: &stripes,
		}); err != nil {
			return nil, errors.Wrap(err, "add table")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "encode workbook")
	}
	return buf.Bytes(), nil
}
