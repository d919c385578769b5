package formatter

import (
	"path/filepath"
	"strings"

	"jobexport/internal/scraper"

	"github.com/cockroachdb/errors"
)

// Format renders content in the named format. XLSX is binary, so every format
// comes back as bytes.
func Format(content scraper.Content, format string) ([]byte, error) {
	var (
		s   string
		err error
	)
	switch Normalize(format) {
	case "html":
		s, err = content.ToHTML()
	case "text":
		s, err = content.ToText()
	case "markdown":
		s, err = content.ToMarkdown()
	case "csv":
		s, err = content.ToCSV()
	case "json":
		return content.ToJSON()
	case "xlsx":
		return content.ToXLSX()
	default:
		return nil, errors.Newf("unsupported output format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Normalize folds format aliases onto their canonical names.
func Normalize(format string) string {
	switch f := strings.ToLower(format); f {
	case "md":
		return "markdown"
	case "txt":
		return "text"
	default:
		return f
	}
}

// InferFromExtension infers output format from file extension
func InferFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	case ".html", ".htm":
		return "html"
	case ".txt":
		return "text"
	case ".csv":
		return "csv"
	case ".xlsx":
		return "xlsx"
	default:
		return ""
	}
}

// Extension is the file extension written for format.
func Extension(format string) string {
	switch Normalize(format) {
	case "markdown":
		return "md"
	case "text":
		return "txt"
	default:
		return Normalize(format)
	}
}

// Binary reports whether format should not be printed to a terminal.
func Binary(format string) bool {
	return Normalize(format) == "xlsx"
}
