package export

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

const filenameLayout = "2006-01-02 1504"

// Filename is the suggested download name without extension, using t's
// location, e.g. "Saved Jobs 2024-03-01 0905".
func Filename(t time.Time) string {
	return "Saved Jobs " + t.Format(filenameLayout)
}

// FileName is Filename with ext appended.
func FileName(t time.Time, ext string) string {
	return Filename(t) + "." + ext
}

// WriteFile stores data as name inside dir, creating dir if needed, and
// returns the written path.
func WriteFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create output directory %s", dir)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
