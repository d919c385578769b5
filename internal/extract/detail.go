package extract

import (
	"strings"

	"jobexport/internal/jobs"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/cockroachdb/errors"
)

const (
	alumniMarker        = "alumni work"
	companyAlumniMarker = "company alumni"
	schoolAlumniMarker  = "school alumni"
)

// ParseDetail builds a record from the paragraph texts of a recommended job
// card. The first three paragraphs are always title, company and location.
// Later paragraphs may carry the listing status or alumni notes; for alumni
// notes the first match per category is kept.
func ParseDetail(paragraphs []string) jobs.Record {
	var rec jobs.Record
	fields := []*string{&rec.Title, &rec.Company, &rec.Location}
	for i, f := range fields {
		if i < len(paragraphs) {
			*f = paragraphs[i]
		}
	}
	if len(paragraphs) <= len(fields) {
		return rec
	}

	for _, text := range paragraphs[len(fields):] {
		if status, ok := jobs.ParseStatus(text); ok {
			rec.Status = status
			continue
		}
		if !strings.Contains(text, alumniMarker) {
			continue
		}
		switch {
		case strings.Contains(text, companyAlumniMarker):
			if rec.CompanyAlumni == "" {
				rec.CompanyAlumni = text
			}
		case strings.Contains(text, schoolAlumniMarker):
			if rec.SchoolAlumni == "" {
				rec.SchoolAlumni = text
			}
		}
	}
	return rec
}

// DetailText converts the HTML of the revealed detail region to plain text.
func DetailText(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	text, err := converter.ConvertString(html)
	if err != nil {
		return "", errors.Wrap(err, "convert detail html")
	}
	return strings.TrimSpace(text), nil
}
