package jobs

import (
	"github.com/cockroachdb/errors"
)

// ErrNoResults is reported when a run completes without producing any record.
// It is a warning, not a failure.
var ErrNoResults = errors.New("no jobs found")

// Status is the listing badge shown on a recommended job card.
type Status string

const (
	StatusNone   Status = ""
	StatusViewed Status = "Viewed"
	StatusSaved  Status = "Saved"
)

// ParseStatus maps a card fragment to a Status. Only exact matches count.
func ParseStatus(text string) (Status, bool) {
	switch Status(text) {
	case StatusViewed, StatusSaved:
		return Status(text), true
	}
	return StatusNone, false
}

// Record is one extracted job. Records are values and are never modified
// after the run appends them.
type Record struct {
	Index         int    `json:"index"`
	Title         string `json:"title"`
	Company       string `json:"company"`
	Location      string `json:"location"`
	URL           string `json:"url"`
	Status        Status `json:"status,omitempty"`
	CompanyAlumni string `json:"companyAlumni,omitempty"`
	SchoolAlumni  string `json:"schoolAlumni,omitempty"`
}
