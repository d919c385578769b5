package linkedin

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"jobexport/internal/export"
	"jobexport/internal/jobs"
)

// JobsContent holds the records of one run. Details is parallel to records
// and only filled by the recommended-jobs scraper.
type JobsContent struct {
	title   string
	records []jobs.Record
	details []string
}

func NewJobsContent(title string, records []jobs.Record, details []string) *JobsContent {
	return &JobsContent{title: title, records: records, details: details}
}

func (c *JobsContent) Records() []jobs.Record {
	return c.records
}

func (c *JobsContent) detail(i int) string {
	if i < len(c.details) {
		return c.details[i]
	}
	return ""
}

// ToMarkdown returns Markdown format content
func (c *JobsContent) ToMarkdown() (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", c.title))
	sb.WriteString(fmt.Sprintf("Total %d jobs\n\n", len(c.records)))
	sb.WriteString("---\n\n")

	for i, r := range c.records {
		sb.WriteString(fmt.Sprintf("## %d. %s\n\n", r.Index, r.Title))
		if r.Company != "" {
			sb.WriteString(fmt.Sprintf("- Company: %s\n", r.Company))
		}
		if r.Location != "" {
			sb.WriteString(fmt.Sprintf("- Location: %s\n", r.Location))
		}
		if r.Status != jobs.StatusNone {
			sb.WriteString(fmt.Sprintf("- Status: %s\n", r.Status))
		}
		if r.CompanyAlumni != "" {
			sb.WriteString(fmt.Sprintf("- %s\n", r.CompanyAlumni))
		}
		if r.SchoolAlumni != "" {
			sb.WriteString(fmt.Sprintf("- %s\n", r.SchoolAlumni))
		}
		if r.URL != "" {
			sb.WriteString(fmt.Sprintf("- [Link](%s)\n", r.URL))
		}
		if d := c.detail(i); d != "" {
			sb.WriteString("\n" + d + "\n")
		}
		sb.WriteString("\n---\n\n")
	}
	return sb.String(), nil
}

// ToText returns one tab-separated line per job.
func (c *JobsContent) ToText() (string, error) {
	var sb strings.Builder
	for _, r := range c.records {
		fields := []string{fmt.Sprint(r.Index), r.Title, r.Company, r.Location}
		if r.Status != jobs.StatusNone {
			fields = append(fields, string(r.Status))
		}
		if r.URL != "" {
			fields = append(fields, r.URL)
		}
		sb.WriteString(strings.Join(fields, "\t"))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// ToHTML returns HTML format content
func (c *JobsContent) ToHTML() (string, error) {
	md, err := c.ToMarkdown()
	if err != nil {
		return "", err
	}
	return "<pre>" + html.EscapeString(md) + "</pre>", nil
}

type jsonJob struct {
	jobs.Record
	Detail string `json:"detail,omitempty"`
}

// ToJSON returns JSON format content
func (c *JobsContent) ToJSON() ([]byte, error) {
	out := make([]jsonJob, len(c.records))
	for i, r := range c.records {
		out[i] = jsonJob{Record: r, Detail: c.detail(i)}
	}
	return json.MarshalIndent(out, "", "  ")
}

// ToCSV returns the Saved Jobs CSV document
func (c *JobsContent) ToCSV() (string, error) {
	return export.CSV(c.records), nil
}

// ToXLSX returns the Saved Jobs workbook
func (c *JobsContent) ToXLSX() ([]byte, error) {
	return export.XLSX(c.records)
}
