package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAssignsContiguousIndices(t *testing.T) {
	run := NewRun()

	first := run.Append(Record{Title: "a"}, Record{Title: "b"})
	require.Len(t, first, 2)
	assert.Equal(t, 1, first[0].Index)
	assert.Equal(t, 2, first[1].Index)

	second := run.Append(Record{Title: "c", Index: 99})
	require.Len(t, second, 1)
	assert.Equal(t, 3, second[0].Index, "caller supplied index is overwritten")

	recs := run.Records()
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Index)
	}
}

func TestRunRecordsIsACopy(t *testing.T) {
	run := NewRun()
	run.Append(Record{Title: "a"})

	recs := run.Records()
	recs[0].Title = "mutated"

	assert.Equal(t, "a", run.Records()[0].Title)
	assert.Equal(t, 1, run.Len())
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in     string
		want   Status
		wantOK bool
	}{
		{"Viewed", StatusViewed, true},
		{"Saved", StatusSaved, true},
		{"viewed", StatusNone, false},
		{"Saved ", StatusNone, false},
		{"", StatusNone, false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.wantOK, ok, tc.in)
	}
}
