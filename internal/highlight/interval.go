package highlight

import "github.com/dshills/todols/internal/project/index"

// Interval is a half-open column range within one row.
type Interval struct {
	Start index.Column
	End   index.Column
}

// ColorIntervals splits a row into one interval per match. Each match paints
// up to the start of the next one, the last match paints to the end of the
// row, and the first interval is pulled back to the first non-whitespace
// column so leading indentation is not left unpainted.
//
// matches must be non-empty and ordered by column; an empty slice panics.
func ColorIntervals(matches []index.Match, meta index.RowMetadata) []Interval {
	if len(matches) == 0 {
		panic("highlight: ColorIntervals called without matches")
	}

	intervals := make([]Interval, 0, len(matches))
	for i := 0; i+1 < len(matches); i++ {
		intervals = append(intervals, Interval{
			Start: matches[i].Column,
			End:   matches[i+1].Column,
		})
	}

	last := matches[len(matches)-1]
	intervals = append(intervals, Interval{
		Start: last.Column,
		End:   meta.LastColumn(),
	})

	intervals[0].Start = meta.FirstNonWhitespace
	return intervals
}
