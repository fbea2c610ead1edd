package index

import "sort"

// FileState is the set of keyword matches found in one file, keyed by row.
// A FileState always has at least one row; files without matches are
// represented by the absence of a FileState.
//
// FileState is an immutable snapshot. Rescanning a file produces a new one.
type FileState struct {
	rows map[Row]RowMatches
}

// NewFileState builds a FileState from scan results. It returns false when
// data holds no rows with matches.
func NewFileState(data map[Row]RowMatches) (*FileState, bool) {
	rows := make(map[Row]RowMatches, len(data))
	for row, rm := range data {
		if len(rm.Matches) == 0 {
			continue
		}
		matches := make([]Match, len(rm.Matches))
		copy(matches, rm.Matches)
		rows[row] = RowMatches{Meta: rm.Meta, Matches: matches}
	}
	if len(rows) == 0 {
		return nil, false
	}
	return &FileState{rows: rows}, true
}

// Row returns the matches recorded for a row.
func (fs *FileState) Row(row Row) (RowMatches, bool) {
	rm, ok := fs.rows[row]
	return rm, ok
}

// Rows returns the rows with matches in ascending order.
func (fs *FileState) Rows() []Row {
	rows := make([]Row, 0, len(fs.rows))
	for row := range fs.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })
	return rows
}

// Len returns the number of rows with matches.
func (fs *FileState) Len() int {
	return len(fs.rows)
}

// MatchCount returns the total number of matches across all rows.
func (fs *FileState) MatchCount() int {
	n := 0
	for _, rm := range fs.rows {
		n += len(rm.Matches)
	}
	return n
}
