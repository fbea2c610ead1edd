// Package index holds the in-memory keyword index: which rows of which files
// contain keyword matches, and the per-row metadata needed to paint them.
package index

// Row is a 0-based line number within a document.
type Row int

// Column is a 0-based character offset within a row, in UTF-16 code units.
type Column int

// RowMetadata is the scan context recorded for a row that has matches.
type RowMetadata struct {
	// LineLen is the row length including its line terminator, if any.
	LineLen int

	// FirstNonWhitespace is the column of the first non-whitespace
	// character, or LineLen when the row is blank.
	FirstNonWhitespace Column
}

// NewRowMetadata creates row metadata, clamping the first non-whitespace
// column to the line length.
func NewRowMetadata(lineLen int, firstNonWhitespace Column) RowMetadata {
	if int(firstNonWhitespace) > lineLen {
		firstNonWhitespace = Column(lineLen)
	}
	return RowMetadata{
		LineLen:            lineLen,
		FirstNonWhitespace: firstNonWhitespace,
	}
}

// LastColumn returns LineLen-1, the column right before the line terminator.
func (m RowMetadata) LastColumn() Column {
	return Column(m.LineLen - 1)
}

// Match is one keyword occurrence in a row.
type Match struct {
	// Column is where the match starts.
	Column Column

	// Keyword is the literal text that matched, not the configured key.
	Keyword string
}

// RowMatches pairs a row's metadata with its matches in discovery order.
type RowMatches struct {
	Meta    RowMetadata
	Matches []Match
}
