package search

import (
	"bytes"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/dshills/todols/internal/project/index"
)

// splitLines splits content into lines, each keeping its terminator.
// A trailing terminator does not produce an empty final line.
func splitLines(content []byte) [][]byte {
	var lines [][]byte
	for len(content) > 0 {
		i := bytes.IndexByte(content, '\n')
		if i < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:i+1])
		content = content[i+1:]
	}
	return lines
}

// trimTerminator strips a trailing "\n" or "\r\n".
func trimTerminator(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}

// utf16Len returns the length of b in UTF-16 code units. Invalid bytes count
// as one unit each, the same as the replacement character they decode to.
func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if w := utf16.RuneLen(r); w > 0 {
			n += w
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}

// FirstNonWhitespace returns the UTF-16 column of the first non-whitespace
// character of line, or the full line length if there is none.
func FirstNonWhitespace(line []byte) index.Column {
	col := 0
	for len(line) > 0 {
		r, size := utf8.DecodeRune(line)
		if !unicode.IsSpace(r) {
			return index.Column(col)
		}
		col += utf16Len(line[:size])
		line = line[size:]
	}
	return index.Column(col)
}
