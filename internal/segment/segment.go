// Package segment holds the multi-part text codec shared by source and
// target segments. A compound segment carries several sentence-level parts
// joined by a reserved separator marker; the marker count is fixed at
// segment creation and must survive every later edit.
package segment

import "strings"

// Separator is the reserved marker between parts of a target segment.
// It is a storage and wire detail only; callers work with Parts.
const Separator = "0xSep"

// Parts is the ordered sequence of sentence-level units in a segment.
type Parts []string

// Split parses stored or submitted text into its parts. Empty text is a
// single empty part.
func Split(text string) Parts {
	return Parts(strings.Split(text, Separator))
}

// Join encodes the parts back into the storage form.
func (p Parts) Join() string {
	return strings.Join([]string(p), Separator)
}

// Separators reports how many markers the encoded form carries.
func (p Parts) Separators() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Conserves reports whether replacing p with next keeps the part count
// intact. This is the structural contract between a source segment and its
// target: a mismatch means corrupted or malformed client input.
func (p Parts) Conserves(next Parts) bool {
	return len(p) == len(next)
}

// BlankFor builds the initial target parts for a source text: one empty
// part per sentence boundary, so the separator count equals the number of
// sentence-ending delimiters in the source.
func BlankFor(sourceText string) Parts {
	return make(Parts, strings.Count(sourceText, ".")+1)
}
