package segment

import (
	"errors"
	"strings"
)

// Term is one glossary entry.
type Term struct {
	Name       string
	Definition string
}

// Glossary is the ordered term list attached to a project. It is stored as
// a single delimited string (term=definition;...); parsing happens only at
// the storage boundary.
type Glossary []Term

var ErrGlossaryFormat = errors.New("invalid glossary format")

// ParseGlossary decodes the delimited form. The structural check mirrors
// the ingestion rule: the encoded form must carry equal, positive counts of
// '=' and ';' characters.
func ParseGlossary(raw string) (Glossary, error) {
	eq := strings.Count(raw, "=")
	semi := strings.Count(raw, ";")
	if eq != semi || eq < 1 {
		return nil, ErrGlossaryFormat
	}

	terms := make(Glossary, 0, semi)
	for _, pair := range strings.Split(raw, ";") {
		if pair == "" {
			continue
		}
		name, definition, found := strings.Cut(pair, "=")
		if !found {
			return nil, ErrGlossaryFormat
		}
		terms = append(terms, Term{Name: name, Definition: definition})
	}
	if len(terms) == 0 {
		return nil, ErrGlossaryFormat
	}
	return terms, nil
}

// Encode writes the glossary back into its delimited storage form.
func (g Glossary) Encode() string {
	var b strings.Builder
	for _, term := range g {
		b.WriteString(term.Name)
		b.WriteString("=")
		b.WriteString(term.Definition)
		b.WriteString(";")
	}
	return b.String()
}
