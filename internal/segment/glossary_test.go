package segment

import (
	"errors"
	"testing"
)

func TestParseGlossary(t *testing.T) {
	glossary, err := ParseGlossary("term=definition;other=meaning;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(glossary) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(glossary))
	}
	if glossary[0].Name != "term" || glossary[0].Definition != "definition" {
		t.Fatalf("unexpected first term: %+v", glossary[0])
	}
	if glossary[1].Name != "other" || glossary[1].Definition != "meaning" {
		t.Fatalf("unexpected second term: %+v", glossary[1])
	}
}

func TestParseGlossaryRejectsStructure(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "no delimiters", raw: "plain text"},
		{name: "unbalanced equals", raw: "a=b=c;"},
		{name: "unbalanced semicolons", raw: "a=b;;"},
		{name: "empty", raw: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseGlossary(tc.raw); !errors.Is(err, ErrGlossaryFormat) {
				t.Fatalf("ParseGlossary(%q) error = %v, want ErrGlossaryFormat", tc.raw, err)
			}
		})
	}
}

func TestGlossaryEncodeRoundTrip(t *testing.T) {
	original := Glossary{
		{Name: "segment", Definition: "a unit of translatable text"},
		{Name: "claim", Definition: "exclusive assignment"},
	}
	parsed, err := ParseGlossary(original.Encode())
	if err != nil {
		t.Fatalf("parse encoded: %v", err)
	}
	if len(parsed) != len(original) {
		t.Fatalf("round trip length mismatch: %d vs %d", len(parsed), len(original))
	}
	for i := range original {
		if parsed[i] != original[i] {
			t.Fatalf("term %d mismatch: %+v vs %+v", i, parsed[i], original[i])
		}
	}
}
