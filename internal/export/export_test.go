package export

import (
	"encoding/json"
	"testing"
)

func TestAssembleSplitsParts(t *testing.T) {
	doc := Assemble(3, "demo-guide", []string{"Hei.0xSepMaailma.", "Valmis."})
	if doc.ProjectID != 3 || doc.Title != "demo-guide" {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	if len(doc.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(doc.Segments))
	}
	if len(doc.Segments[0]) != 2 {
		t.Fatalf("expected first segment to split into 2 parts, got %v", doc.Segments[0])
	}
	if doc.Segments[0][1] != "Maailma." {
		t.Fatalf("unexpected second part: %q", doc.Segments[0][1])
	}
}

func TestTextJoinsPartsWithSpaces(t *testing.T) {
	doc := Assemble(1, "t", []string{"Hei.0xSepMaailma.", "Valmis."})
	want := "Hei. Maailma.\nValmis."
	if got := doc.Text(); got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestTextEmptyParts(t *testing.T) {
	doc := Assemble(1, "t", []string{"0xSep"})
	if got := doc.Text(); got != "" {
		t.Fatalf("blank segment should render empty, got %q", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	doc := Assemble(9, "manual", []string{"A.0xSepB."})
	data, err := doc.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ProjectID != 9 || len(decoded.Segments) != 1 || len(decoded.Segments[0]) != 2 {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}
