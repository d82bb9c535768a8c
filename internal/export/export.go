// Package export assembles a project's translated segments into delivery
// formats. Separator markers are resolved back into sentence parts here,
// at the outermost boundary.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"lingua/api/internal/segment"
)

// Document is the assembled translation of one project.
type Document struct {
	ProjectID int64      `json:"project_id"`
	Title     string     `json:"title"`
	Segments  [][]string `json:"segments"`
}

// Assemble parses each stored target text into its parts.
func Assemble(projectID int64, title string, targets []string) Document {
	segments := make([][]string, 0, len(targets))
	for _, text := range targets {
		segments = append(segments, []string(segment.Split(text)))
	}
	return Document{ProjectID: projectID, Title: title, Segments: segments}
}

// Text renders the document as plain text, one segment per line with its
// parts joined by single spaces.
func (d Document) Text() string {
	var b strings.Builder
	for i, parts := range d.Segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(strings.Join(parts, " ")))
	}
	return b.String()
}

// JSON renders the document as an indented JSON payload.
func (d Document) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export document: %w", err)
	}
	return data, nil
}
