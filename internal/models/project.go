// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"strings"
	"time"
)

// NoCoverImage is the cover reference the backend reports for projects without images.
const NoCoverImage = "None"

// Project represents a named collection of time-ordered cell images.
type Project struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	CoverImage  string `json:"coverImage" yaml:"coverImage"`
}

// HasCover returns true if the backend has a cover image for the project.
func (p Project) HasCover() bool {
	return p.CoverImage != "" && p.CoverImage != NoCoverImage
}

// ProjectList is the set of projects shown in the project grid.
type ProjectList []Project

// Validate checks that titles are unique within the list.
func (l ProjectList) Validate() error {
	seen := make(map[string]struct{}, len(l))
	for _, p := range l {
		if _, ok := seen[p.Title]; ok {
			return fmt.Errorf("duplicate project title: %q", p.Title)
		}
		seen[p.Title] = struct{}{}
	}
	return nil
}

// Find returns the project with the given title.
func (l ProjectList) Find(title string) (Project, bool) {
	for _, p := range l {
		if p.Title == title {
			return p, true
		}
	}
	return Project{}, false
}

// Layouts accepted for image date labels, in the order they are tried.
var dateLayouts = []string{
	"2006-01-02_15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseImageDate parses a backend date label. Captured dates and upload
// timestamps use different layouts, so several are accepted.
func ParseImageDate(label string) (time.Time, error) {
	label = strings.TrimSpace(label)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized image date %q", label)
}

// ExportRow is one row of the project statistics grid. The first row is the
// header ("METRIC" followed by "<date> (<stat>)" columns); each following row
// starts with a metric name followed by numbers.
type ExportRow []any
