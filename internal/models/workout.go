package models

import "strings"

// Metadata describes a workout as read from its source file.
type Metadata struct {
	Name        string
	Description string
	Author      string
	Category    string
	Subcategory string
}

// Workout is the format-independent representation of a structured workout.
type Workout struct {
	Name        string
	Description string
	Author      string
	Category    string
	Subcategory string
	Segments    []Segment
}

// NewWorkout normalizes metadata: the name is trimmed and the description has
// its line breaks removed before trimming.
func NewWorkout(meta Metadata, segments []Segment) *Workout {
	desc := strings.ReplaceAll(meta.Description, "\n", "")
	desc = strings.ReplaceAll(desc, "\r", "")
	return &Workout{
		Name:        strings.TrimSpace(meta.Name),
		Description: strings.TrimSpace(desc),
		Author:      meta.Author,
		Category:    meta.Category,
		Subcategory: meta.Subcategory,
		Segments:    segments,
	}
}

// FullName returns "<category>: <subcategory>/<name>", omitting empty parts.
func (w *Workout) FullName() string {
	var b strings.Builder
	if w.Category != "" {
		b.WriteString(w.Category)
		b.WriteString(": ")
	}
	if w.Subcategory != "" {
		b.WriteString(w.Subcategory)
		b.WriteString("/")
	}
	b.WriteString(w.Name)
	return b.String()
}

// Duration returns the total workout length in seconds.
func (w *Workout) Duration() int {
	var sum int
	for _, s := range w.Segments {
		sum += s.Duration()
	}
	return sum
}

// ApplyDefaults fills category and subcategory from defaults only where the
// workout does not already carry a value.
func (w *Workout) ApplyDefaults(category, subcategory string) {
	if category != "" && w.Category == "" {
		w.Category = category
	}
	if subcategory != "" && w.Subcategory == "" {
		w.Subcategory = subcategory
	}
}
