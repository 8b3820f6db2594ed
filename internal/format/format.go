// Package format defines the reader/writer contracts of workout file formats
// and the registry that resolves them by identifier or file extension.
package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/claude/workoutconv/internal/models"
)

// Reader parses a source document into a Workout.
type Reader interface {
	Read(r io.Reader) (*models.Workout, error)
}

// Writer serializes a Workout. Implementations write the complete document or
// return an error.
type Writer interface {
	Write(w io.Writer, wo *models.Workout) error
}

// Format describes one file format. Reader or Writer is nil when the format
// cannot be read or written.
type Format struct {
	ID     string // identifier used on the command line, e.g. "zwift"
	Name   string // human readable name
	Ext    string // file extension without the leading dot
	Reader Reader
	Writer Writer
}

// CanRead reports whether the format has a reader.
func (f Format) CanRead() bool { return f.Reader != nil }

// CanWrite reports whether the format has a writer.
func (f Format) CanWrite() bool { return f.Writer != nil }

// Registry is an immutable lookup table of formats. It is safe for concurrent use.
type Registry struct {
	formats []Format
	byID    map[string]int
	byExt   map[string]int
}

// NewRegistry builds a registry. Identifiers and extensions must be unique.
func NewRegistry(formats ...Format) (*Registry, error) {
	r := &Registry{
		formats: make([]Format, 0, len(formats)),
		byID:    make(map[string]int, len(formats)),
		byExt:   make(map[string]int, len(formats)),
	}
	for _, f := range formats {
		if f.ID == "" || f.Ext == "" {
			return nil, fmt.Errorf("format %q: id and extension are required", f.Name)
		}
		id, ext := normalizeKey(f.ID), normalizeExt(f.Ext)
		if _, ok := r.byID[id]; ok {
			return nil, fmt.Errorf("duplicate format id %q", f.ID)
		}
		if _, ok := r.byExt[ext]; ok {
			return nil, fmt.Errorf("duplicate format extension %q", f.Ext)
		}
		r.byID[id] = len(r.formats)
		r.byExt[ext] = len(r.formats)
		r.formats = append(r.formats, f)
	}
	return r, nil
}

// ByID returns the format registered under id.
func (r *Registry) ByID(id string) (Format, bool) {
	i, ok := r.byID[normalizeKey(id)]
	if !ok {
		return Format{}, false
	}
	return r.formats[i], true
}

// ByExt returns the format registered for a file extension. A leading dot is ignored.
func (r *Registry) ByExt(ext string) (Format, bool) {
	i, ok := r.byExt[normalizeExt(ext)]
	if !ok {
		return Format{}, false
	}
	return r.formats[i], true
}

// Formats returns the registered formats in registration order.
func (r *Registry) Formats() []Format {
	out := make([]Format, len(r.formats))
	copy(out, r.formats)
	return out
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeExt(s string) string {
	return strings.TrimPrefix(normalizeKey(s), ".")
}

// Filename derives a filesystem-safe name from a workout title. The
// substitutions run in sequence, each on the result of the previous one.
func Filename(name string) string {
	for _, r := range filenameReplacements {
		name = strings.ReplaceAll(name, r[0], r[1])
	}
	return name
}

var filenameReplacements = [][2]string{
	{": ", "_"},
	{"/", "-"},
	{"%", "P"},
	{"#", ""},
	{" ", "_"},
}
