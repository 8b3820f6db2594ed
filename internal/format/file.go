package format

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"

	"github.com/claude/workoutconv/internal/models"
)

// Load reads the workout stored at path using f's reader. The file is closed
// on every return path. Reader failures are reported as *ParseError.
func Load(f Format, path string) (*models.Workout, error) {
	if f.Reader == nil {
		return nil, &NotImplementedError{Format: f.ID, Capability: Reading}
	}

	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fp.Close()

	wo, err := f.Reader.Read(fp)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			if perr.Path == "" {
				perr.Path = path
			}
			return nil, perr
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return wo, nil
}

// Save writes wo to path using f's writer. The document is rendered in memory
// and then atomically renamed into place, so a failed save leaves no file behind.
func Save(f Format, path string, wo *models.Workout) error {
	if f.Writer == nil {
		return &NotImplementedError{Format: f.ID, Capability: Writing}
	}

	var buf bytes.Buffer
	if err := f.Writer.Write(&buf, wo); err != nil {
		return fmt.Errorf("encoding %s: %w", f.ID, err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
