// Package tts wraps the speech backends behind a single adapter that reports
// availability, serialises backend runs and hands results to the artifact
// manager.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Backend is an external speech engine. A Backend is loaded once by its
// factory; a failed load means the engine is unavailable.
//
// WriteVoice renders text into the file at OutputPath and returns nothing
// else. The path is fixed per backend, so concurrent calls overwrite each
// other and must be serialised by the caller.
type Backend interface {
	// Name returns the backend identifier.
	Name() string
	// WriteVoice renders text into OutputPath.
	WriteVoice(ctx context.Context, text string) error
	// OutputPath returns the absolute path WriteVoice writes to.
	OutputPath() string
}

// clearOutput removes a leftover fixed output file so a backend that writes
// nothing cannot hand back a previous run's audio.
func clearOutput(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear backend output: %w", err)
	}
	return nil
}
