package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrCommandNotFound is returned when the engine executable is not on PATH.
	ErrCommandNotFound = errors.New("TTS engine executable not found")
)

// CommandConfig holds configuration for the command backend.
type CommandConfig struct {
	// BinaryPath is the engine executable.
	BinaryPath string
	// WorkDir is the directory the engine runs in and writes to.
	WorkDir string
	// OutputName is the file the engine writes, relative to WorkDir.
	OutputName string
}

// CommandBackend runs the Voicify engine executable with the text on stdin.
// The engine writes its audio to a fixed file in its working directory.
type CommandBackend struct {
	binary     string
	workDir    string
	outputPath string
	logger     *slog.Logger
}

// NewCommandBackend loads the command backend. It fails when the executable
// cannot be found.
func NewCommandBackend(cfg CommandConfig, logger *slog.Logger) (*CommandBackend, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "voicify"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "output.wav"
	}

	binary, err := exec.LookPath(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, cfg.BinaryPath)
	}

	workDir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolve work dir: %w", err)
	}

	return &CommandBackend{
		binary:     binary,
		workDir:    workDir,
		outputPath: filepath.Join(workDir, cfg.OutputName),
		logger:     logger,
	}, nil
}

// Name returns the backend identifier.
func (c *CommandBackend) Name() string {
	return "voicify"
}

// OutputPath returns the fixed output file.
func (c *CommandBackend) OutputPath() string {
	return c.outputPath
}

// WriteVoice runs the engine once for text.
func (c *CommandBackend) WriteVoice(ctx context.Context, text string) error {
	c.logger.Debug("running voicify",
		"binary", c.binary,
		"dir", c.workDir,
		"text_length", len(text),
	)

	cmd := exec.CommandContext(ctx, c.binary)
	cmd.Dir = c.workDir
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("voicify failed",
			"error", err,
			"stderr", stderr.String(),
		)
		return fmt.Errorf("run %s: %w", filepath.Base(c.binary), err)
	}

	return nil
}
