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
	// ErrPiperNotFound is returned when the piper binary is not found.
	ErrPiperNotFound = errors.New("piper binary not found")
	// ErrNoModelSpecified is returned when no model is configured.
	ErrNoModelSpecified = errors.New("no piper model specified")
)

// PiperConfig holds configuration for the Piper backend.
type PiperConfig struct {
	// BinaryPath is the path to the piper executable.
	BinaryPath string
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// WorkDir holds the fixed output file.
	WorkDir string
	// OutputName is the fixed output file name.
	OutputName string
}

// PiperBackend renders speech with a local Piper install.
type PiperBackend struct {
	config     PiperConfig
	outputPath string
	logger     *slog.Logger
}

// NewPiperBackend loads the Piper backend.
func NewPiperBackend(cfg PiperConfig, logger *slog.Logger) (*PiperBackend, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "piper"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "output.wav"
	}

	// Verify piper binary exists
	if _, err := exec.LookPath(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPiperNotFound, cfg.BinaryPath)
	}

	if cfg.ModelPath == "" {
		return nil, ErrNoModelSpecified
	}

	outputPath, err := filepath.Abs(filepath.Join(cfg.WorkDir, cfg.OutputName))
	if err != nil {
		return nil, fmt.Errorf("resolve piper output: %w", err)
	}

	return &PiperBackend{
		config:     cfg,
		outputPath: outputPath,
		logger:     logger,
	}, nil
}

// Name returns the backend identifier.
func (p *PiperBackend) Name() string {
	return "piper"
}

// OutputPath returns the fixed output file.
func (p *PiperBackend) OutputPath() string {
	return p.outputPath
}

// WriteVoice runs piper once, writing a WAV file to OutputPath.
func (p *PiperBackend) WriteVoice(ctx context.Context, text string) error {
	args := []string{
		"--model", p.config.ModelPath,
		"--output_file", p.outputPath,
	}

	p.logger.Debug("running piper",
		"binary", p.config.BinaryPath,
		"model", p.config.ModelPath,
		"text_length", len(text),
	)

	cmd := exec.CommandContext(ctx, p.config.BinaryPath, args...)
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Error("piper failed",
			"error", err,
			"stderr", stderr.String(),
		)
		return fmt.Errorf("run piper: %w", err)
	}

	return nil
}
