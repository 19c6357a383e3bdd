package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgnsrekt/voicify-tts/internal/artifact"
	"github.com/dgnsrekt/voicify-tts/internal/queue"
	"github.com/dgnsrekt/voicify-tts/internal/wav"
)

var (
	// ErrBackendUnavailable is returned in strict mode when no backend loaded.
	ErrBackendUnavailable = errors.New("TTS backend not available")
	// ErrSynthesisFailed is returned when the backend ran but no usable audio
	// came out of it.
	ErrSynthesisFailed = errors.New("TTS synthesis failed")
)

// UnavailableError reports a missing backend together with the command that
// installs it.
type UnavailableError struct {
	InstallCommand string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%v (install with %q)", ErrBackendUnavailable, e.InstallCommand)
}

func (e *UnavailableError) Unwrap() error {
	return ErrBackendUnavailable
}

// Runner runs fn on a worker, one call at a time.
type Runner interface {
	Do(scope string, fn queue.Func) error
}

// AdapterConfig holds the adapter's behaviour switches.
type AdapterConfig struct {
	// Fallback renders a tone instead of failing when no backend is loaded.
	Fallback bool
	// InstallCommand is reported in UnavailableError.
	InstallCommand string
}

// Artifact is the audio produced for one request. The file at Path belongs
// to the request scope it was synthesised for.
type Artifact struct {
	Path     string
	Filename string
	Format   artifact.Format
	Data     []byte
}

// Adapter turns text into an on-disk artifact using the loaded backend, or
// the tone synthesizer when the backend is missing and fallback is on.
type Adapter struct {
	backend   Backend
	artifacts *artifact.Manager
	runner    Runner
	cfg       AdapterConfig
	logger    *slog.Logger
}

// NewAdapter creates an adapter. A nil backend means the backend failed to
// load; availability is fixed for the adapter's lifetime.
func NewAdapter(backend Backend, artifacts *artifact.Manager, runner Runner, cfg AdapterConfig, logger *slog.Logger) *Adapter {
	return &Adapter{
		backend:   backend,
		artifacts: artifacts,
		runner:    runner,
		cfg:       cfg,
		logger:    logger,
	}
}

// Available reports whether a backend is loaded.
func (a *Adapter) Available() bool {
	return a.backend != nil
}

// Synthesize produces an artifact for text. The artifact's name is reserved
// under scope before anything is written, so releasing scope removes the
// file on every exit path.
func (a *Adapter) Synthesize(scope, text string) (*Artifact, error) {
	if a.backend == nil {
		if !a.cfg.Fallback {
			return nil, &UnavailableError{InstallCommand: a.cfg.InstallCommand}
		}
		return a.synthesizeTone(scope, text)
	}

	name := a.artifacts.Reserve(scope)

	var path string
	err := a.runner.Do(scope, func(ctx context.Context) error {
		fixed := a.backend.OutputPath()
		if err := clearOutput(fixed); err != nil {
			return errors.Join(ErrSynthesisFailed, err)
		}

		if err := a.backend.WriteVoice(ctx, text); err != nil {
			if cerr := clearOutput(fixed); cerr != nil {
				a.logger.Warn("failed to remove partial output", "path", fixed, "error", cerr)
			}
			return errors.Join(ErrSynthesisFailed, fmt.Errorf("%s backend: %w", a.backend.Name(), err))
		}

		claimed, err := a.artifacts.Claim(fixed, name)
		if err != nil {
			return errors.Join(ErrSynthesisFailed, err)
		}
		path = claimed
		return nil
	})
	if err != nil {
		a.logger.Error("speech synthesis failed",
			"scope", scope,
			"backend", a.backend.Name(),
			"error", err,
		)
		return nil, err
	}

	format, err := a.artifacts.DetectFormat(path)
	if err != nil {
		return nil, errors.Join(ErrSynthesisFailed, fmt.Errorf("detect format: %w", err))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrSynthesisFailed, fmt.Errorf("read artifact: %w", err))
	}

	art := &Artifact{
		Path:     path,
		Filename: name,
		Format:   format,
		Data:     data,
	}

	attrs := []any{
		"scope", scope,
		"backend", a.backend.Name(),
		"file", name,
		"format", art.Format,
		"bytes", len(data),
	}
	if format == artifact.FormatWAV {
		if h, err := wav.Parse(data); err == nil {
			attrs = append(attrs, "duration", h.Duration())
		}
	}
	a.logger.Info("speech synthesized", attrs...)

	return art, nil
}

func (a *Adapter) synthesizeTone(scope, text string) (*Artifact, error) {
	name := a.artifacts.Reserve(scope)

	data := SynthesizeTone(text)
	path, err := a.artifacts.WriteFile(name, data)
	if err != nil {
		a.logger.Error("fallback synthesis failed", "scope", scope, "error", err)
		return nil, errors.Join(ErrSynthesisFailed, err)
	}

	a.logger.Info("speech synthesized",
		"scope", scope,
		"backend", "tone",
		"file", name,
		"duration", ToneDuration(text),
		"bytes", len(data),
	)

	return &Artifact{
		Path:     path,
		Filename: name,
		Format:   artifact.FormatWAV,
		Data:     data,
	}, nil
}
