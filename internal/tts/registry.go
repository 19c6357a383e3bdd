package tts

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

var (
	// ErrBackendNotFound is returned when a backend is not registered.
	ErrBackendNotFound = errors.New("TTS backend not found")
	// ErrBackendExists is returned when trying to register a duplicate backend.
	ErrBackendExists = errors.New("TTS backend already registered")
)

// Factory loads a backend. A returned error means the backend is unavailable.
type Factory func() (Backend, error)

// Registry maps backend names to their factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Options configures the built-in backends.
type Options struct {
	WorkDir       string
	VoicifyPath   string
	VoicifyOutput string
	PiperPath     string
	PiperModel    string
}

// NewDefaultRegistry returns a registry holding the voicify, piper and mock
// backends configured from opts.
func NewDefaultRegistry(opts Options, logger *slog.Logger) *Registry {
	r := NewRegistry()

	// Names are distinct, so registration cannot fail.
	_ = r.Register("voicify", func() (Backend, error) {
		return NewCommandBackend(CommandConfig{
			BinaryPath: opts.VoicifyPath,
			WorkDir:    opts.WorkDir,
			OutputName: opts.VoicifyOutput,
		}, logger)
	})
	_ = r.Register("piper", func() (Backend, error) {
		return NewPiperBackend(PiperConfig{
			BinaryPath: opts.PiperPath,
			ModelPath:  opts.PiperModel,
			WorkDir:    opts.WorkDir,
			OutputName: opts.VoicifyOutput,
		}, logger)
	})
	_ = r.Register("mock", func() (Backend, error) {
		return NewMockBackend(opts.WorkDir, opts.VoicifyOutput, logger)
	})

	return r
}

// Register adds a backend factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %s", ErrBackendExists, name)
	}

	r.factories[name] = factory
	return nil
}

// Load constructs the named backend.
func (r *Registry) Load(name string) (Backend, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}

	backend, err := factory()
	if err != nil {
		return nil, fmt.Errorf("load %s backend: %w", name, err)
	}
	return backend, nil
}

// List returns all registered backend names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
