// Package artifact manages the transient audio files produced per request:
// unique naming, claiming backend output, format sniffing, scoped cleanup and
// the startup sweep of files left behind by earlier runs.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// NamePrefix starts every artifact file name.
	NamePrefix = "output_"
	// NameExt ends every artifact file name.
	NameExt = ".wav"

	stalePattern = NamePrefix + "*" + NameExt
)

var (
	// ErrNoOutput is returned by Claim when the backend left no file behind.
	ErrNoOutput = errors.New("backend produced no output")
)

// Format is the container format of an artifact, sniffed from its first bytes.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatOGG     Format = "ogg"
	FormatUnknown Format = "unknown"
)

// ContentType returns the MIME type served for the format.
// Unknown content is served as WAV.
func (f Format) ContentType() string {
	switch f {
	case FormatMP3:
		return "audio/mp3"
	case FormatOGG:
		return "audio/ogg"
	default:
		return "audio/wav"
	}
}

// Manager owns the artifact directory.
type Manager struct {
	dir    string
	logger *slog.Logger

	now    func() time.Time
	suffix func() string

	mu       sync.Mutex
	reserved map[string]struct{}            // names handed out and not yet released
	scopes   map[string]map[string]struct{} // scope -> absolute paths
}

// NewManager creates a manager rooted at dir, creating the directory if needed.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	return &Manager{
		dir:      abs,
		logger:   logger,
		now:      time.Now,
		suffix:   randomSuffix,
		reserved: make(map[string]struct{}),
		scopes:   make(map[string]map[string]struct{}),
	}, nil
}

// randomSuffix returns 8 lowercase hex characters.
func randomSuffix() string {
	return uuid.New().String()[:8]
}

// Dir returns the absolute artifact directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the absolute path for an artifact name.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name)
}

// ReserveName returns a fresh output_<unix-ms>_<8-hex>.wav name that no other
// in-flight reservation holds. The name stays reserved until the file is
// released through ReleaseAll.
func (m *Manager) ReserveName() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		name := fmt.Sprintf("%s%d_%s%s", NamePrefix, m.now().UnixMilli(), m.suffix(), NameExt)
		if _, taken := m.reserved[name]; taken {
			continue
		}
		m.reserved[name] = struct{}{}
		return name
	}
}

// Reserve reserves a name and registers its path under scope straight away,
// so that a partially written file is still removed by ReleaseAll.
func (m *Manager) Reserve(scope string) string {
	name := m.ReserveName()
	m.Register(scope, m.Path(name))
	return name
}

// Claim renames the backend's fixed-path output to the reserved name and
// returns the new absolute path. A missing fixed file yields ErrNoOutput.
func (m *Manager) Claim(fixedPath, name string) (string, error) {
	dst := m.Path(name)
	if err := os.Rename(fixedPath, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNoOutput, fixedPath)
		}
		return "", fmt.Errorf("claim %s: %w", fixedPath, err)
	}
	return dst, nil
}

// WriteFile writes data under the reserved name and returns the absolute path.
func (m *Manager) WriteFile(name string, data []byte) (string, error) {
	dst := m.Path(name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return dst, nil
}

// Register ties path to scope. Registering the same path twice is a no-op.
func (m *Manager) Register(scope, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scopes[scope] == nil {
		m.scopes[scope] = make(map[string]struct{})
	}
	m.scopes[scope][path] = struct{}{}
}

// ReleaseAll removes every file registered under scope and frees their names.
// Removal failures are logged and skipped. Returns the number of files deleted.
func (m *Manager) ReleaseAll(scope string) int {
	m.mu.Lock()
	paths := m.scopes[scope]
	delete(m.scopes, scope)
	for path := range paths {
		delete(m.reserved, filepath.Base(path))
	}
	m.mu.Unlock()

	removed := 0
	for path := range paths {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
			m.logger.Debug("removed artifact", "scope", scope, "path", path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			m.logger.Warn("failed to remove artifact", "scope", scope, "path", path, "error", err)
		}
	}
	return removed
}

// Pending returns the number of scopes still holding files.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scopes)
}

// PurgeStale deletes every output_*.wav file in the artifact directory,
// whoever created it. It must run before requests are served. A failed
// delete is logged and the sweep continues; the failures are returned joined.
func (m *Manager) PurgeStale() (int, error) {
	matches, err := filepath.Glob(filepath.Join(m.dir, stalePattern))
	if err != nil {
		return 0, fmt.Errorf("scan artifact dir: %w", err)
	}

	var errs []error
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			m.logger.Warn("failed to remove stale artifact", "path", path, "error", err)
			errs = append(errs, err)
			continue
		}
		removed++
	}

	m.logger.Info("purged stale artifacts", "dir", m.dir, "count", removed, "failed", len(errs))
	return removed, errors.Join(errs...)
}

// DetectFormat sniffs the container format from the first bytes of the file.
func (m *Manager) DetectFormat(path string) (Format, error) {
	return DetectFormat(path)
}

// DetectFormat sniffs the container format from the first bytes of the file.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	return SniffFormat(head[:n]), nil
}

// SniffFormat classifies a byte prefix: RIFF is WAV, ID3 is MP3, OggS is Ogg.
func SniffFormat(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, []byte("RIFF")):
		return FormatWAV
	case bytes.HasPrefix(head, []byte("ID3")):
		return FormatMP3
	case bytes.HasPrefix(head, []byte("OggS")):
		return FormatOGG
	default:
		return FormatUnknown
	}
}
