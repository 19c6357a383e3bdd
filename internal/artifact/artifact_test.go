package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/voicify-tts/internal/logging"
	"github.com/dgnsrekt/voicify-tts/internal/wav"
)

var namePattern = regexp.MustCompile(`^output_\d+_[0-9a-f]{8}\.wav$`)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), logging.Discard())
	require.NoError(t, err)
	return m
}

func countArtifacts(t *testing.T, dir string) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "output_*"))
	require.NoError(t, err)
	return len(matches)
}

func TestNewManager_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")

	m, err := NewManager(dir, logging.Discard())
	require.NoError(t, err)

	info, err := os.Stat(m.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, filepath.IsAbs(m.Dir()))
}

func TestReserveName_Format(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.UnixMilli(1700000000123) }

	name := m.ReserveName()

	assert.Regexp(t, namePattern, name)
	assert.Contains(t, name, "output_1700000000123_")
}

func TestReserveName_BreaksTimestampCollisions(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.UnixMilli(42) }

	suffixes := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	m.suffix = func() string {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}

	first := m.ReserveName()
	second := m.ReserveName()

	assert.Equal(t, "output_42_aaaaaaaa.wav", first)
	assert.Equal(t, "output_42_bbbbbbbb.wav", second)
}

func TestReserveName_ConcurrentUnique(t *testing.T) {
	m := newTestManager(t)

	const n = 200
	names := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names <- m.ReserveName()
		}()
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool, n)
	for name := range names {
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, n)
}

func TestClaim(t *testing.T) {
	m := newTestManager(t)
	fixed := filepath.Join(m.Dir(), "output.wav")
	require.NoError(t, os.WriteFile(fixed, wav.EncodePCM16(make([]int16, 10), wav.SpeechSampleRate, wav.SpeechChannels), 0o644))

	name := m.ReserveName()
	path, err := m.Claim(fixed, name)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(m.Dir(), name), path)
	assert.FileExists(t, path)
	assert.NoFileExists(t, fixed)
}

func TestClaim_MissingFixedFile(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Claim(filepath.Join(m.Dir(), "output.wav"), m.ReserveName())

	assert.True(t, errors.Is(err, ErrNoOutput), "got %v", err)
}

func TestWriteFile(t *testing.T) {
	m := newTestManager(t)
	name := m.ReserveName()

	path, err := m.WriteFile(name, []byte("RIFFdata"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFdata"), data)
}

func TestReleaseAll(t *testing.T) {
	m := newTestManager(t)

	name := m.Reserve("req-1")
	_, err := m.WriteFile(name, []byte("RIFF"))
	require.NoError(t, err)

	other := m.Reserve("req-2")
	_, err = m.WriteFile(other, []byte("RIFF"))
	require.NoError(t, err)

	assert.Equal(t, 1, m.ReleaseAll("req-1"))
	assert.NoFileExists(t, m.Path(name))
	assert.FileExists(t, m.Path(other))

	// Releasing twice deletes nothing more.
	assert.Equal(t, 0, m.ReleaseAll("req-1"))

	assert.Equal(t, 1, m.ReleaseAll("req-2"))
	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, 0, countArtifacts(t, m.Dir()))
}

func TestReleaseAll_ReservationWithoutFile(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.UnixMilli(1) }
	m.suffix = func() string { return "00000000" }

	name := m.Reserve("req")
	assert.Equal(t, 0, m.ReleaseAll("req"))

	// The name is free again.
	assert.Equal(t, name, m.ReserveName())
}

func TestRegister_Idempotent(t *testing.T) {
	m := newTestManager(t)
	name := m.Reserve("req")
	path, err := m.WriteFile(name, []byte("RIFF"))
	require.NoError(t, err)

	m.Register("req", path)

	assert.Equal(t, 1, m.ReleaseAll("req"))
}

func TestReleaseAll_UnknownScope(t *testing.T) {
	m := newTestManager(t)
	assert.Equal(t, 0, m.ReleaseAll("nope"))
}

func TestPurgeStale(t *testing.T) {
	m := newTestManager(t)

	stale := []string{"output_1_deadbeef.wav", "output_2_00000000.wav", "output_anything.wav"}
	keep := []string{"output.wav", "output_1_deadbeef.mp3", "notes.txt"}
	for _, name := range append(append([]string{}, stale...), keep...) {
		require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), name), []byte("x"), 0o644))
	}

	removed, err := m.PurgeStale()
	require.NoError(t, err)

	assert.Equal(t, len(stale), removed)
	for _, name := range stale {
		assert.NoFileExists(t, filepath.Join(m.Dir(), name))
	}
	for _, name := range keep {
		assert.FileExists(t, filepath.Join(m.Dir(), name))
	}
}

func TestPurgeStale_ContinuesPastFailures(t *testing.T) {
	m := newTestManager(t)

	// A non-empty directory matching the pattern cannot be removed with os.Remove.
	blocked := filepath.Join(m.Dir(), "output_blocked.wav")
	require.NoError(t, os.Mkdir(blocked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocked, "inner"), []byte("x"), 0o644))

	for _, name := range []string{"output_1_aaaaaaaa.wav", "output_2_bbbbbbbb.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), name), []byte("x"), 0o644))
	}

	removed, err := m.PurgeStale()

	assert.Error(t, err)
	assert.Equal(t, 2, removed)
	assert.DirExists(t, blocked)
}

func TestPurgeStale_EmptyDir(t *testing.T) {
	m := newTestManager(t)

	removed, err := m.PurgeStale()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSniffFormat(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want Format
	}{
		{"wav", []byte("RIFF\x24\x00\x00\x00WAVE"), FormatWAV},
		{"mp3", []byte("ID3\x04"), FormatMP3},
		{"ogg", []byte("OggS\x00\x02"), FormatOGG},
		{"unknown", []byte("fLaC"), FormatUnknown},
		{"short", []byte("RI"), FormatUnknown},
		{"empty", nil, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffFormat(tt.head))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	m := newTestManager(t)

	files := map[string][]byte{
		"a.wav": wav.EncodePCM16(make([]int16, 4), wav.SpeechSampleRate, wav.SpeechChannels),
		"b.mp3": []byte("ID3\x03rest"),
		"c.ogg": []byte("OggS"),
		"d.bin": []byte("\x00"),
	}
	want := map[string]Format{"a.wav": FormatWAV, "b.mp3": FormatMP3, "c.ogg": FormatOGG, "d.bin": FormatUnknown}

	for name, data := range files {
		path := filepath.Join(m.Dir(), name)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		got, err := m.DetectFormat(path)
		require.NoError(t, err)
		assert.Equal(t, want[name], got, name)
	}
}

func TestDetectFormat_MissingFile(t *testing.T) {
	_, err := DetectFormat(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestFormat_ContentType(t *testing.T) {
	assert.Equal(t, "audio/wav", FormatWAV.ContentType())
	assert.Equal(t, "audio/mp3", FormatMP3.ContentType())
	assert.Equal(t, "audio/ogg", FormatOGG.ContentType())
	assert.Equal(t, "audio/wav", FormatUnknown.ContentType())
}
