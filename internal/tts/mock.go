package tts

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/dgnsrekt/voicify-tts/internal/wav"
)

const (
	mockSecondsPerRune = 0.08
	mockMinSeconds     = 1.0
	mockHarmonics      = 5
)

// MockBackend stands in for the Voicify engine during development. It writes
// text-seeded noise to its fixed output file; the same text always yields
// the same bytes.
type MockBackend struct {
	outputPath string
	logger     *slog.Logger
}

// NewMockBackend creates a mock backend writing to outputName inside workDir.
func NewMockBackend(workDir, outputName string, logger *slog.Logger) (*MockBackend, error) {
	path, err := filepath.Abs(filepath.Join(workDir, outputName))
	if err != nil {
		return nil, fmt.Errorf("resolve mock output: %w", err)
	}
	return &MockBackend{outputPath: path, logger: logger}, nil
}

// Name returns the backend identifier.
func (m *MockBackend) Name() string {
	return "mock"
}

// OutputPath returns the fixed output file.
func (m *MockBackend) OutputPath() string {
	return m.outputPath
}

// WriteVoice renders text into the fixed output file.
func (m *MockBackend) WriteVoice(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := MockAudio(text)
	if err := os.WriteFile(m.outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write mock audio: %w", err)
	}

	m.logger.Debug("mock audio written", "path", m.outputPath, "bytes", len(data))
	return nil
}

// MockSeconds returns the length of the mock audio for text:
// 0.08 s per character, at least one second.
func MockSeconds(text string) float64 {
	return math.Max(float64(utf8.RuneCountInString(text))*mockSecondsPerRune, mockMinSeconds)
}

// MockAudio returns the WAV bytes the mock backend writes for text.
func MockAudio(text string) []byte {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	frames := int(float64(wav.SpeechSampleRate) * MockSeconds(text))
	samples := make([]int16, frames)

	for i := range samples {
		voice := 0.0
		for harmonic := 1; harmonic <= mockHarmonics; harmonic++ {
			amplitude := 0.5 / float64(harmonic)
			voice += amplitude * (rng.Float64()*2 - 1)
		}

		// Every tenth sample is emphasised.
		gain := 0.7
		if i%10 == 0 {
			gain = 1.0
		}
		voice *= gain

		v := int(voice * math.MaxInt16)
		samples[i] = int16(min(max(v, -math.MaxInt16), math.MaxInt16))
	}

	return wav.EncodePCM16(samples, wav.SpeechSampleRate, wav.SpeechChannels)
}
