package tts

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/voicify-tts/internal/wav"
)

func TestSynthesizeTone_Format(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Duration
	}{
		{"single char", "a", 100 * time.Millisecond},
		{"two chars", "Hi", 200 * time.Millisecond},
		{"greeting", "Hello, world!", 1300 * time.Millisecond},
		{"whitespace", "   ", 300 * time.Millisecond},
		{"multibyte", "héllo", 500 * time.Millisecond},
		{"at cap", strings.Repeat("x", 100), 10 * time.Second},
		{"over cap", strings.Repeat("x", 501), 10 * time.Second},
	}

	oneSample := time.Second / wav.SpeechSampleRate

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := SynthesizeTone(tt.text)

			h, err := wav.Parse(data)
			require.NoError(t, err)

			assert.Equal(t, uint16(wav.FormatPCM), h.AudioFormat)
			assert.Equal(t, 22050, h.SampleRate)
			assert.Equal(t, 1, h.Channels)
			assert.Equal(t, 16, h.BitsPerSample)
			assert.Positive(t, h.Frames())
			assert.Equal(t, ToneFrames(tt.text), h.Frames())
			assert.InDelta(t, float64(tt.want), float64(h.Duration()), float64(oneSample))
		})
	}
}

func TestSynthesizeTone_Deterministic(t *testing.T) {
	assert.Equal(t, SynthesizeTone("repeatable"), SynthesizeTone("repeatable"))
	// Only the length of the text matters.
	assert.Equal(t, SynthesizeTone("abcd"), SynthesizeTone("wxyz"))
}

func TestSynthesizeTone_Waveform(t *testing.T) {
	data := SynthesizeTone("Hello")
	pcm := data[wav.HeaderSize:]

	sample := func(i int) int16 {
		return int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
	}

	assert.Equal(t, int16(0), sample(0))

	limit := float64(math.MaxInt16) * ToneAmplitude
	peak := int16(limit)
	var maxSeen int16
	for i := 0; i < len(pcm)/2; i++ {
		s := sample(i)
		assert.LessOrEqual(t, s, peak)
		assert.GreaterOrEqual(t, s, -peak)
		maxSeen = max(maxSeen, s)
	}
	// A 440 Hz wave reaches its peak within a couple of samples.
	assert.Greater(t, maxSeen, peak-200)
}

func TestToneSeconds(t *testing.T) {
	assert.InDelta(t, 0.0, ToneSeconds(""), 1e-9)
	assert.InDelta(t, 0.5, ToneSeconds("abcde"), 1e-9)
	assert.InDelta(t, 10.0, ToneSeconds(strings.Repeat("a", 1000)), 1e-9)
}
