package tts

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/voicify-tts/internal/wav"
)

// Tone parameters of the fallback synthesizer.
const (
	ToneFrequency      = 440.0
	ToneAmplitude      = 0.3
	ToneSecondsPerRune = 0.1
	ToneMaxSeconds     = 10.0
)

// ToneSeconds returns the length of the fallback tone for text:
// 0.1 s per character, capped at 10 s.
func ToneSeconds(text string) float64 {
	return math.Min(float64(utf8.RuneCountInString(text))*ToneSecondsPerRune, ToneMaxSeconds)
}

// ToneFrames returns the number of samples SynthesizeTone produces for text.
func ToneFrames(text string) int {
	return int(float64(wav.SpeechSampleRate) * ToneSeconds(text))
}

// ToneDuration is ToneSeconds as a time.Duration.
func ToneDuration(text string) time.Duration {
	return time.Duration(ToneSeconds(text) * float64(time.Second))
}

// SynthesizeTone renders text as a 440 Hz sine wave: 22050 Hz mono 16-bit
// WAV bytes. The output depends only on the length of text.
func SynthesizeTone(text string) []byte {
	frames := ToneFrames(text)
	samples := make([]int16, frames)

	peak := float64(math.MaxInt16) * ToneAmplitude
	for i := range samples {
		t := float64(i) / wav.SpeechSampleRate
		samples[i] = int16(peak * math.Sin(2*math.Pi*ToneFrequency*t))
	}

	return wav.EncodePCM16(samples, wav.SpeechSampleRate, wav.SpeechChannels)
}
