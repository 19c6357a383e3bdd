// Package wav provides utilities for WAV audio file handling.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// WAV format constants.
const (
	// HeaderSize is the size of a standard WAV file header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1
)

// Speech audio defaults shared by the built-in synthesizers and Piper.
const (
	// SpeechSampleRate is 22050 Hz.
	SpeechSampleRate = 22050

	// SpeechChannels is mono.
	SpeechChannels = 1

	// SpeechBitsPerSample is 16-bit.
	SpeechBitsPerSample = 16
)

var (
	// ErrNotWAV is returned when data does not start with a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a RIFF/WAVE stream")
	// ErrMissingChunk is returned when the fmt or data chunk is absent.
	ErrMissingChunk = errors.New("missing WAV chunk")
)

// Header describes the format of a parsed WAV stream.
type Header struct {
	AudioFormat   uint16
	Channels      int
	SampleRate    int
	BitsPerSample int
	// DataSize is the length in bytes of the data chunk payload.
	DataSize int
}

// Frames returns the number of sample frames in the data chunk.
func (h Header) Frames() int {
	frameSize := h.Channels * h.BitsPerSample / 8
	if frameSize == 0 {
		return 0
	}
	return h.DataSize / frameSize
}

// Duration returns the playback length of the data chunk.
func (h Header) Duration() time.Duration {
	if h.SampleRate == 0 {
		return 0
	}
	return time.Duration(h.Frames()) * time.Second / time.Duration(h.SampleRate)
}

// Parse reads the RIFF chunk list of a WAV stream and returns its format.
// Unknown chunks between fmt and data are skipped.
func Parse(data []byte) (Header, error) {
	var h Header

	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return h, ErrNotWAV
	}

	var haveFmt, haveData bool
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return h, fmt.Errorf("%w: truncated fmt chunk", ErrMissingChunk)
			}
			h.AudioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			h.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			h.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			h.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			// Tolerate a data size that overruns the buffer (streamed writers).
			h.DataSize = min(size, len(data)-body)
			haveData = true
		}

		if haveFmt && haveData {
			return h, nil
		}

		// Chunks are word aligned.
		offset = body + size + size%2
	}

	if !haveFmt {
		return h, fmt.Errorf("%w: fmt", ErrMissingChunk)
	}
	return h, fmt.Errorf("%w: data", ErrMissingChunk)
}

// EncodePCM16 packs signed 16-bit samples little-endian and wraps them as a WAV file.
func EncodePCM16(samples []int16, sampleRate, channels int) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		PutLE16(pcm[i*2:], uint16(s))
	}
	return WrapRawPCM(pcm, sampleRate, channels, 16)
}

// WrapRawPCM adds a WAV header to raw PCM data.
// Parameters:
//   - pcm: raw PCM audio data bytes
//   - sampleRate: samples per second (e.g., 22050, 44100, 48000)
//   - channels: number of audio channels (1=mono, 2=stereo)
//   - bitsPerSample: bit depth per sample (typically 16)
//
// Returns a complete WAV file as a byte slice.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, HeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], 16) // subchunk size
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// PutLE16 writes a uint16 value in little-endian format to a byte slice.
func PutLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutLE32 writes a uint32 value in little-endian format to a byte slice.
func PutLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
