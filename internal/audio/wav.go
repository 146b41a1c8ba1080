package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// WAV format constants for 16-bit PCM mono.
const (
	wavHeaderSize    = 44
	wavPCMFormat     = 1
	wavBitsPerSample = 16
	wavChannels      = 1
)

// EncodeWAV writes the track as a 16-bit PCM mono WAV stream.
func EncodeWAV(w io.Writer, t *Track) error {
	dataSize := len(t.Samples) * wavBitsPerSample / 8
	byteRate := t.SampleRate * wavChannels * wavBitsPerSample / 8
	blockAlign := wavChannels * wavBitsPerSample / 8

	// RIFF header.
	if _, err := w.Write([]byte("RIFF")); err != nil {
		return fmt.Errorf("writing RIFF header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(wavHeaderSize-8+dataSize)); err != nil {
		return fmt.Errorf("writing chunk size: %w", err)
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return fmt.Errorf("writing WAVE marker: %w", err)
	}

	// fmt chunk.
	if _, err := w.Write([]byte("fmt ")); err != nil {
		return fmt.Errorf("writing fmt marker: %w", err)
	}
	for _, v := range []any{
		uint32(16), // fmt chunk size
		uint16(wavPCMFormat),
		uint16(wavChannels),
		uint32(t.SampleRate),
		uint32(byteRate),
		uint16(blockAlign),
		uint16(wavBitsPerSample),
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("writing fmt chunk: %w", err)
		}
	}

	// data chunk.
	if _, err := w.Write([]byte("data")); err != nil {
		return fmt.Errorf("writing data marker: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dataSize)); err != nil {
		return fmt.Errorf("writing data size: %w", err)
	}

	pcm := make([]int16, len(t.Samples))
	for i, s := range t.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		pcm[i] = int16(math.Round(s * math.MaxInt16))
	}
	if err := binary.Write(w, binary.LittleEndian, pcm); err != nil {
		return fmt.Errorf("writing PCM data: %w", err)
	}

	return nil
}

// WriteWAVFile encodes the track into a WAV file at the given path.
func WriteWAVFile(path string, t *Track) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating WAV file: %w", err)
	}
	if err := EncodeWAV(f, t); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing WAV file: %w", err)
	}
	return nil
}
