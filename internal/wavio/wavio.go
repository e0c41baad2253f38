// Package wavio reads and writes PCM WAV files as de-interleaved float64
// channels in [-1, 1].
package wavio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DefaultBitDepth is used by Write.
const DefaultBitDepth = 16

// BitDepths lists the supported PCM sample sizes.
var BitDepths = []int{16, 24, 32}

var (
	// ErrInvalidFile is returned when the input is not a PCM WAV file.
	ErrInvalidFile = errors.New("wavio: invalid wav file")
	// ErrNoChannels is returned when writing zero channels.
	ErrNoChannels = errors.New("wavio: no channels")
	// ErrChannelLength is returned when channels differ in length.
	ErrChannelLength = errors.New("wavio: channel length mismatch")
	// ErrBitDepth is returned for unsupported sample sizes.
	ErrBitDepth = errors.New("wavio: unsupported bit depth")
)

// Audio is a decoded WAV file.
type Audio struct {
	Channels   [][]float64
	SampleRate int
}

// Frames returns the number of samples per channel.
func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Read decodes the WAV file at path.
func Read(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a WAV stream.
func Decode(r io.ReadSeeker) (*Audio, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidFile
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: decode: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, ErrInvalidFile
	}

	numChans := buf.Format.NumChannels
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	scale := math.Pow(2, float64(bitDepth-1))
	frames := len(buf.Data) / numChans

	chans := make([][]float64, numChans)
	for c := range chans {
		chans[c] = make([]float64, frames)
		for i := range frames {
			chans[c][i] = float64(buf.Data[i*numChans+c]) / scale
		}
	}
	return &Audio{Channels: chans, SampleRate: buf.Format.SampleRate}, nil
}

// Write encodes channels as 16-bit PCM to path, creating or truncating an
// existing file. Samples are clipped to [-1, 1].
func Write(path string, sampleRate int, channels ...[]float64) error {
	return WriteDepth(path, sampleRate, DefaultBitDepth, channels...)
}

// WriteDepth is Write with an explicit bit depth.
func WriteDepth(path string, sampleRate, bitDepth int, channels ...[]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, sampleRate, bitDepth, channels...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Clipped counts the samples outside [-1, 1], which Encode clips.
func Clipped(channels ...[]float64) int {
	n := 0
	for _, ch := range channels {
		for _, v := range ch {
			if v > 1 || v < -1 {
				n++
			}
		}
	}
	return n
}

// Encode writes channels to w as PCM WAV with the given bit depth.
func Encode(w io.WriteSeeker, sampleRate, bitDepth int, channels ...[]float64) error {
	if len(channels) == 0 {
		return ErrNoChannels
	}
	if !slices.Contains(BitDepths, bitDepth) {
		return fmt.Errorf("%w: %d", ErrBitDepth, bitDepth)
	}
	frames := len(channels[0])
	for _, ch := range channels[1:] {
		if len(ch) != frames {
			return fmt.Errorf("%w: %d vs %d", ErrChannelLength, len(ch), frames)
		}
	}

	numChans := len(channels)
	full := math.Pow(2, float64(bitDepth-1)) - 1
	data := make([]int, frames*numChans)
	for c, ch := range channels {
		for i, v := range ch {
			v = math.Max(-1, math.Min(1, v))
			data[i*numChans+c] = int(math.Round(v * full))
		}
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChans, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, numChans, 1)
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("wavio: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: finalize: %w", err)
	}
	return nil
}
