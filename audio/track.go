// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audvox/utils"
)

// Track is fully decoded sample data that can be submitted as a single
// buffer.
type Track interface {
	Format() Format
	LengthInBytes() uint32
	// Buffer describes the whole track. When loop is set the backend repeats
	// it until the voice is stopped.
	Buffer(loop bool) Buffer
}

// PCMTrack holds sample data in memory. It is safe to submit the same track
// to any number of voices at once.
type PCMTrack struct {
	format Format
	data   []byte
}

// NewPCMTrack wraps data, which must hold whole frames of format.
func NewPCMTrack(format Format, data []byte) (*PCMTrack, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if len(data)%format.BlockAlign() != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte frames",
			ErrInvalidSourceData, len(data), format.BlockAlign())
	}
	return &PCMTrack{format: format, data: data}, nil
}

// DecodeTrack reads src to the end and converts it to 32-bit float. The
// caller still owns src and must close it.
func DecodeTrack(src Source) (*PCMTrack, error) {
	channels := src.Channels()
	if channels <= 0 || src.SampleRate() <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidSourceData, channels, src.SampleRate())
	}

	size := src.BufSize()
	if size < channels {
		size = 4096
	}
	size -= size % channels

	buf := make([]float32, size)
	var data []byte
	if l, ok := src.(Lengther); ok && l.Frames() > 0 {
		data = make([]byte, 0, l.Frames()*int64(channels)*4)
	}

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			start := len(data)
			data = append(data, make([]byte, n*4)...)
			utils.PutFloat32s(data[start:], buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSourceData, err)
		}
		if n == 0 {
			break
		}
	}

	// drop a trailing partial frame
	frame := channels * 4
	data = data[:len(data)-len(data)%frame]

	return &PCMTrack{
		format: FloatFormat(channels, src.SampleRate()),
		data:   data,
	}, nil
}

func (t *PCMTrack) Format() Format        { return t.format }
func (t *PCMTrack) LengthInBytes() uint32 { return uint32(len(t.data)) }
func (t *PCMTrack) Data() []byte          { return t.data }

// Frames is the track length in frames.
func (t *PCMTrack) Frames() uint32 {
	return uint32(len(t.data) / t.format.BlockAlign())
}

func (t *PCMTrack) Buffer(loop bool) Buffer {
	b := Buffer{
		Data:        t.data,
		PlayLength:  t.Frames(),
		EndOfStream: true,
	}
	if loop {
		b.LoopCount = LoopInfinite
	}
	return b
}
