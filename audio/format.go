// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// FormatTag identifies the sample encoding of a Format.
type FormatTag uint16

const (
	// PCM is signed integer PCM (unsigned for 8 bit).
	PCM FormatTag = 1
	// IEEEFloat is 32-bit little endian float in [-1,1].
	IEEEFloat FormatTag = 3
)

func (t FormatTag) String() string {
	switch t {
	case PCM:
		return "pcm"
	case IEEEFloat:
		return "float"
	default:
		return fmt.Sprintf("tag(%d)", uint16(t))
	}
}

// Format describes interleaved sample data. It is comparable and is used as
// part of the voice pool key, so two voices share a pool only when every
// field matches.
type Format struct {
	Tag           FormatTag
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// FloatFormat returns the 32-bit float format every decoded source is
// converted to.
func FloatFormat(channels, sampleRate int) Format {
	return Format{
		Tag:           IEEEFloat,
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		BitsPerSample: 32,
	}
}

// BlockAlign is the size of one frame in bytes.
func (f Format) BlockAlign() int {
	return int(f.BitsPerSample/8) * int(f.Channels)
}

// AvgBytesPerSec is the byte rate of the format.
func (f Format) AvgBytesPerSec() int {
	return f.BlockAlign() * int(f.SampleRate)
}

// Validate reports whether the format can be played.
func (f Format) Validate() error {
	if f.Channels == 0 || f.SampleRate == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	switch f.Tag {
	case PCM:
		switch f.BitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
	case IEEEFloat:
		if f.BitsPerSample == 32 {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%dbit/%dch/%dHz", f.Tag, f.BitsPerSample, f.Channels, f.SampleRate)
}
