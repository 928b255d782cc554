// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds test doubles shared by the audvox packages: a
// synthetic audio.Source, a scripted audio.Stream and a recording
// backend.Backend.
package audiotest

import (
	"io"
	"math"
	"sync"

	"github.com/ik5/audvox/audio"
)

// Source generates frames from a waveform function. It implements
// audio.Source, audio.Seeker, audio.Lengther and audio.LoopPointer.
type Source struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	frames     int
	pos        int
	waveform   func(frame, channel int) float32

	loopStart, loopEnd uint32
	closed             bool
	opened             int
}

// NewSource returns a source of frames frames.
func NewSource(sampleRate, channels, frames int, waveform func(frame, channel int) float32) *Source {
	return &Source{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		waveform:   waveform,
	}
}

func NewSilentSource(sampleRate, channels, frames int) *Source {
	return NewConstantSource(sampleRate, channels, frames, 0)
}

func NewConstantSource(sampleRate, channels, frames int, value float32) *Source {
	return NewSource(sampleRate, channels, frames, func(int, int) float32 { return value })
}

func NewSineSource(sampleRate, channels, frames int, frequency float64) *Source {
	return NewSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// NewRampSource encodes the frame index into every sample as frame/scale,
// handy for checking positions after seeks.
func NewRampSource(sampleRate, channels, frames int, scale float32) *Source {
	return NewSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		return float32(frame) / scale
	})
}

// WithLoopPoints sets what LoopPoints reports.
func (s *Source) WithLoopPoints(start, end uint32) *Source {
	s.loopStart, s.loopEnd = start, end
	return s
}

// Opener returns an audio.Opener handing out s rewound to the first frame.
// Opens counts the calls.
func (s *Source) Opener() audio.Opener {
	return func() (audio.Source, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.pos = 0
		s.closed = false
		s.opened++
		return s, nil
	}
}

func (s *Source) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Source) SampleRate() int              { return s.sampleRate }
func (s *Source) Channels() int                { return s.channels }
func (s *Source) BufSize() int                 { return 4096 }
func (s *Source) Frames() int64                { return int64(s.frames) }
func (s *Source) LoopPoints() (uint32, uint32) { return s.loopStart, s.loopEnd }

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Source) SeekFrame(frame int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = int(max(0, min(frame, int64(s.frames))))
	return nil
}

// ReadSamples writes whole frames only and reports io.EOF together with the
// last of them.
func (s *Source) ReadSamples(dst []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= s.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/s.channels, s.frames-s.pos)
	for f := range n {
		for ch := range s.channels {
			dst[f*s.channels+ch] = s.waveform(s.pos+f, ch)
		}
	}
	s.pos += n

	if s.pos >= s.frames {
		return n * s.channels, io.EOF
	}
	return n * s.channels, nil
}
