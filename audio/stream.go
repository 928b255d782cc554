// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audvox/utils"
)

// DefaultChunkSize is the preferred size in bytes of one streamed buffer.
const DefaultChunkSize = 32768

// Stream is sample data decoded a chunk at a time.
type Stream interface {
	Format() Format
	// LoopStart and LoopEnd are frame positions.
	LoopStart() uint32
	LoopEnd() uint32
	// ChunkSize is the preferred size of one buffer in bytes.
	ChunkSize() int
	Load() error
	Unload() error
	// Fill writes up to len(dst) bytes and reports whether the end of the
	// data was reached while doing so.
	Fill(dst []byte) (n int, ended bool, err error)
	// Seek moves to frame.
	Seek(frame uint32) error
}

// StreamOption configures a SourceStream.
type StreamOption func(*SourceStream)

// WithChunkSize overrides DefaultChunkSize. The size is rounded down to a
// whole number of frames.
func WithChunkSize(bytes int) StreamOption {
	return func(s *SourceStream) {
		if bytes > 0 {
			s.chunk = bytes
		}
	}
}

// WithLoop overrides loop points read from the source.
func WithLoop(start, end uint32) StreamOption {
	return func(s *SourceStream) {
		s.loopStart = start
		s.loopEnd = end
		s.loopSet = true
	}
}

// SourceStream adapts a re-openable Source to Stream, producing 32-bit
// float chunks. It is not safe for concurrent use; the voice playing it
// serializes access.
type SourceStream struct {
	open   Opener
	format Format
	chunk  int
	frames int64

	loopStart uint32
	loopEnd   uint32
	loopSet   bool

	src     Source
	pos     int64
	scratch []float32
}

// NewSourceStream opens the source once to learn its format, length and
// loop points, then closes it again until Load.
func NewSourceStream(open Opener, opts ...StreamOption) (*SourceStream, error) {
	s := &SourceStream{
		open:   open,
		chunk:  DefaultChunkSize,
		frames: -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	src, err := open()
	if err != nil {
		return nil, wrapSourceErr(err)
	}
	defer src.Close()

	if src.Channels() <= 0 || src.SampleRate() <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidSourceData, src.Channels(), src.SampleRate())
	}
	s.format = FloatFormat(src.Channels(), src.SampleRate())

	if l, ok := src.(Lengther); ok {
		s.frames = l.Frames()
	}
	if !s.loopSet {
		if lp, ok := src.(LoopPointer); ok {
			s.loopStart, s.loopEnd = lp.LoopPoints()
		}
	}
	if s.loopEnd == 0 && s.frames > 0 {
		s.loopEnd = uint32(s.frames)
	}

	align := s.format.BlockAlign()
	s.chunk -= s.chunk % align
	if s.chunk == 0 {
		s.chunk = align
	}

	return s, nil
}

func (s *SourceStream) Format() Format    { return s.format }
func (s *SourceStream) LoopStart() uint32 { return s.loopStart }
func (s *SourceStream) LoopEnd() uint32   { return s.loopEnd }
func (s *SourceStream) ChunkSize() int    { return s.chunk }
func (s *SourceStream) Loaded() bool      { return s.src != nil }

// Position is the frame the next Fill starts at.
func (s *SourceStream) Position() int64 { return s.pos }

// Frames is the length in frames, or -1 when the source does not know it.
func (s *SourceStream) Frames() int64 { return s.frames }

// Load opens the source. Loading a loaded stream is a no-op.
func (s *SourceStream) Load() error {
	if s.src != nil {
		return nil
	}
	src, err := s.open()
	if err != nil {
		return wrapSourceErr(err)
	}
	s.src = src
	s.pos = 0
	return nil
}

// Unload closes the source. Unloading twice is a no-op.
func (s *SourceStream) Unload() error {
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	s.pos = 0
	return err
}

func (s *SourceStream) Fill(dst []byte) (int, bool, error) {
	if s.src == nil {
		return 0, false, ErrStreamNotLoaded
	}

	channels := int(s.format.Channels)
	want := len(dst) / 4
	want -= want % channels
	if want == 0 {
		return 0, false, ErrInvalidDstSize
	}
	if cap(s.scratch) < want {
		s.scratch = make([]float32, want)
	}
	buf := s.scratch[:want]

	got := 0
	ended := false
	for got < want {
		n, err := s.src.ReadSamples(buf[got:])
		got += n
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			ended = true
			break
		}
		if err != nil {
			return 0, false, wrapSourceErr(err)
		}
	}

	got -= got % channels
	s.pos += int64(got / channels)

	return utils.PutFloat32s(dst, buf[:got]), ended, nil
}

func (s *SourceStream) Seek(frame uint32) error {
	if s.src == nil {
		return ErrStreamNotLoaded
	}

	if sk, ok := s.src.(Seeker); ok {
		err := sk.SeekFrame(int64(frame))
		if err == nil {
			s.pos = int64(frame)
			return nil
		}
		if !errors.Is(err, ErrSeekUnsupported) {
			return wrapSourceErr(err)
		}
	}

	if int64(frame) < s.pos {
		if err := s.Unload(); err != nil {
			return fmt.Errorf("reopen for seek: %w", err)
		}
		if err := s.Load(); err != nil {
			return err
		}
	}

	return s.skip(int64(frame) - s.pos)
}

// skip decodes and discards frames.
func (s *SourceStream) skip(frames int64) error {
	channels := int64(s.format.Channels)
	if cap(s.scratch) < 4096 {
		s.scratch = make([]float32, 4096)
	}
	buf := s.scratch[:cap(s.scratch)-cap(s.scratch)%int(channels)]

	for frames > 0 {
		want := min(int64(len(buf)), frames*channels)
		n, err := s.src.ReadSamples(buf[:want])
		s.pos += int64(n) / channels
		frames -= int64(n) / channels
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			return nil
		}
		if err != nil {
			return wrapSourceErr(err)
		}
	}
	return nil
}

func wrapSourceErr(err error) error {
	if errors.Is(err, ErrInvalidSourceData) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidSourceData, err)
}
