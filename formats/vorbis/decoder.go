// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ik5/audvox/audio"
	"github.com/jfreymuth/oggvorbis"
	"github.com/jfreymuth/vorbis"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
	Length() int64
	SetPosition(pos int64) error
	CommentHeader() vorbis.CommentHeader
}

type source struct {
	dec        oggReader
	seekable   bool
	sampleRate int
	channels   int
	loopStart  uint32
	loopEnd    uint32
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 }

// Frames is -1 when the reader is not seekable and the length is unknown.
func (s *source) Frames() int64 {
	if l := s.dec.Length(); l > 0 {
		return l
	}
	return -1
}

func (s *source) LoopPoints() (uint32, uint32) { return s.loopStart, s.loopEnd }

func (s *source) ReadSamples(dst []float32) (int, error) {
	// oggvorbis counts interleaved values, keep them whole frames
	n := len(dst) - len(dst)%s.channels
	if n == 0 {
		return 0, nil
	}

	read, err := s.dec.Read(dst[:n])
	if err != nil && !errors.Is(err, io.EOF) {
		return read, fmt.Errorf("%w", err)
	}
	if read == 0 {
		return 0, io.EOF
	}
	return read, err
}

func (s *source) SeekFrame(frame int64) error {
	if !s.seekable {
		return audio.ErrSeekUnsupported
	}
	if err := s.dec.SetPosition(frame); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	_, seekable := r.(io.Seeker)
	return newSource(dec, seekable), nil
}

func newSource(dec oggReader, seekable bool) *source {
	start, end := LoopPoints(dec.CommentHeader().Comments)
	return &source{
		dec:        dec,
		seekable:   seekable,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
		loopStart:  start,
		loopEnd:    end,
	}
}

// LoopPoints reads the LOOPSTART and LOOPEND comments used by game audio
// tools. Missing or malformed values are zero.
func LoopPoints(comments []string) (start, end uint32) {
	for _, c := range comments {
		key, value, ok := strings.Cut(c, "=")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
		if err != nil {
			continue
		}
		switch strings.ToUpper(key) {
		case "LOOPSTART":
			start = uint32(v)
		case "LOOPEND":
			end = uint32(v)
		}
	}
	return start, end
}
