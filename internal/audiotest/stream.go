// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"sync"

	"github.com/ik5/audvox/audio"
)

// Stream is an audio.Stream producing a counting byte pattern, so tests
// can tell which frames ended up in which buffer. Byte i of frame f is
// byte(f).
type Stream struct {
	mu        sync.Mutex
	format    audio.Format
	frames    uint32
	chunk     int
	loopStart uint32

	pos     uint32
	loaded  bool
	loads   int
	unloads int
	seeks   []uint32
	fillErr error
}

// NewStream returns a stream of frames frames in format with chunkBytes
// sized chunks.
func NewStream(format audio.Format, frames uint32, chunkBytes int) *Stream {
	return &Stream{format: format, frames: frames, chunk: chunkBytes}
}

func (s *Stream) Format() audio.Format { return s.format }
func (s *Stream) ChunkSize() int       { return s.chunk }
func (s *Stream) LoopEnd() uint32      { return s.frames }

func (s *Stream) LoopStart() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopStart
}

func (s *Stream) SetLoopStart(frame uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loopStart = frame
}

// FailFills makes every later Fill return err.
func (s *Stream) FailFills(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fillErr = err
}

func (s *Stream) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.loaded = true
		s.pos = 0
		s.loads++
	}
	return nil
}

func (s *Stream) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		s.loaded = false
		s.unloads++
	}
	return nil
}

func (s *Stream) Fill(dst []byte) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return 0, false, audio.ErrStreamNotLoaded
	}
	if s.fillErr != nil {
		return 0, false, s.fillErr
	}

	align := s.format.BlockAlign()
	n := min(uint32(len(dst)/align), s.frames-s.pos)
	for f := range n {
		for i := range align {
			dst[int(f)*align+i] = byte(s.pos + f)
		}
	}
	s.pos += n
	return int(n) * align, s.pos >= s.frames, nil
}

func (s *Stream) Seek(frame uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pos = min(frame, s.frames)
	s.seeks = append(s.seeks, frame)
	return nil
}

func (s *Stream) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Counts reports how often Load and Unload did something.
func (s *Stream) Counts() (loads, unloads int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads, s.unloads
}

// Seeks lists every Seek target in call order.
func (s *Stream) Seeks() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.seeks...)
}

func (s *Stream) Position() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}
