// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/ik5/audvox/audio"
	"go.uber.org/zap"
)

// BufferCount is how many decoded chunks a stream voice keeps queued ahead
// of playback.
const BufferCount = 3

type streamState struct {
	source  audio.Stream
	buffers [BufferCount][]byte
	next    int
	// ended is set once the source ran out while not looping, or looped
	// onto an empty region; a drained queue is then the real end instead
	// of an underrun.
	ended bool
}

// Load binds s to a stream voice, replacing any stream already bound, and
// queues the first chunks so Play starts on data.
func (v *SourceVoice) Load(s audio.Stream) error {
	if v.kind != KindStream {
		return fmt.Errorf("%w: %s voice cannot load a stream", ErrWrongKind, v.kind)
	}
	if s == nil {
		return ErrNilStream
	}
	if s.Format() != v.format {
		return fmt.Errorf("%w: stream %s, voice %s", ErrFormatMismatch, s.Format(), v.format)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	st := v.stream
	if st.source != nil {
		v.unloadLocked()
	}
	if err := s.Load(); err != nil {
		return fmt.Errorf("loading stream: %w", err)
	}

	align := v.format.BlockAlign()
	size := max(align, s.ChunkSize()-s.ChunkSize()%align)
	for i := range st.buffers {
		if cap(st.buffers[i]) < size {
			st.buffers[i] = make([]byte, size)
		}
		st.buffers[i] = st.buffers[i][:size]
	}
	st.source = s
	st.next = 0
	st.ended = false

	if err := v.fillLocked(); err != nil {
		v.unloadLocked()
		return err
	}
	return nil
}

// Unload stops the voice and detaches its stream. The chunk buffers are kept
// for the next Load.
func (v *SourceVoice) Unload() error {
	if v.kind != KindStream {
		return fmt.Errorf("%w: %s voice has no stream", ErrWrongKind, v.kind)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unloadLocked()
}

func (v *SourceVoice) unloadLocked() error {
	st := v.stream
	if st.source == nil {
		return nil
	}
	err := v.stopLocked()
	if uerr := st.source.Unload(); uerr != nil {
		err = errors.Join(err, fmt.Errorf("unloading stream: %w", uerr))
	}
	st.source = nil
	st.ended = false
	return err
}

// Stream returns the bound stream, or nil.
func (v *SourceVoice) Stream() audio.Stream {
	if v.stream == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stream.source
}

// starvingLocked reports a playing stream whose queue ran dry before the
// source ended.
func (v *SourceVoice) starvingLocked() bool {
	st := v.stream
	return st != nil && st.source != nil && !st.ended && v.state == Playing
}

func (v *SourceVoice) refillLocked() {
	st := v.stream
	if st.source == nil || v.stateLocked() != Playing {
		return
	}

	if v.queuedLocked() == 0 {
		v.dev.metrics.streamUnderruns.Inc()
		v.dev.logger.Debug("stream underrun", zap.Uint64("voice", uint64(v.id)))
	}

	if err := v.fillLocked(); err != nil {
		v.dev.metrics.streamFillErrors.Inc()
		v.dev.logger.Error("stream fill failed, stopping voice",
			zap.Uint64("voice", uint64(v.id)),
			zap.Error(err))
		v.check("stop failed stream", v.stopLocked())
	}
}

// fillLocked tops the backend queue up to BufferCount chunks. Slots are used
// round robin and a slot only advances once it has been submitted, so a
// queued chunk is never overwritten.
func (v *SourceVoice) fillLocked() error {
	st := v.stream
	align := uint32(v.format.BlockAlign())
	needed := BufferCount - int(min(v.queuedLocked(), BufferCount))

	filled, empty, exhausted := 0, 0, false
	for filled < needed && empty < 2 {
		buf := st.buffers[st.next]
		n, ended, err := st.source.Fill(buf)
		if err != nil {
			return fmt.Errorf("filling stream: %w", err)
		}

		if n > 0 {
			err := v.dev.backend.SubmitBuffer(v.id, audio.Buffer{
				Data:       buf[:n],
				PlayLength: uint32(n) / align,
			})
			if err != nil {
				return fmt.Errorf("submitting stream chunk: %w", err)
			}
			st.next = (st.next + 1) % BufferCount
			filled++
			empty = 0
		} else {
			empty++
		}
		exhausted = ended

		if !ended {
			continue
		}
		if !v.looping {
			st.ended = true
			return nil
		}
		if err := st.source.Seek(st.source.LoopStart()); err != nil {
			return fmt.Errorf("seeking to loop start: %w", err)
		}
	}

	// Two empty reads in a row with a seek between them: the loop region
	// holds no data.
	if empty >= 2 && exhausted && v.looping && !st.ended {
		st.ended = true
		v.dev.logger.Warn("looping stream has no data after its loop start",
			zap.Uint64("voice", uint64(v.id)),
			zap.Uint32("loop_start", st.source.LoopStart()))
	}
	return nil
}
