// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/ik5/audvox/audio"
	"go.uber.org/zap"
)

// Kind selects how a source voice refills and when it is recycled.
type Kind uint8

const (
	// KindSound plays submitted buffers once and returns itself to the pool
	// when they have drained.
	KindSound Kind = iota
	// KindStatic is never recycled automatically; the holder calls Release.
	KindStatic
	// KindStream decodes ahead from a bound audio.Stream.
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindSound:
		return "sound"
	case KindStatic:
		return "static"
	case KindStream:
		return "stream"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type State uint8

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// pool membership of a source voice
const (
	lifeIdle int32 = iota
	lifeActive
	lifePending
)

// SourceVoice plays PCM buffers of one fixed format. Instances come from a
// VoiceMaker and belong to a single holder until they are handed back.
type SourceVoice struct {
	Voice

	kind   Kind
	format audio.Format
	maker  *VoiceMaker
	life   atomic.Int32

	state     State
	initiated bool
	looping   bool

	// only set for KindStream
	stream *streamState
}

func (v *SourceVoice) Kind() Kind           { return v.kind }
func (v *SourceVoice) Format() audio.Format { return v.format }

// Initiated reports whether Play was called since the voice was last reset.
func (v *SourceVoice) Initiated() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initiated
}

func (v *SourceVoice) Looping() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.looping
}

// SetLooping applies to tracks submitted afterwards and to a bound stream
// when it next reaches its end.
func (v *SourceVoice) SetLooping(loop bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.looping = loop
}

// SetOutputVoice routes the voice into out, nil meaning the master bus.
func (v *SourceVoice) SetOutputVoice(out *SubmixVoice) error {
	if out == nil {
		out = v.dev.master
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setOutputLocked(out)
}

func (v *SourceVoice) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == Playing {
		return nil
	}
	v.initiated = true
	if err := v.dev.backend.Start(v.id); err != nil {
		return fmt.Errorf("starting voice: %w", err)
	}
	v.state = Playing
	return nil
}

// Pause halts a playing voice and keeps its queued buffers.
func (v *SourceVoice) Pause() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != Playing {
		return nil
	}
	if err := v.dev.backend.Stop(v.id); err != nil {
		return fmt.Errorf("pausing voice: %w", err)
	}
	v.state = Paused
	return nil
}

// Stop halts playback and drops every queued buffer.
func (v *SourceVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopLocked()
}

func (v *SourceVoice) stopLocked() error {
	v.state = Stopped
	if err := v.dev.backend.Stop(v.id); err != nil {
		return fmt.Errorf("stopping voice: %w", err)
	}
	if err := v.dev.backend.FlushBuffers(v.id); err != nil {
		return fmt.Errorf("flushing voice: %w", err)
	}
	return nil
}

// State reports the play state. A voice whose queue has drained is stopped
// as a side effect, except a stream that is still waiting for decoded data.
func (v *SourceVoice) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stateLocked()
}

func (v *SourceVoice) stateLocked() State {
	if v.state == Stopped || v.queuedLocked() > 0 || v.starvingLocked() {
		return v.state
	}
	v.check("stop drained voice", v.stopLocked())
	return v.state
}

// BuffersQueued asks the backend how many buffers are still pending.
func (v *SourceVoice) BuffersQueued() uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.queuedLocked()
}

func (v *SourceVoice) queuedLocked() uint32 {
	st, err := v.dev.backend.State(v.id)
	if !v.check("query state", err) {
		return 0
	}
	return st.BuffersQueued
}

// Submit queues a whole track, looping it forever when the voice loops.
func (v *SourceVoice) Submit(track audio.Track) error {
	if track.Format() != v.format {
		return fmt.Errorf("%w: track %s, voice %s", ErrFormatMismatch, track.Format(), v.format)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.submitLocked(track.Buffer(v.looping))
}

// SubmitBuffer queues a raw buffer. The data must stay untouched until it
// has played.
func (v *SourceVoice) SubmitBuffer(buf audio.Buffer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.submitLocked(buf)
}

func (v *SourceVoice) submitLocked(buf audio.Buffer) error {
	if v.kind == KindStream {
		return fmt.Errorf("%w: stream voices queue their own buffers", ErrWrongKind)
	}
	if err := v.dev.backend.SubmitBuffer(v.id, buf); err != nil {
		return fmt.Errorf("submitting buffer: %w", err)
	}
	return nil
}

// Release hands the voice back to its pool. The voice must not be used
// afterwards.
func (v *SourceVoice) Release() {
	v.maker.Destroy(v)
}

// update runs once per maintenance tick while the voice is tracked.
func (v *SourceVoice) update() {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.kind {
	case KindSound:
		if v.initiated && v.life.Load() == lifeActive && v.queuedLocked() == 0 {
			v.check("stop finished sound", v.stopLocked())
			v.maker.Destroy(v)
		}
	case KindStatic:
	case KindStream:
		v.refillLocked()
	}
}

// reset prepares a recycled voice for its next holder.
func (v *SourceVoice) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.stream != nil {
		v.unloadLocked()
	}
	v.check("stop recycled voice", v.stopLocked())
	v.initiated = false
	v.looping = false
	v.resetLocked()
}

func (v *SourceVoice) release() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.released {
		return
	}
	if v.stream != nil && v.stream.source != nil {
		if err := v.stream.source.Unload(); err != nil {
			v.dev.logger.Warn("unloading stream on release", zap.Error(err))
		}
		v.stream.source = nil
	}
	v.releaseLocked()
}
