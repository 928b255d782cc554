// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"sync"

	"github.com/ik5/audvox/audio"
	"go.uber.org/zap"
)

type poolKey struct {
	kind   Kind
	format audio.Format
}

// Stats is a snapshot of a VoiceMaker.
type Stats struct {
	Tracked int
	Idle    int
	Pending int
}

// VoiceMaker hands out source voices and takes them back. Voices are created
// lazily and kept for the life of the device, parked in a pool per kind and
// format while nobody holds them.
type VoiceMaker struct {
	dev *Device

	// guarded by dev.mu
	pools   map[poolKey][]*SourceVoice
	tracked map[*SourceVoice]struct{}

	pendingMu sync.Mutex
	pending   []*SourceVoice
}

func newVoiceMaker(d *Device) *VoiceMaker {
	return &VoiceMaker{
		dev:     d,
		pools:   make(map[poolKey][]*SourceVoice),
		tracked: make(map[*SourceVoice]struct{}),
	}
}

func (m *VoiceMaker) ObtainSound(format audio.Format) (*SourceVoice, error) {
	return m.Obtain(KindSound, format)
}

func (m *VoiceMaker) ObtainStatic(format audio.Format) (*SourceVoice, error) {
	return m.Obtain(KindStatic, format)
}

func (m *VoiceMaker) ObtainStream(format audio.Format) (*SourceVoice, error) {
	return m.Obtain(KindStream, format)
}

// Obtain returns an idle voice of kind and format, creating one when the
// pool is empty. The caller owns it until Destroy.
func (m *VoiceMaker) Obtain(kind Kind, format audio.Format) (*SourceVoice, error) {
	if kind > KindStream {
		return nil, fmt.Errorf("%w: %s", ErrWrongKind, kind)
	}

	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()

	if m.dev.closed.Load() {
		return nil, ErrClosed
	}
	// No goroutine ticks an unavailable device.
	if !m.dev.Available() {
		m.recycleLocked()
	}

	key := poolKey{kind: kind, format: format}
	var v *SourceVoice
	if q := m.pools[key]; len(q) > 0 {
		v = q[0]
		q[0] = nil
		m.pools[key] = q[1:]
	} else {
		var err error
		if v, err = m.create(kind, format); err != nil {
			return nil, err
		}
	}

	v.life.Store(lifeActive)
	m.tracked[v] = struct{}{}
	m.observe()
	return v, nil
}

func (m *VoiceMaker) create(kind Kind, format audio.Format) (*SourceVoice, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	id, err := m.dev.backend.CreateSourceVoice(format)
	if err != nil {
		return nil, fmt.Errorf("creating %s voice: %w", kind, err)
	}

	v := &SourceVoice{kind: kind, format: format, maker: m}
	if kind == KindStream {
		v.stream = &streamState{}
	}
	v.init(m.dev, id, v, int(format.Channels), m.dev.master)

	v.mu.Lock()
	v.check("route to master", m.dev.backend.SetOutputVoice(id, m.dev.master.id))
	v.applyMatrixLocked()
	v.mu.Unlock()

	m.dev.metrics.voicesCreated.WithLabelValues(kind.String()).Inc()
	m.dev.logger.Debug("created source voice",
		zap.Stringer("kind", kind),
		zap.Stringer("format", format),
		zap.Uint64("voice", uint64(id)))
	return v, nil
}

// Destroy queues v to be reset and returned to its pool at the end of the
// current or next tick. It is safe to call from inside a tick.
func (m *VoiceMaker) Destroy(v *SourceVoice) {
	if v == nil {
		return
	}
	if v.maker != m {
		m.dev.invariant("destroy of a voice from another device", v)
		return
	}
	if !v.life.CompareAndSwap(lifeActive, lifePending) {
		m.dev.invariant("voice returned to its pool twice", v)
		return
	}

	m.pendingMu.Lock()
	m.pending = append(m.pending, v)
	m.pendingMu.Unlock()
}

// update is called with dev.mu held. Voices asking for recycling during the
// walk are only moved once the walk is over.
func (m *VoiceMaker) update() {
	for v := range m.tracked {
		v.update()
	}
	m.recycleLocked()
}

// recycleLocked moves every pending voice back to its pool. dev.mu must be
// held and no voice lock.
func (m *VoiceMaker) recycleLocked() {
	m.pendingMu.Lock()
	pending := m.pending
	m.pending = nil
	m.pendingMu.Unlock()

	for _, v := range pending {
		m.recycle(v)
	}
	m.observe()
}

// recycle untracks v before resetting it. A voice whose reset panics is
// dropped rather than pooled.
func (m *VoiceMaker) recycle(v *SourceVoice) {
	delete(m.tracked, v)
	defer func() {
		if r := recover(); r != nil {
			m.dev.logger.Error("voice reset failed, voice dropped",
				zap.Uint64("voice", uint64(v.id)),
				zap.Any("panic", r),
				zap.Stack("stack"))
			if debugChecks {
				panic(r)
			}
		}
	}()

	v.reset()
	v.life.Store(lifeIdle)

	key := poolKey{kind: v.kind, format: v.format}
	m.pools[key] = append(m.pools[key], v)
	m.dev.metrics.voicesRecycled.Inc()
}

func (m *VoiceMaker) observe() {
	st := m.statsLocked()
	m.dev.metrics.trackedVoices.Set(float64(st.Tracked))
	m.dev.metrics.idleVoices.Set(float64(st.Idle))
}

func (m *VoiceMaker) Stats() Stats {
	m.dev.mu.Lock()
	defer m.dev.mu.Unlock()
	return m.statsLocked()
}

func (m *VoiceMaker) statsLocked() Stats {
	st := Stats{Tracked: len(m.tracked)}
	for _, q := range m.pools {
		st.Idle += len(q)
	}
	m.pendingMu.Lock()
	st.Pending = len(m.pending)
	m.pendingMu.Unlock()
	return st
}
