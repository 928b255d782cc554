// SPDX-License-Identifier: EPL-2.0

//go:build !audiodebug

package engine

import (
	"sync/atomic"
	"testing"

	"github.com/ik5/audvox/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestVoiceMaker_DoubleDestroyIsLoggedAndIgnored(t *testing.T) {
	t.Parallel()

	logger, logs := observed(zapcore.ErrorLevel)
	d, _ := newTestDevice(t, WithLogger(logger))
	m := d.Voices()

	v, err := m.ObtainStatic(stereo)
	require.NoError(t, err)
	m.Destroy(v)
	m.Destroy(v)
	d.Tick()
	m.Destroy(v)

	assert.Equal(t, 2, logs.FilterMessage("voice returned to its pool twice").Len())
	assert.Equal(t, Stats{Idle: 1}, m.Stats())
}

func TestVoiceMaker_ForeignVoiceIsRejected(t *testing.T) {
	t.Parallel()

	logger, logs := observed(zapcore.ErrorLevel)
	d, _ := newTestDevice(t, WithLogger(logger))
	other, _ := newTestDevice(t)

	v, err := other.Voices().ObtainStatic(stereo)
	require.NoError(t, err)
	d.Voices().Destroy(v)

	assert.Equal(t, 1, logs.FilterMessage("destroy of a voice from another device").Len())
	assert.Equal(t, Stats{Tracked: 1}, other.Voices().Stats())
}

// panickyStream panics the first time it is unloaded.
type panickyStream struct {
	*audiotest.Stream
	panicked atomic.Bool
}

func (s *panickyStream) Unload() error {
	if s.panicked.CompareAndSwap(false, true) {
		panic("unload exploded")
	}
	return s.Stream.Unload()
}

func TestVoiceMaker_ResetPanicDropsOnlyThatVoice(t *testing.T) {
	t.Parallel()

	logger, logs := observed(zapcore.ErrorLevel)
	d, _ := newTestDevice(t, WithLogger(logger))
	m := d.Voices()

	broken, err := m.ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, broken.Load(&panickyStream{Stream: audiotest.NewStream(stereo, 100, 80)}))

	healthy, err := m.ObtainStatic(stereo)
	require.NoError(t, err)

	broken.Release()
	healthy.Release()
	d.Tick()

	assert.Equal(t, 1, logs.FilterMessage("voice reset failed, voice dropped").Len())
	assert.Zero(t, logs.FilterMessage("panic in audio maintenance").Len())
	assert.Equal(t, Stats{Idle: 1}, m.Stats())

	v, err := m.ObtainStatic(stereo)
	require.NoError(t, err)
	assert.Same(t, healthy, v)
}
