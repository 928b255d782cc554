// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"testing"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/internal/audiotest"
	"github.com/ik5/audvox/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// frameTags returns the first byte of every frame submitted to id, which
// audiotest.Stream sets to the frame index.
func frameTags(spy *audiotest.Backend, id backend.VoiceID, align int) []byte {
	var tags []byte
	for _, chunk := range spy.Data(id) {
		for i := 0; i < len(chunk); i += align {
			tags = append(tags, chunk[i])
		}
	}
	return tags
}

func TestStreamVoice_LoadPrefillsAllBuffers(t *testing.T) {
	t.Parallel()

	d, spy := newTestDevice(t)
	s := audiotest.NewStream(stereo, 100, 80)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Load(s))

	assert.Equal(t, uint32(BufferCount), v.BuffersQueued())
	assert.Same(t, s, v.Stream())
	assert.True(t, s.Loaded())

	rec, _ := spy.Voice(v.ID())
	assert.False(t, rec.Playing)
}

func TestStreamVoice_NoGapUntilEnd(t *testing.T) {
	t.Parallel()

	d, spy := newTestDevice(t)
	s := audiotest.NewStream(stereo, 100, 80)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Load(s))
	require.NoError(t, v.Play())

	// 10 chunks in total, 3 of them queued by Load
	for range 7 {
		spy.Drain(v.ID(), 1)
		d.Tick()
		require.Equal(t, uint32(BufferCount), v.BuffersQueued())
		require.Equal(t, Playing, v.State())
	}

	want := make([]byte, 100)
	for i := range want {
		want[i] = byte(i)
	}
	assert.Equal(t, want, frameTags(spy, v.ID(), stereo.BlockAlign()))

	spy.Drain(v.ID(), 2)
	d.Tick()
	assert.Equal(t, Playing, v.State())

	spy.DrainAll(v.ID())
	d.Tick()
	assert.Equal(t, Stopped, v.State())
}

func TestStreamVoice_LoopsFromLoopStart(t *testing.T) {
	t.Parallel()

	d, spy := newTestDevice(t)
	s := audiotest.NewStream(stereo, 25, 80)
	s.SetLoopStart(5)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	v.SetLooping(true)
	require.NoError(t, v.Load(s))
	require.NoError(t, v.Play())

	for range 20 {
		spy.Drain(v.ID(), 1)
		d.Tick()
		require.Equal(t, uint32(BufferCount), v.BuffersQueued())
	}
	assert.Equal(t, Playing, v.State())

	var want []byte
	for f := range 25 {
		want = append(want, byte(f))
	}
	got := frameTags(spy, v.ID(), stereo.BlockAlign())
	for len(want) < len(got) {
		for f := 5; f < 25; f++ {
			want = append(want, byte(f))
		}
	}
	assert.Equal(t, want[:len(got)], got)

	for _, target := range s.Seeks() {
		assert.Equal(t, uint32(5), target)
	}
	assert.NotEmpty(t, s.Seeks())
}

func TestStreamVoice_LoopingSourceStream(t *testing.T) {
	t.Parallel()

	d, spy := newTestDevice(t)
	src := audiotest.NewRampSource(44100, 1, 50, 100)
	s, err := audio.NewSourceStream(src.Opener(), audio.WithChunkSize(64))
	require.NoError(t, err)

	v, err := d.Voices().ObtainStream(s.Format())
	require.NoError(t, err)
	v.SetLooping(true)
	require.NoError(t, v.Load(s))
	require.NoError(t, v.Play())

	for range 6 {
		spy.Drain(v.ID(), 1)
		d.Tick()
	}

	var got []float32
	for _, chunk := range spy.Data(v.ID()) {
		samples := make([]float32, len(chunk)/4)
		utils.Float32s(samples, chunk)
		got = append(got, samples...)
	}
	require.Greater(t, len(got), 50)
	for i, sample := range got {
		assert.InDelta(t, float32(i%50)/100, sample, 1e-6, "sample %d", i)
	}
}

func TestStreamVoice_UnderrunIsCountedAndRefilled(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	d, spy := newTestDevice(t, WithMetrics(reg))
	s := audiotest.NewStream(stereo, 1000, 80)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Load(s))
	require.NoError(t, v.Play())

	spy.DrainAll(v.ID())
	assert.Equal(t, Playing, v.State())

	d.Tick()
	assert.Equal(t, uint32(BufferCount), v.BuffersQueued())
	assert.Equal(t, float64(1), gathered(t, reg, "audvox_stream_underruns_total"))
}

func TestStreamVoice_EmptyLoopRegionStops(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	logger, logs := observed(zapcore.WarnLevel)
	d, spy := newTestDevice(t, WithMetrics(reg), WithLogger(logger))
	s := audiotest.NewStream(stereo, 25, 80)
	s.SetLoopStart(25)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	v.SetLooping(true)
	require.NoError(t, v.Load(s))
	require.NoError(t, v.Play())

	spy.DrainAll(v.ID())
	for range 10 {
		d.Tick()
	}

	assert.Equal(t, Stopped, v.State())
	assert.Zero(t, v.BuffersQueued())
	assert.LessOrEqual(t, gathered(t, reg, "audvox_stream_underruns_total"), float64(1))
	assert.Equal(t, 1, logs.FilterMessage("looping stream has no data after its loop start").Len())
}

func TestStreamVoice_FillErrorStopsVoice(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	logger, logs := observed(zapcore.ErrorLevel)
	d, spy := newTestDevice(t, WithMetrics(reg), WithLogger(logger))
	s := audiotest.NewStream(stereo, 1000, 80)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Load(s))
	require.NoError(t, v.Play())

	s.FailFills(audio.ErrInvalidSourceData)
	spy.Drain(v.ID(), 1)
	d.Tick()

	assert.Equal(t, Stopped, v.State())
	assert.Equal(t, float64(1), gathered(t, reg, "audvox_stream_fill_errors_total"))
	assert.Equal(t, 1, logs.FilterMessage("stream fill failed, stopping voice").Len())
}

func TestStreamVoice_PausedIsNotRefilled(t *testing.T) {
	t.Parallel()

	d, spy := newTestDevice(t)
	s := audiotest.NewStream(stereo, 1000, 80)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Load(s))
	require.NoError(t, v.Play())
	require.NoError(t, v.Pause())

	spy.Drain(v.ID(), 1)
	d.Tick()
	assert.Equal(t, uint32(BufferCount-1), v.BuffersQueued())
	assert.Equal(t, Paused, v.State())
}

func TestStreamVoice_LoadReplacesStream(t *testing.T) {
	t.Parallel()

	d, _ := newTestDevice(t)
	first := audiotest.NewStream(stereo, 100, 80)
	second := audiotest.NewStream(stereo, 100, 160)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Load(first))
	require.NoError(t, v.Load(second))

	loads, unloads := first.Counts()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, unloads)
	assert.Same(t, second, v.Stream())
	assert.Equal(t, uint32(BufferCount), v.BuffersQueued())
}

func TestStreamVoice_LoadErrors(t *testing.T) {
	t.Parallel()

	d, _ := newTestDevice(t)
	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)

	assert.ErrorIs(t, v.Load(nil), ErrNilStream)
	assert.ErrorIs(t, v.Load(audiotest.NewStream(mono, 10, 40)), ErrFormatMismatch)
	assert.ErrorIs(t, v.Submit(testTrack(t, stereo, 10)), ErrWrongKind)

	broken := audiotest.NewStream(stereo, 10, 80)
	broken.FailFills(errors.New("truncated file"))
	assert.Error(t, v.Load(broken))
	assert.False(t, broken.Loaded())
	assert.Nil(t, v.Stream())

	static, err := d.Voices().ObtainStatic(stereo)
	require.NoError(t, err)
	assert.ErrorIs(t, static.Load(audiotest.NewStream(stereo, 10, 80)), ErrWrongKind)
	assert.ErrorIs(t, static.Unload(), ErrWrongKind)
}

func TestStreamVoice_RecycleUnloads(t *testing.T) {
	t.Parallel()

	d, _ := newTestDevice(t)
	s := audiotest.NewStream(stereo, 100, 80)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Load(s))
	require.NoError(t, v.Play())

	v.Release()
	d.Tick()

	assert.False(t, s.Loaded())
	assert.Nil(t, v.Stream())
	assert.Zero(t, v.BuffersQueued())
}

func TestStreamVoice_CloseUnloadsActiveStream(t *testing.T) {
	t.Parallel()

	spy := audiotest.NewBackend()
	d := Create(spy, WithConfig(manualConfig()))
	s := audiotest.NewStream(stereo, 100, 80)

	v, err := d.Voices().ObtainStream(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Load(s))

	require.NoError(t, d.Close())
	assert.False(t, s.Loaded())
	assert.Zero(t, spy.Live())
	assert.True(t, spy.Closed())
}
