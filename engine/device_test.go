// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"testing"
	"time"

	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/internal/audiotest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestCreate_WithoutDevicesIsUnavailable(t *testing.T) {
	t.Parallel()

	logger, logs := observed(zapcore.WarnLevel)
	spy := audiotest.NewBackend(audiotest.WithDevices())
	d := Create(spy, WithLogger(logger))
	t.Cleanup(func() { _ = d.Close() })

	assert.False(t, d.Available())
	require.ErrorIs(t, d.Err(), ErrUnavailable)
	require.ErrorIs(t, d.Err(), backend.ErrNoDevice)
	assert.Equal(t, 1, logs.FilterMessage("no usable audio device, continuing without sound").Len())

	require.NoError(t, d.PlaySound(testTrack(t, stereo, 480), 1, 0, 0))
	assert.Zero(t, spy.CreateCalls())
	assert.True(t, spy.Closed())
}

func TestCreate_UnavailableDeviceStillWorks(t *testing.T) {
	t.Parallel()

	d := Create(audiotest.NewBackend(audiotest.WithDevices()))
	t.Cleanup(func() { _ = d.Close() })

	d.SetMasterVolume(0.5)
	d.SetMasterPan(2)
	assert.Equal(t, float32(0.5), d.MasterVolume())
	assert.Equal(t, float32(1), d.MasterPan())

	v, err := d.Voices().ObtainStatic(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Submit(testTrack(t, stereo, 10)))
	require.NoError(t, v.Play())
	assert.Equal(t, Stopped, v.State())

	music := NewMusicPlayer(d)
	require.NoError(t, music.Play(audiotest.NewStream(stereo, 100, 80), true))
	require.NoError(t, music.Close())
	require.NoError(t, d.Close())
}

func TestCreate_UnavailableDeviceReusesVoices(t *testing.T) {
	t.Parallel()

	d := Create(audiotest.NewBackend(audiotest.WithDevices()))
	t.Cleanup(func() { _ = d.Close() })
	require.False(t, d.Available())

	first, err := d.Voices().ObtainStatic(stereo)
	require.NoError(t, err)
	first.Release()

	for range 1000 {
		v, err := d.Voices().ObtainStatic(stereo)
		require.NoError(t, err)
		require.Same(t, first, v)
		v.Release()
	}
	assert.Equal(t, Stats{Tracked: 1, Pending: 1}, d.Voices().Stats())

	for range 5 {
		music := NewMusicPlayer(d)
		require.NoError(t, music.Play(audiotest.NewStream(stereo, 100, 80), true))
		require.NoError(t, music.Close())
	}
	assert.Equal(t, Stats{Tracked: 1, Idle: 1, Pending: 1}, d.Voices().Stats())

	v, err := d.Voices().ObtainStatic(stereo)
	require.NoError(t, err)
	assert.Same(t, first, v)
	assert.Equal(t, Stats{Tracked: 1, Idle: 1}, d.Voices().Stats())
}

func TestCreate_MasteringFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	spy := audiotest.NewBackend(audiotest.WithMasteringError())
	d := Create(spy)
	t.Cleanup(func() { _ = d.Close() })

	assert.False(t, d.Available())
	require.ErrorIs(t, d.Err(), audiotest.ErrInjected)
	assert.Equal(t, 1, spy.CreateCalls())

	require.NoError(t, d.PlaySound(testTrack(t, stereo, 10), 1, 0, 0))
	assert.Equal(t, 1, spy.CreateCalls())
}

func TestCreate_PicksDevice(t *testing.T) {
	t.Parallel()

	devices := []backend.DeviceDetails{
		{Name: "Speakers", Role: backend.RoleConsole, Channels: 2, SampleRate: 44100},
		{Name: "USB Headset", Role: backend.RoleGame, Channels: 1, SampleRate: 16000},
	}

	tests := []struct {
		name   string
		device string
		want   string
		ok     bool
	}{
		{"game role by default", "", "USB Headset", true},
		{"by name", "speak", "Speakers", true},
		{"no match", "hdmi", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := manualConfig()
			cfg.Device = tt.device
			d := Create(audiotest.NewBackend(audiotest.WithDevices(devices...)), WithConfig(cfg))
			t.Cleanup(func() { _ = d.Close() })

			require.Equal(t, tt.ok, d.Available())
			if tt.ok {
				assert.Equal(t, tt.want, d.Details().Name)
				assert.Equal(t, int(d.Details().Channels), d.Master().Channels())
			}
		})
	}
}

func TestDevice_PlaySound(t *testing.T) {
	t.Parallel()

	d, spy := newTestDevice(t)
	track := testTrack(t, stereo, 480)

	require.NoError(t, d.PlaySound(track, 0.5, 1, -1))
	require.Equal(t, 1, spy.Calls("CreateSourceVoice"))
	assert.Equal(t, Stats{Tracked: 1}, d.Voices().Stats())

	var v *SourceVoice
	d.mu.Lock()
	for tracked := range d.maker.tracked {
		v = tracked
	}
	d.mu.Unlock()
	require.NotNil(t, v)

	rec, _ := spy.Voice(v.ID())
	assert.True(t, rec.Playing)
	assert.Equal(t, float32(0.5), rec.Volume)
	assert.InDelta(t, 2, rec.Ratio, 1e-6)
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 0, 0}, rec.Matrix, 1e-6)

	spy.DrainAll(v.ID())
	d.Tick()
	assert.Equal(t, Stats{Idle: 1}, d.Voices().Stats())

	require.NoError(t, d.PlaySound(track, 1, 0, 0))
	assert.Equal(t, 1, spy.Calls("CreateSourceVoice"))
}

func TestDevice_MasterBus(t *testing.T) {
	t.Parallel()

	cfg := manualConfig()
	cfg.MasterVolume = 0.3
	spy := audiotest.NewBackend()
	d := Create(spy, WithConfig(cfg))
	t.Cleanup(func() { _ = d.Close() })

	rec, ok := spy.Voice(d.Master().ID())
	require.True(t, ok)
	assert.Equal(t, "submix", rec.Kind)
	assert.Equal(t, uint32(masterStage), rec.Stage)
	assert.Zero(t, rec.Output)
	assert.Equal(t, float32(0.3), rec.Volume)

	d.SetMasterPitch(0.5)
	d.SetMasterPan(-0.5)
	assert.Equal(t, float32(0.5), d.MasterPitch())
	assert.Equal(t, float32(-0.5), d.MasterPan())
}

func TestDevice_BackgroundLoopRecyclesSounds(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.UpdateRate = 1000
	spy := audiotest.NewBackend()
	d := Create(spy, WithConfig(cfg))
	defer d.Close()

	v, err := d.Voices().ObtainSound(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Submit(testTrack(t, stereo, 480)))
	require.NoError(t, v.Play())

	spy.DrainAll(v.ID())
	require.Eventually(t, func() bool {
		return d.Voices().Stats().Idle == 1
	}, time.Second, time.Millisecond)

	last, _ := d.LastTick()
	assert.False(t, last.IsZero())
}

func TestDevice_WakeTicksEarly(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.UpdateRate = 1
	spy := audiotest.NewBackend()
	d := Create(spy, WithConfig(cfg))
	defer d.Close()

	v, err := d.Voices().ObtainSound(stereo)
	require.NoError(t, err)
	require.NoError(t, v.Submit(testTrack(t, stereo, 480)))
	require.NoError(t, v.Play())
	spy.DrainAll(v.ID())

	d.Wake()
	require.Eventually(t, func() bool {
		return d.Voices().Stats().Idle == 1
	}, 500*time.Millisecond, time.Millisecond)
}

func TestDevice_Close(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.UpdateRate = 500
	spy := audiotest.NewBackend()
	d := Create(spy, WithConfig(cfg))

	_, err := d.NewSubmixVoice(2, 0, 1)
	require.NoError(t, err)
	for _, kind := range []Kind{KindSound, KindStatic, KindStream} {
		_, err := d.Voices().Obtain(kind, stereo)
		require.NoError(t, err)
	}
	idle, err := d.Voices().ObtainStatic(mono)
	require.NoError(t, err)
	idle.Release()
	d.Tick()

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	assert.Zero(t, spy.Live())
	assert.True(t, spy.Closed())
	assert.Zero(t, d.arena.len())
	assert.Equal(t, 1, spy.Calls("Close"))

	d.Tick()
	_, err = d.NewSubmixVoice(2, 0, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDevice_TickTracksElapsedTime(t *testing.T) {
	t.Parallel()

	d, _ := newTestDevice(t)

	d.Tick()
	first, _ := d.LastTick()
	time.Sleep(2 * time.Millisecond)
	d.Tick()
	second, elapsed := d.LastTick()

	assert.True(t, second.After(first))
	assert.GreaterOrEqual(t, elapsed, 2*time.Millisecond)
}

func TestDevice_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	d, _ := newTestDevice(t, WithMetrics(reg))

	a, err := d.Voices().ObtainSound(stereo)
	require.NoError(t, err)
	_, err = d.Voices().ObtainStatic(stereo)
	require.NoError(t, err)
	a.Release()
	d.Tick()

	assert.Equal(t, float64(2), gathered(t, reg, "audvox_voices_created_total"))
	assert.Equal(t, float64(1), gathered(t, reg, "audvox_tracked_voices"))
	assert.Equal(t, float64(1), gathered(t, reg, "audvox_idle_voices"))
	assert.Equal(t, float64(1), gathered(t, reg, "audvox_voices_recycled_total"))

	logger, logs := observed(zapcore.WarnLevel)
	newTestDevice(t, WithMetrics(reg), WithLogger(logger))
	assert.Equal(t, 1, logs.FilterMessage("engine metrics not registered").Len())
}

func TestDevice_InvalidConfigFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	logger, logs := observed(zapcore.WarnLevel)
	cfg := manualConfig()
	cfg.StreamChunkBytes = -1
	d := Create(audiotest.NewBackend(), WithConfig(cfg), WithLogger(logger))
	t.Cleanup(func() { _ = d.Close() })

	assert.Equal(t, DefaultConfig(), d.Config())
	assert.Equal(t, 1, logs.FilterMessage("invalid engine configuration, using defaults").Len())
}
