// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"testing"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/internal/audiotest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

var (
	stereo = audio.FloatFormat(2, 48000)
	mono   = audio.FloatFormat(1, 44100)
)

// manualConfig disables the maintenance goroutine; tests drive Tick.
func manualConfig() Config {
	cfg := DefaultConfig()
	cfg.UpdateRate = 0
	return cfg
}

// newTestDevice opens a device on a spy backend and closes it when the
// test ends.
func newTestDevice(t *testing.T, opts ...Option) (*Device, *audiotest.Backend) {
	t.Helper()

	spy := audiotest.NewBackend()
	d := Create(spy, append([]Option{WithConfig(manualConfig())}, opts...)...)
	require.True(t, d.Available(), "device: %v", d.Err())
	t.Cleanup(func() { _ = d.Close() })
	return d, spy
}

func observed(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func testTrack(t *testing.T, format audio.Format, frames int) *audio.PCMTrack {
	t.Helper()

	track, err := audio.NewPCMTrack(format, make([]byte, frames*format.BlockAlign()))
	require.NoError(t, err)
	return track
}

// gathered sums the counter and gauge values of the named metric family.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
		return sum
	}
	return 0
}
