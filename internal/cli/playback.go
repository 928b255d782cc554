// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend/malgosink"
	"github.com/ik5/audvox/backend/otosink"
	"github.com/ik5/audvox/engine"
)

const pollInterval = 20 * time.Millisecond

// renderer is what both sinks pull frames from.
type renderer interface {
	Render(dst []float32)
}

type sinkConfig struct {
	// Device is empty when the mixer runs on its built-in device.
	Device     string
	SampleRate int
	Channels   int
}

func openSink(kind string, r renderer, cfg sinkConfig, logger *zap.Logger) (io.Closer, error) {
	switch kind {
	case "malgo":
		s, err := malgosink.Open(r, malgosink.Config{
			Device:     cfg.Device,
			SampleRate: uint32(cfg.SampleRate),
			Channels:   uint32(cfg.Channels),
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "oto":
		s, err := otosink.Open(r, otosink.Config{
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
		}, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown sink %q", errUsage, kind)
	}
}

type voiceOptions struct {
	volume   float32
	pitch    float32
	pan      float32
	loop     bool
	stream   bool
	resample bool
}

func addVoiceFlags(cmd *cobra.Command, o *voiceOptions) {
	f := cmd.Flags()
	f.Float32Var(&o.volume, "volume", 1, "voice volume")
	f.Float32Var(&o.pitch, "pitch", 0, "pitch shift in octaves")
	f.Float32Var(&o.pan, "pan", 0, "pan from -1 (left) to 1 (right)")
	f.BoolVar(&o.loop, "loop", false, "repeat until interrupted")
	f.BoolVar(&o.stream, "stream", false, "decode while playing instead of loading the whole file")
	f.BoolVar(&o.resample, "resample", false, "convert the file to the device rate before playing")
}

// playback is a started voice or music player.
type playback struct {
	state func() engine.State
	stop  func()
}

func (a *app) start(dev *engine.Device, path string, o voiceOptions) (*playback, error) {
	if o.stream {
		return a.startStream(dev, path, o)
	}

	var conv []audio.Conversion
	if o.resample {
		conv = append(conv, audio.ToRate(int(dev.Details().SampleRate)))
	}
	track, err := a.registry.TrackFromFile(path, conv...)
	if err != nil {
		return nil, err
	}

	v, err := dev.Voices().ObtainStatic(track.Format())
	if err != nil {
		return nil, fmt.Errorf("play %s: %w", path, err)
	}
	v.SetVolume(o.volume)
	v.SetPitch(o.pitch)
	v.SetPan(o.pan)
	v.SetLooping(o.loop)

	if err := v.Submit(track); err != nil {
		v.Release()
		return nil, fmt.Errorf("play %s: %w", path, err)
	}
	if err := v.Play(); err != nil {
		v.Release()
		return nil, fmt.Errorf("play %s: %w", path, err)
	}

	a.logger.Info("playing track",
		zap.String("path", path),
		zap.Stringer("format", track.Format()),
		zap.Uint32("frames", track.Frames()),
		zap.Bool("loop", o.loop))

	return &playback{
		state: v.State,
		stop: func() {
			_ = v.Stop()
			v.Release()
		},
	}, nil
}

func (a *app) startStream(dev *engine.Device, path string, o voiceOptions) (*playback, error) {
	s, err := dev.OpenStream(a.registry, path)
	if err != nil {
		return nil, err
	}

	p := engine.NewMusicPlayer(dev)
	p.SetVolume(o.volume)
	p.SetPitch(o.pitch)
	p.SetPan(o.pan)
	if err := p.Play(s, o.loop); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("play %s: %w", path, err)
	}

	a.logger.Info("streaming",
		zap.String("path", path),
		zap.Stringer("format", s.Format()),
		zap.Int("chunk_bytes", s.ChunkSize()),
		zap.Bool("loop", o.loop))

	return &playback{
		state: p.State,
		stop:  func() { _ = p.Close() },
	}, nil
}

// wait blocks until pb stops or ctx is done.
func wait(ctx context.Context, pb *playback) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if pb.state() == engine.Stopped {
				return
			}
		}
	}
}
