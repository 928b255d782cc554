// SPDX-License-Identifier: EPL-2.0

// Package otosink plays a software mix through github.com/ebitengine/oto.
package otosink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/ik5/audvox/utils"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid oto sink config")

// Renderer produces interleaved float32 frames on demand.
type Renderer interface {
	Render(dst []float32)
}

type Config struct {
	SampleRate int
	Channels   int
	// BufferSize is the device latency; zero lets oto decide.
	BufferSize time.Duration
}

// Sink pulls frames from a Renderer whenever oto needs more data. oto allows
// a single context per process, so open at most one Sink.
type Sink struct {
	ctx      *oto.Context
	player   *oto.Player
	r        Renderer
	channels int
	logger   *zap.Logger

	mu      sync.Mutex
	scratch []float32
	closed  bool
}

func Open(r Renderer, cfg Config, logger *zap.Logger) (*Sink, error) {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidConfig, cfg.Channels, cfg.SampleRate)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   cfg.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	s := &Sink{
		ctx:      ctx,
		r:        r,
		channels: cfg.Channels,
		logger:   logger,
	}
	s.player = ctx.NewPlayer(s)
	s.player.Play()

	logger.Info("oto sink started",
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("channels", cfg.Channels),
		zap.Duration("buffer", cfg.BufferSize))

	return s, nil
}

// Read implements io.Reader for the oto player.
func (s *Sink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := len(p) / 4
	samples -= samples % s.channels
	if samples == 0 || s.closed {
		clear(p)
		return len(p), nil
	}

	if cap(s.scratch) < samples {
		s.scratch = make([]float32, samples)
	}
	buf := s.scratch[:samples]
	s.r.Render(buf)

	return utils.PutFloat32s(p, buf), nil
}

// Err reports an asynchronous device failure.
func (s *Sink) Err() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return s.player.Err()
}

func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.player.Close()
	if serr := s.ctx.Suspend(); err == nil {
		err = serr
	}
	s.logger.Info("oto sink stopped")
	return err
}
