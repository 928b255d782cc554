// SPDX-License-Identifier: EPL-2.0

// Package malgosink enumerates playback devices and plays a software mix
// through miniaudio (github.com/gen2brain/malgo).
package malgosink

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/utils"
	"go.uber.org/zap"
)

const (
	defaultChannels   = 2
	defaultSampleRate = 48000
	// miniaudio's MA_MAX_CHANNELS
	maxChannels       = 254
)

var (
	ErrDeviceNotFound = errors.New("playback device not found")
	ErrInvalidConfig  = errors.New("invalid malgo sink config")
)

// Renderer produces interleaved float32 frames on demand.
type Renderer interface {
	Render(dst []float32)
}

type Config struct {
	// Device selects a playback device by case-insensitive name substring.
	// Empty picks the system default.
	Device     string
	SampleRate uint32
	Channels   uint32
}

// Devices lists the playback devices as backend details. The system default
// device is reported with every role so backend.DefaultDevice prefers it.
func Devices(logger *zap.Logger) ([]backend.DeviceDetails, error) {
	ctx, err := initContext(logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate playback devices: %w", err)
	}

	out := make([]backend.DeviceDetails, 0, len(infos))
	for i := range infos {
		out = append(out, details(&infos[i]))
	}
	return out, nil
}

func details(info *malgo.DeviceInfo) backend.DeviceDetails {
	d := backend.DeviceDetails{
		ID:         info.ID.String(),
		Name:       info.Name(),
		Role:       backend.RoleMultimedia,
		Channels:   defaultChannels,
		SampleRate: defaultSampleRate,
	}
	if info.IsDefault == 1 {
		d.Role = backend.RoleDefault
	}
	for _, f := range info.Formats {
		if f.Channels > 0 && f.SampleRate > 0 {
			d.Channels = uint16(f.Channels)
			d.SampleRate = f.SampleRate
			break
		}
	}
	return d
}

func initContext(logger *zap.Logger) (*malgo.AllocatedContext, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", zap.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, fmt.Errorf("init miniaudio context: %w", err)
	}
	return ctx, nil
}

// Sink drives a Renderer from the miniaudio data callback.
type Sink struct {
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	r        Renderer
	channels int
	logger   *zap.Logger

	mu      sync.Mutex
	scratch []float32
	closed  bool
}

func Open(r Renderer, cfg Config, logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Channels == 0 {
		cfg.Channels = defaultChannels
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Channels > maxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidConfig, cfg.Channels)
	}

	ctx, err := initContext(logger)
	if err != nil {
		return nil, err
	}

	s := &Sink{
		ctx:      ctx,
		r:        r,
		channels: int(cfg.Channels),
		logger:   logger,
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.Playback.Format = malgo.FormatF32
	devCfg.Playback.Channels = cfg.Channels
	devCfg.SampleRate = cfg.SampleRate

	if cfg.Device != "" {
		info, err := find(ctx, cfg.Device)
		if err != nil {
			s.release()
			return nil, err
		}
		devCfg.Playback.DeviceID = info.ID.Pointer()
		logger.Info("using playback device", zap.String("device", info.Name()))
	}

	s.device, err = malgo.InitDevice(ctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: func() { logger.Warn("playback device stopped") },
	})
	if err != nil {
		s.release()
		return nil, fmt.Errorf("init playback device: %w", err)
	}

	if err := s.device.Start(); err != nil {
		s.release()
		return nil, fmt.Errorf("start playback device: %w", err)
	}

	logger.Info("malgo sink started",
		zap.Uint32("sample_rate", s.device.SampleRate()),
		zap.Uint32("channels", s.device.PlaybackChannels()))

	return s, nil
}

func find(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate playback devices: %w", err)
	}
	want := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

func (s *Sink) onData(out, _ []byte, frames uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int(frames) * s.channels
	if s.closed {
		clear(out)
		return
	}
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	buf := s.scratch[:n]
	s.r.Render(buf)
	utils.PutFloat32s(out, buf)
}

func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var err error
	if s.device != nil {
		err = s.device.Stop()
	}
	s.release()
	s.logger.Info("malgo sink stopped")
	return err
}

func (s *Sink) release() {
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	_ = s.ctx.Uninit()
	s.ctx.Free()
}
