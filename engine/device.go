// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audvox/backend"
	"go.uber.org/zap"
)

// Device owns a backend, its master bus and the goroutine that keeps
// source voices fed and recycled.
type Device struct {
	backend backend.Backend
	cfg     Config
	logger  *zap.Logger
	metrics *engineMetrics

	err         error
	details     backend.DeviceDetails
	deviceIndex int
	mastering   backend.VoiceID
	master      *SubmixVoice
	maker       *VoiceMaker
	arena       arena

	dopplerScale atomic.Uint32

	// mu serializes maintenance ticks with pool changes.
	mu       sync.Mutex
	lastTick time.Time
	elapsed  time.Duration

	running   atomic.Bool
	closed    atomic.Bool
	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Create opens the preferred output device of b. It never fails: without
// usable hardware the device is unavailable, Err reports why and every
// operation becomes silent.
func Create(b backend.Backend, opts ...Option) *Device {
	o := options{cfg: DefaultConfig(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		backend: b,
		cfg:     o.cfg,
		logger:  o.logger,
		metrics: newMetrics(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	d.maker = newVoiceMaker(d)

	if err := o.cfg.Validate(); err != nil {
		d.logger.Warn("invalid engine configuration, using defaults", zap.Error(err))
		d.cfg = DefaultConfig()
	}
	d.SetDopplerScale(d.cfg.DopplerScale)

	if o.registry != nil {
		if err := d.metrics.register(o.registry); err != nil {
			d.logger.Warn("engine metrics not registered", zap.Error(err))
		}
	}

	if err := d.open(); err != nil {
		d.err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		d.logger.Warn("no usable audio device, continuing without sound", zap.Error(err))
		d.degrade()
		return d
	}

	d.master.SetVolume(d.cfg.MasterVolume)
	d.logger.Info("audio device opened",
		zap.String("device", d.details.Name),
		zap.Uint16("channels", d.details.Channels),
		zap.Uint32("sample_rate", d.details.SampleRate))

	if d.cfg.UpdateRate > 0 {
		d.running.Store(true)
		d.wg.Add(1)
		go d.run(time.Second / time.Duration(d.cfg.UpdateRate))
	}
	return d
}

func (d *Device) open() error {
	idx, details, err := d.pickDevice()
	if err != nil {
		return err
	}

	mastering, err := d.backend.CreateMasteringVoice(details.Channels, details.SampleRate, idx)
	if err != nil {
		return fmt.Errorf("creating mastering voice: %w", err)
	}
	d.deviceIndex, d.details, d.mastering = idx, details, mastering

	master, err := d.newMasterBus()
	if err != nil {
		_ = d.backend.DestroyVoice(mastering)
		d.mastering = 0
		return err
	}
	d.master = master
	return nil
}

func (d *Device) pickDevice() (int, backend.DeviceDetails, error) {
	if d.cfg.Device == "" {
		return backend.DefaultDevice(d.backend)
	}

	count, err := d.backend.DeviceCount()
	if err != nil {
		return 0, backend.DeviceDetails{}, err
	}
	for i := range count {
		details, err := d.backend.DeviceDetails(i)
		if err != nil {
			return 0, backend.DeviceDetails{}, err
		}
		if strings.Contains(strings.ToLower(details.Name), strings.ToLower(d.cfg.Device)) {
			return i, details, nil
		}
	}
	return 0, backend.DeviceDetails{}, fmt.Errorf("%w: no device matching %q", backend.ErrNoDevice, d.cfg.Device)
}

// degrade swaps in the silent backend so the rest of the engine runs
// unchanged.
func (d *Device) degrade() {
	if err := d.backend.Close(); err != nil {
		d.logger.Debug("closing unusable backend", zap.Error(err))
	}
	d.backend = &nullBackend{}
	d.details = backend.DeviceDetails{Name: "null", Channels: 2, SampleRate: 48000}
	master, err := d.newMasterBus()
	if err != nil {
		// the null backend does not fail
		panic(err)
	}
	d.master = master
}

func (d *Device) run(interval time.Duration) {
	defer d.wg.Done()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for d.running.Load() {
		d.Tick()

		timer.Reset(interval)
		select {
		case <-d.wake:
		case <-timer.C:
		case <-d.done:
		}
	}
}

// Tick runs one maintenance pass: every tracked voice is updated and voices
// handed back are recycled. The background goroutine calls it; with
// UpdateRate zero the caller must.
func (d *Device) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Load() {
		return
	}

	start := time.Now()
	if !d.lastTick.IsZero() {
		d.elapsed = start.Sub(d.lastTick)
	}
	d.lastTick = start

	d.safeUpdate()
	d.metrics.tickDuration.Observe(time.Since(start).Seconds())
}

func (d *Device) safeUpdate() {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in audio maintenance", zap.Any("panic", r), zap.Stack("stack"))
			if debugChecks {
				panic(r)
			}
		}
	}()
	d.maker.update()
}

// Wake makes the maintenance goroutine tick now instead of waiting for the
// next interval.
func (d *Device) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// LastTick reports when the last tick started and how long it had been
// since the one before.
func (d *Device) LastTick() (time.Time, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTick, d.elapsed
}

func (d *Device) Available() bool { return d.err == nil }

// Err is nil for a working device and wraps ErrUnavailable otherwise.
func (d *Device) Err() error { return d.err }

// Details describes the output device in use.
func (d *Device) Details() backend.DeviceDetails { return d.details }

// DeviceIndex is the backend index of the output device in use.
func (d *Device) DeviceIndex() int { return d.deviceIndex }

func (d *Device) Master() *SubmixVoice { return d.master }
func (d *Device) Voices() *VoiceMaker  { return d.maker }
func (d *Device) Config() Config       { return d.cfg }

func (d *Device) DopplerScale() float32 {
	return math.Float32frombits(d.dopplerScale.Load())
}

// SetDopplerScale changes the global doppler multiplier. Voices pick it up
// the next time their pitch or doppler factor changes.
func (d *Device) SetDopplerScale(scale float32) {
	d.dopplerScale.Store(math.Float32bits(max(0, scale)))
}

// Close stops the maintenance goroutine, then releases every voice, the
// mastering voice and the backend. It is safe to call more than once.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.running.Store(false)
		close(d.done)
		d.wg.Wait()

		d.mu.Lock()
		d.closed.Store(true)
		d.mu.Unlock()

		d.arena.drain()
		if d.mastering != 0 {
			err = d.backend.DestroyVoice(d.mastering)
		}
		err = errors.Join(err, d.backend.Close())
		d.logger.Debug("audio device closed")
	})
	return err
}

// outputChannels is the channel count a voice routed into out mixes to.
func (d *Device) outputChannels(out *SubmixVoice) int {
	if out == nil {
		return int(d.details.Channels)
	}
	return out.srcChannels
}

// invariant reports misuse of the pool. Debug builds fail loudly.
func (d *Device) invariant(msg string, v *SourceVoice) {
	if debugChecks {
		panic(fmt.Sprintf("audvox: %s (voice %d)", msg, v.id))
	}
	d.logger.Error(msg, zap.Uint64("voice", uint64(v.id)))
}
