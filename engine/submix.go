// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"
)

// masterStage keeps the master bus after every other submix.
const masterStage = math.MaxUint32

// SubmixVoice is a mixing bus. Other voices route their output into it and
// it applies its own volume and pan to the sum.
type SubmixVoice struct {
	Voice

	sampleRate uint32
	stage      uint32
}

func (s *SubmixVoice) SampleRate() uint32 { return s.sampleRate }
func (s *SubmixVoice) Stage() uint32      { return s.stage }

// IsMaster reports whether s is the device's master bus.
func (s *SubmixVoice) IsMaster() bool { return s.stage == masterStage }

// SetOutputVoice routes s into out, nil meaning the master bus. The master
// bus itself cannot be rerouted.
func (s *SubmixVoice) SetOutputVoice(out *SubmixVoice) error {
	if s.IsMaster() {
		return fmt.Errorf("%w: master bus output is fixed", ErrWrongKind)
	}
	if out == nil {
		out = s.dev.master
	}
	if out == s {
		return fmt.Errorf("%w: bus routed into itself", ErrWrongKind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setOutputLocked(out)
}

// Close destroys a bus created with NewSubmixVoice. Voices still routed
// into it go silent until rerouted. The master bus is closed with the
// device.
func (s *SubmixVoice) Close() error {
	if s.IsMaster() {
		return fmt.Errorf("%w: master bus is owned by the device", ErrWrongKind)
	}
	s.release()
	return nil
}

func (s *SubmixVoice) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

// NewSubmixVoice creates a bus processed at stage, feeding the master bus.
// Lower stages are mixed first, so a bus must have a lower stage than the
// bus it feeds.
func (d *Device) NewSubmixVoice(channels uint16, sampleRate uint32, stage uint32) (*SubmixVoice, error) {
	if stage == masterStage {
		return nil, fmt.Errorf("%w: stage %d is reserved for the master bus", ErrInvalidConfig, stage)
	}
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if sampleRate == 0 {
		sampleRate = d.details.SampleRate
	}

	id, err := d.backend.CreateSubmixVoice(channels, sampleRate, stage)
	if err != nil {
		return nil, fmt.Errorf("creating submix voice: %w", err)
	}
	s := &SubmixVoice{sampleRate: sampleRate, stage: stage}
	s.init(d, id, s, int(channels), d.master)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.check("route to master", d.backend.SetOutputVoice(id, d.master.id))
	s.applyMatrixLocked()
	return s, nil
}

// newMasterBus creates the bus every voice feeds by default. It sits
// directly on the mastering voice.
func (d *Device) newMasterBus() (*SubmixVoice, error) {
	id, err := d.backend.CreateSubmixVoice(d.details.Channels, d.details.SampleRate, masterStage)
	if err != nil {
		return nil, fmt.Errorf("creating master bus: %w", err)
	}
	if err := d.backend.SetOutputVoice(id, 0); err != nil {
		_ = d.backend.DestroyVoice(id)
		return nil, fmt.Errorf("routing master bus: %w", err)
	}

	s := &SubmixVoice{sampleRate: d.details.SampleRate, stage: masterStage}
	s.init(d, id, s, int(d.details.Channels), nil)
	return s, nil
}
