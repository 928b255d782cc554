// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"sync"

	"github.com/ik5/audvox/backend"
	"go.uber.org/zap"
)

// Voice is the state shared by every native voice: the handle, mixing
// parameters and where its output goes. It is embedded by SubmixVoice and
// SourceVoice and is safe for concurrent use.
type Voice struct {
	dev  *Device
	id   backend.VoiceID
	slot handle
	self resource

	mu sync.Mutex

	// output is nil for the master bus, which feeds the mastering voice.
	output      *SubmixVoice
	srcChannels int
	dstChannels int
	matrix      []float32

	volume        float32
	pan           float32
	pitch         float32
	dopplerFactor float32

	released bool
}

func (v *Voice) init(dev *Device, id backend.VoiceID, self resource, channels int, output *SubmixVoice) {
	v.dev = dev
	v.id = id
	v.self = self
	v.volume = 1
	v.srcChannels = channels
	v.output = output
	v.dstChannels = dev.outputChannels(output)
	v.matrix = make([]float32, v.srcChannels*v.dstChannels)
	v.slot = dev.arena.add(self)
}

// ID is the native handle of the voice.
func (v *Voice) ID() backend.VoiceID { return v.id }

// Channels is the number of input channels.
func (v *Voice) Channels() int { return v.srcChannels }

func (v *Voice) Volume() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

// SetVolume sets the linear gain. Negative values are stored as zero.
func (v *Voice) SetVolume(volume float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setVolumeLocked(volume)
}

func (v *Voice) setVolumeLocked(volume float32) {
	if volume != volume {
		return
	}
	volume = max(0, volume)
	if volume == v.volume {
		return
	}
	v.volume = volume
	v.check("set volume", v.dev.backend.SetVolume(v.id, volume))
}

func (v *Voice) Pan() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pan
}

// SetPan sets the stereo position in [-1, 1], left to right.
func (v *Voice) SetPan(pan float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setPanLocked(pan)
}

func (v *Voice) setPanLocked(pan float32) {
	if pan != pan {
		return
	}
	pan = clamp(pan, -1, 1)
	if pan == v.pan {
		return
	}
	v.pan = pan
	v.applyMatrixLocked()
}

func (v *Voice) Pitch() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pitch
}

// SetPitch sets the pitch shift in octaves, limited to [-1, 1].
func (v *Voice) SetPitch(pitch float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setPitchLocked(pitch)
}

func (v *Voice) setPitchLocked(pitch float32) {
	if pitch != pitch {
		return
	}
	pitch = clamp(pitch, -1, 1)
	if pitch == v.pitch {
		return
	}
	v.pitch = pitch
	v.applyRatioLocked()
}

func (v *Voice) DopplerFactor() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dopplerFactor
}

// SetDopplerFactor sets the per voice doppler factor. Zero disables doppler
// for the voice.
func (v *Voice) SetDopplerFactor(factor float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setDopplerLocked(factor)
}

func (v *Voice) setDopplerLocked(factor float32) {
	if factor != factor {
		return
	}
	factor = max(0, factor)
	if factor == v.dopplerFactor {
		return
	}
	v.dopplerFactor = factor
	v.applyRatioLocked()
}

// Output returns the bus this voice feeds. It is nil for the master bus.
func (v *Voice) Output() *SubmixVoice {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.output
}

func (v *Voice) setOutputLocked(out *SubmixVoice) error {
	if out.dev != v.dev {
		return fmt.Errorf("%w: output bus is on another device", ErrNotOwned)
	}
	if out == v.output {
		return nil
	}
	if err := v.dev.backend.SetOutputVoice(v.id, out.id); err != nil {
		return err
	}
	v.output = out
	if ch := v.dev.outputChannels(out); ch != v.dstChannels {
		v.dstChannels = ch
		v.matrix = make([]float32, v.srcChannels*v.dstChannels)
	}
	v.applyMatrixLocked()
	return nil
}

func (v *Voice) applyMatrixLocked() {
	panMatrix(v.matrix, v.srcChannels, v.dstChannels, v.pan)
	var dest backend.VoiceID
	if v.output != nil {
		dest = v.output.id
	}
	v.check("set output matrix", v.dev.backend.SetOutputMatrix(
		v.id, dest, uint32(v.srcChannels), uint32(v.dstChannels), v.matrix))
}

func (v *Voice) applyRatioLocked() {
	ratio := frequencyRatio(v.pitch, v.dopplerFactor, v.dev.DopplerScale())
	v.check("set frequency ratio", v.dev.backend.SetFrequencyRatio(v.id, ratio))
}

// resetLocked restores the defaults a pooled voice is handed out with.
func (v *Voice) resetLocked() {
	v.setVolumeLocked(1)
	v.setPanLocked(0)
	v.setPitchLocked(0)
	v.setDopplerLocked(0)
	if v.output != v.dev.master {
		v.check("route to master", v.setOutputLocked(v.dev.master))
	}
}

func (v *Voice) releaseLocked() {
	if v.released {
		return
	}
	v.released = true
	v.check("destroy voice", v.dev.backend.DestroyVoice(v.id))
	v.dev.arena.remove(v.slot, v.self)
}

// check logs a failed backend call. Mixing parameters are best effort, a
// rejected value leaves the previous one audible.
func (v *Voice) check(op string, err error) bool {
	if err == nil {
		return true
	}
	v.dev.logger.Warn("backend call failed",
		zap.String("op", op),
		zap.Uint64("voice", uint64(v.id)),
		zap.Error(err))
	return false
}
