// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"

	"github.com/ik5/audvox/audio"
	"go.uber.org/zap"
)

func (d *Device) MasterVolume() float32     { return d.master.Volume() }
func (d *Device) SetMasterVolume(v float32) { d.master.SetVolume(v) }
func (d *Device) MasterPitch() float32      { return d.master.Pitch() }
func (d *Device) SetMasterPitch(p float32)  { d.master.SetPitch(p) }
func (d *Device) MasterPan() float32        { return d.master.Pan() }
func (d *Device) SetMasterPan(p float32)    { d.master.SetPan(p) }

// PlaySound fires track once on a pooled voice. The voice goes back to its
// pool by itself when the track has played. Without hardware it does
// nothing.
func (d *Device) PlaySound(track audio.Track, volume, pitch, pan float32) error {
	if !d.Available() {
		d.logger.Debug("sound dropped, no audio device")
		return nil
	}

	v, err := d.maker.ObtainSound(track.Format())
	if err != nil {
		return fmt.Errorf("play sound: %w", err)
	}

	v.SetVolume(volume)
	v.SetPitch(pitch)
	v.SetPan(pan)

	if err := v.Submit(track); err != nil {
		d.maker.Destroy(v)
		return fmt.Errorf("play sound: %w", err)
	}
	if err := v.Play(); err != nil {
		d.maker.Destroy(v)
		return fmt.Errorf("play sound: %w", err)
	}

	d.logger.Debug("playing sound",
		zap.Uint64("voice", uint64(v.id)),
		zap.Uint32("bytes", track.LengthInBytes()))
	return nil
}

// OpenStream prepares path for streaming with the configured chunk size.
// Later options override it.
func (d *Device) OpenStream(reg *audio.Registry, path string, opts ...audio.StreamOption) (*audio.SourceStream, error) {
	opts = append([]audio.StreamOption{audio.WithChunkSize(d.cfg.StreamChunkBytes)}, opts...)
	s, err := reg.StreamFromFile(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return s, nil
}
