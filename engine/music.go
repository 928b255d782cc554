// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"sync"

	"github.com/ik5/audvox/audio"
)

// MusicPlayer plays one stream at a time on a pooled stream voice, keeping
// volume, pitch and pan across stream changes.
type MusicPlayer struct {
	dev *Device

	mu     sync.Mutex
	voice  *SourceVoice
	stream audio.Stream
	volume float32
	pitch  float32
	pan    float32
}

func NewMusicPlayer(d *Device) *MusicPlayer {
	return &MusicPlayer{dev: d, volume: 1}
}

// Play starts s. Playing the stream already loaded resumes it with the new
// looping flag; another stream replaces it.
func (p *MusicPlayer) Play(s audio.Stream, looping bool) error {
	if s == nil {
		return ErrNilStream
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.voice == nil || p.stream != s {
		p.dropLocked()

		v, err := p.dev.maker.ObtainStream(s.Format())
		if err != nil {
			return err
		}
		v.SetVolume(p.volume)
		v.SetPitch(p.pitch)
		v.SetPan(p.pan)
		v.SetLooping(looping)
		if err := v.Load(s); err != nil {
			p.dev.maker.Destroy(v)
			return err
		}
		p.voice, p.stream = v, s
	}

	p.voice.SetLooping(looping)
	return p.voice.Play()
}

func (p *MusicPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.voice == nil {
		return nil
	}
	return p.voice.Pause()
}

// Resume continues a paused stream.
func (p *MusicPlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.voice == nil || p.voice.State() != Paused {
		return nil
	}
	return p.voice.Play()
}

// Stop halts playback. The stream stays loaded; Play starts it again from
// where its decoder is.
func (p *MusicPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.voice == nil {
		return nil
	}
	return p.voice.Stop()
}

// State is Stopped when nothing is loaded.
func (p *MusicPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.voice == nil {
		return Stopped
	}
	return p.voice.State()
}

// Stream returns the stream last given to Play.
func (p *MusicPlayer) Stream() audio.Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream
}

func (p *MusicPlayer) Volume() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *MusicPlayer) SetVolume(v float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = max(0, v)
	if p.voice != nil {
		p.voice.SetVolume(p.volume)
	}
}

func (p *MusicPlayer) Pitch() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pitch
}

func (p *MusicPlayer) SetPitch(v float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pitch = clamp(v, -1, 1)
	if p.voice != nil {
		p.voice.SetPitch(p.pitch)
	}
}

func (p *MusicPlayer) Pan() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pan
}

func (p *MusicPlayer) SetPan(v float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pan = clamp(v, -1, 1)
	if p.voice != nil {
		p.voice.SetPan(p.pan)
	}
}

// Close unloads the stream and hands the voice back to the pool.
func (p *MusicPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropLocked()
}

func (p *MusicPlayer) dropLocked() error {
	if p.voice == nil {
		return nil
	}
	err := p.voice.Unload()
	p.dev.maker.Destroy(p.voice)
	p.voice, p.stream = nil, nil
	return err
}
