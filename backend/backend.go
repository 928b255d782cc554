// SPDX-License-Identifier: EPL-2.0

// Package backend defines the boundary between the voice engine and a
// native audio API. The engine only talks to hardware through Backend, so
// any implementation offering these calls can be substituted.
package backend

import (
	"errors"

	"github.com/ik5/audvox/audio"
)

var (
	ErrNoDevice     = errors.New("no audio output device")
	ErrUnknownVoice = errors.New("unknown voice")
	ErrClosed       = errors.New("backend closed")
	ErrBadMatrix    = errors.New("output matrix size does not match channel counts")
)

// VoiceID is an opaque native voice handle. Zero is the null handle.
type VoiceID uint64

// DeviceRole flags describe what the OS uses a device for.
type DeviceRole uint32

const (
	RoleConsole DeviceRole = 1 << iota
	RoleMultimedia
	RoleCommunications
	RoleGame

	RoleDefault = RoleConsole | RoleMultimedia | RoleCommunications | RoleGame
)

// DeviceDetails describes one output device.
type DeviceDetails struct {
	ID         string
	Name       string
	Role       DeviceRole
	Channels   uint16
	SampleRate uint32
}

// VoiceState is the live playback state of a source voice.
type VoiceState struct {
	BuffersQueued uint32
	SamplesPlayed uint64
}

// Backend is a native audio API. Implementations must be safe for
// concurrent use: the engine calls them from the game goroutine and from
// its maintenance goroutine.
type Backend interface {
	DeviceCount() (int, error)
	DeviceDetails(index int) (DeviceDetails, error)

	CreateMasteringVoice(channels uint16, sampleRate uint32, device int) (VoiceID, error)
	// CreateSubmixVoice creates a mixing bus. Buses with a lower stage are
	// processed before buses with a higher one.
	CreateSubmixVoice(channels uint16, sampleRate uint32, stage uint32) (VoiceID, error)
	CreateSourceVoice(format audio.Format) (VoiceID, error)

	// SetOutputVoice routes voice into output. A zero output routes into the
	// mastering voice.
	SetOutputVoice(voice, output VoiceID) error

	SubmitBuffer(voice VoiceID, buf audio.Buffer) error
	Start(voice VoiceID) error
	// Stop halts playback and keeps queued buffers.
	Stop(voice VoiceID) error
	FlushBuffers(voice VoiceID) error
	State(voice VoiceID) (VoiceState, error)

	SetVolume(voice VoiceID, volume float32) error
	// SetOutputMatrix sets the src*dst coefficients, row major by
	// destination channel, used when mixing voice into dest.
	SetOutputMatrix(voice, dest VoiceID, srcChannels, dstChannels uint32, matrix []float32) error
	SetFrequencyRatio(voice VoiceID, ratio float32) error

	DestroyVoice(voice VoiceID) error
	Close() error
}

// DefaultDevice picks the first device marked for game audio, falling back
// to the first device.
func DefaultDevice(b Backend) (int, DeviceDetails, error) {
	count, err := b.DeviceCount()
	if err != nil {
		return 0, DeviceDetails{}, err
	}
	if count == 0 {
		return 0, DeviceDetails{}, ErrNoDevice
	}

	for i := range count {
		d, err := b.DeviceDetails(i)
		if err != nil {
			return 0, DeviceDetails{}, err
		}
		if d.Role&RoleGame != 0 {
			return i, d, nil
		}
	}

	d, err := b.DeviceDetails(0)
	return 0, d, err
}
