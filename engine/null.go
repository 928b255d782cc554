// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"sync/atomic"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend"
)

// nullBackend stands in for missing hardware. It accepts every call and
// plays nothing; voices never have anything queued.
type nullBackend struct {
	next atomic.Uint64
}

func (n *nullBackend) id() (backend.VoiceID, error) {
	return backend.VoiceID(n.next.Add(1)), nil
}

func (*nullBackend) DeviceCount() (int, error) { return 0, nil }

func (*nullBackend) DeviceDetails(int) (backend.DeviceDetails, error) {
	return backend.DeviceDetails{}, backend.ErrNoDevice
}

func (n *nullBackend) CreateMasteringVoice(uint16, uint32, int) (backend.VoiceID, error) {
	return n.id()
}

func (n *nullBackend) CreateSubmixVoice(uint16, uint32, uint32) (backend.VoiceID, error) {
	return n.id()
}

func (n *nullBackend) CreateSourceVoice(audio.Format) (backend.VoiceID, error) {
	return n.id()
}

func (*nullBackend) SetOutputVoice(_, _ backend.VoiceID) error { return nil }
func (*nullBackend) SubmitBuffer(backend.VoiceID, audio.Buffer) error { return nil }
func (*nullBackend) Start(backend.VoiceID) error { return nil }
func (*nullBackend) Stop(backend.VoiceID) error { return nil }
func (*nullBackend) FlushBuffers(backend.VoiceID) error { return nil }
func (*nullBackend) SetVolume(backend.VoiceID, float32) error { return nil }
func (*nullBackend) SetFrequencyRatio(backend.VoiceID, float32) error { return nil }
func (*nullBackend) DestroyVoice(backend.VoiceID) error { return nil }
func (*nullBackend) Close() error { return nil }

func (*nullBackend) State(backend.VoiceID) (backend.VoiceState, error) {
	return backend.VoiceState{}, nil
}

func (*nullBackend) SetOutputMatrix(_, _ backend.VoiceID, _, _ uint32, _ []float32) error {
	return nil
}
