// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend"
)

// ErrInjected is what the backend returns for failures set up with the
// error options.
var ErrInjected = errors.New("injected backend failure")

// VoiceRecord is what the Backend knows about one voice.
type VoiceRecord struct {
	Kind      string
	Format    audio.Format
	Channels  uint16
	Stage     uint32
	Output    backend.VoiceID
	Playing   bool
	Queued    int
	Volume    float32
	Ratio     float32
	Matrix    []float32
	Submitted int
	Destroyed bool
}

type spyVoice struct {
	VoiceRecord
	queue []audio.Buffer
	data  [][]byte
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithDevices replaces the default stereo device. No devices simulates a
// machine without audio hardware.
func WithDevices(devices ...backend.DeviceDetails) BackendOption {
	return func(b *Backend) { b.devices = devices }
}

// WithMasteringError makes CreateMasteringVoice fail.
func WithMasteringError() BackendOption {
	return func(b *Backend) { b.failMastering = true }
}

// WithSourceError makes CreateSourceVoice fail.
func WithSourceError() BackendOption {
	return func(b *Backend) { b.failSource = true }
}

// Backend is a backend.Backend that records every call and never plays
// anything. Buffers stay queued until Drain is called, so tests decide when
// playback progresses.
type Backend struct {
	mu            sync.Mutex
	devices       []backend.DeviceDetails
	failMastering bool
	failSource    bool

	next   backend.VoiceID
	voices map[backend.VoiceID]*spyVoice
	calls  map[string]int
	closed bool
}

func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{
		devices: []backend.DeviceDetails{{
			ID:         "spy",
			Name:       "Spy Output",
			Role:       backend.RoleDefault,
			Channels:   2,
			SampleRate: 48000,
		}},
		voices: make(map[backend.VoiceID]*spyVoice),
		calls:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Calls returns how often op (the backend method name) was called.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls counts every call except State queries.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for op, c := range b.calls {
		if op != "State" {
			n += c
		}
	}
	return n
}

// CreateCalls counts every voice creation attempt.
func (b *Backend) CreateCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls["CreateMasteringVoice"] + b.calls["CreateSubmixVoice"] + b.calls["CreateSourceVoice"]
}

func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.calls)
}

// Voice returns a copy of what is known about id.
func (b *Backend) Voice(id backend.VoiceID) (VoiceRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.voices[id]
	if !ok {
		return VoiceRecord{}, false
	}
	rec := v.VoiceRecord
	rec.Queued = len(v.queue)
	rec.Matrix = append([]float32(nil), v.Matrix...)
	return rec, true
}

// Live counts voices that were created and not destroyed.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, v := range b.voices {
		if !v.Destroyed {
			n++
		}
	}
	return n
}

// Drain finishes playback of up to n queued buffers of id.
func (b *Backend) Drain(id backend.VoiceID, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v, ok := b.voices[id]; ok {
		n = min(n, len(v.queue))
		v.queue = v.queue[n:]
	}
}

// DrainAll empties the queue of id.
func (b *Backend) DrainAll(id backend.VoiceID) {
	b.Drain(id, int(^uint(0)>>1))
}

// Data returns copies of every buffer ever submitted to id, in order.
func (b *Backend) Data(id backend.VoiceID) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.voices[id]
	if !ok {
		return nil
	}
	return append([][]byte(nil), v.data...)
}

func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) record(op string) error {
	b.calls[op]++
	if b.closed {
		return backend.ErrClosed
	}
	return nil
}

func (b *Backend) lookup(op string, id backend.VoiceID) (*spyVoice, error) {
	if err := b.record(op); err != nil {
		return nil, err
	}
	v, ok := b.voices[id]
	if !ok || v.Destroyed {
		return nil, fmt.Errorf("%w: %d", backend.ErrUnknownVoice, id)
	}
	return v, nil
}

func (b *Backend) add(rec VoiceRecord) backend.VoiceID {
	b.next++
	rec.Volume = 1
	rec.Ratio = 1
	b.voices[b.next] = &spyVoice{VoiceRecord: rec}
	return b.next
}

func (b *Backend) DeviceCount() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record("DeviceCount"); err != nil {
		return 0, err
	}
	return len(b.devices), nil
}

func (b *Backend) DeviceDetails(index int) (backend.DeviceDetails, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record("DeviceDetails"); err != nil {
		return backend.DeviceDetails{}, err
	}
	if index < 0 || index >= len(b.devices) {
		return backend.DeviceDetails{}, backend.ErrNoDevice
	}
	return b.devices[index], nil
}

func (b *Backend) CreateMasteringVoice(channels uint16, _ uint32, device int) (backend.VoiceID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record("CreateMasteringVoice"); err != nil {
		return 0, err
	}
	if b.failMastering {
		return 0, ErrInjected
	}
	if device < 0 || device >= len(b.devices) {
		return 0, backend.ErrNoDevice
	}
	return b.add(VoiceRecord{Kind: "mastering", Channels: channels}), nil
}

func (b *Backend) CreateSubmixVoice(channels uint16, _ uint32, stage uint32) (backend.VoiceID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record("CreateSubmixVoice"); err != nil {
		return 0, err
	}
	return b.add(VoiceRecord{Kind: "submix", Channels: channels, Stage: stage}), nil
}

func (b *Backend) CreateSourceVoice(format audio.Format) (backend.VoiceID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.record("CreateSourceVoice"); err != nil {
		return 0, err
	}
	if b.failSource {
		return 0, ErrInjected
	}
	return b.add(VoiceRecord{Kind: "source", Format: format, Channels: format.Channels}), nil
}

func (b *Backend) SetOutputVoice(id, output backend.VoiceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("SetOutputVoice", id)
	if err != nil {
		return err
	}
	v.Output = output
	return nil
}

func (b *Backend) SubmitBuffer(id backend.VoiceID, buf audio.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("SubmitBuffer", id)
	if err != nil {
		return err
	}
	v.queue = append(v.queue, buf)
	v.data = append(v.data, append([]byte(nil), buf.Data...))
	v.Submitted++
	return nil
}

func (b *Backend) Start(id backend.VoiceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("Start", id)
	if err != nil {
		return err
	}
	v.Playing = true
	return nil
}

func (b *Backend) Stop(id backend.VoiceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("Stop", id)
	if err != nil {
		return err
	}
	v.Playing = false
	return nil
}

func (b *Backend) FlushBuffers(id backend.VoiceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("FlushBuffers", id)
	if err != nil {
		return err
	}
	v.queue = nil
	return nil
}

func (b *Backend) State(id backend.VoiceID) (backend.VoiceState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("State", id)
	if err != nil {
		return backend.VoiceState{}, err
	}
	return backend.VoiceState{BuffersQueued: uint32(len(v.queue))}, nil
}

func (b *Backend) SetVolume(id backend.VoiceID, volume float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("SetVolume", id)
	if err != nil {
		return err
	}
	v.Volume = volume
	return nil
}

func (b *Backend) SetOutputMatrix(id, _ backend.VoiceID, src, dst uint32, matrix []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("SetOutputMatrix", id)
	if err != nil {
		return err
	}
	if len(matrix) != int(src*dst) {
		return backend.ErrBadMatrix
	}
	v.Matrix = append(v.Matrix[:0], matrix...)
	return nil
}

func (b *Backend) SetFrequencyRatio(id backend.VoiceID, ratio float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("SetFrequencyRatio", id)
	if err != nil {
		return err
	}
	v.Ratio = ratio
	return nil
}

func (b *Backend) DestroyVoice(id backend.VoiceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, err := b.lookup("DestroyVoice", id)
	if err != nil {
		return err
	}
	v.Destroyed = true
	v.queue = nil
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls["Close"]++
	b.closed = true
	return nil
}
