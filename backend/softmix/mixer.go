// SPDX-License-Identifier: EPL-2.0

package softmix

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/utils"
)

const (
	defaultChannels   = 2
	defaultSampleRate = 48000
)

// Option configures a Mixer.
type Option func(*Mixer)

// WithDevices replaces the single built-in device. Passing no devices makes
// the mixer report that there is no hardware, which the engine treats as
// unavailable.
func WithDevices(devices ...backend.DeviceDetails) Option {
	return func(m *Mixer) {
		m.devices = devices
	}
}

// Mixer is a pure Go implementation of backend.Backend. It keeps every voice
// in memory and produces the final mix when Render is called, usually from
// the callback of an output sink.
type Mixer struct {
	mu      sync.Mutex
	devices []backend.DeviceDetails
	voices  map[backend.VoiceID]*voice
	buses   []*voice
	master  *voice
	nextID  backend.VoiceID
	closed  bool
}

// New returns a mixer exposing one stereo 48 kHz device unless WithDevices
// says otherwise.
func New(opts ...Option) *Mixer {
	m := &Mixer{
		devices: []backend.DeviceDetails{{
			ID:         "softmix",
			Name:       "Software Mixer",
			Role:       backend.RoleDefault,
			Channels:   defaultChannels,
			SampleRate: defaultSampleRate,
		}},
		voices: make(map[backend.VoiceID]*voice),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MasterFormat reports the channel count and sample rate of the mastering
// voice. ok is false until one has been created.
func (m *Mixer) MasterFormat() (channels int, sampleRate int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.master == nil {
		return 0, 0, false
	}
	return m.master.channels, int(m.master.rate), true
}

func (m *Mixer) DeviceCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, backend.ErrClosed
	}
	return len(m.devices), nil
}

func (m *Mixer) DeviceDetails(index int) (backend.DeviceDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.devices) {
		return backend.DeviceDetails{}, fmt.Errorf("%w: index %d", backend.ErrNoDevice, index)
	}
	return m.devices[index], nil
}

func (m *Mixer) CreateMasteringVoice(channels uint16, sampleRate uint32, device int) (backend.VoiceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, backend.ErrClosed
	}
	if device < 0 || device >= len(m.devices) {
		return 0, fmt.Errorf("%w: index %d", backend.ErrNoDevice, device)
	}
	if m.master != nil {
		return 0, ErrMasterExists
	}

	d := m.devices[device]
	if channels == 0 {
		channels = d.Channels
	}
	if sampleRate == 0 {
		sampleRate = d.SampleRate
	}
	if channels == 0 || sampleRate == 0 {
		return 0, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidVoice, channels, sampleRate)
	}

	v := m.add(kindMaster, int(channels), sampleRate)
	m.master = v
	return v.id, nil
}

func (m *Mixer) CreateSubmixVoice(channels uint16, sampleRate uint32, stage uint32) (backend.VoiceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, backend.ErrClosed
	}
	if channels == 0 || sampleRate == 0 {
		return 0, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidVoice, channels, sampleRate)
	}

	v := m.add(kindSubmix, int(channels), sampleRate)
	v.stage = stage
	m.buses = append(m.buses, v)
	sort.SliceStable(m.buses, func(i, j int) bool { return m.buses[i].stage < m.buses[j].stage })
	return v.id, nil
}

func (m *Mixer) CreateSourceVoice(format audio.Format) (backend.VoiceID, error) {
	if err := format.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, backend.ErrClosed
	}

	v := m.add(kindSource, int(format.Channels), format.SampleRate)
	v.format = format
	return v.id, nil
}

func (m *Mixer) add(kind voiceKind, channels int, rate uint32) *voice {
	m.nextID++
	v := &voice{
		id:       m.nextID,
		kind:     kind,
		channels: channels,
		rate:     rate,
		volume:   1,
		ratio:    1,
	}
	m.voices[v.id] = v
	return v
}

func (m *Mixer) lookup(id backend.VoiceID) (*voice, error) {
	if m.closed {
		return nil, backend.ErrClosed
	}
	v, ok := m.voices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", backend.ErrUnknownVoice, id)
	}
	return v, nil
}

func (m *Mixer) SetOutputVoice(id, output backend.VoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.lookup(id)
	if err != nil {
		return err
	}
	if output != 0 {
		if _, err := m.lookup(output); err != nil {
			return err
		}
	}
	if v.output != output {
		v.output = output
		v.matrix = nil
	}
	return nil
}

func (m *Mixer) SubmitBuffer(id backend.VoiceID, buf audio.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.lookup(id)
	if err != nil {
		return err
	}
	if v.kind != kindSource {
		return fmt.Errorf("%w: voice %d does not play buffers", ErrInvalidVoice, id)
	}

	frames := uint32(len(buf.Data) / v.format.BlockAlign())
	begin, end := buf.PlayBegin, frames
	if buf.PlayLength > 0 {
		end = min(begin+buf.PlayLength, frames)
	}
	if begin >= end {
		return fmt.Errorf("%w: empty play region", ErrInvalidBuffer)
	}

	loopBegin, loopEnd := buf.LoopBegin, end
	if buf.LoopLength > 0 {
		loopEnd = min(loopBegin+buf.LoopLength, end)
	}
	if buf.LoopCount > 0 && (loopBegin < begin || loopBegin >= loopEnd) {
		return fmt.Errorf("%w: loop region outside play region", ErrInvalidBuffer)
	}

	v.queue = append(v.queue, &queued{
		buf:       buf,
		pos:       begin,
		end:       end,
		loopBegin: loopBegin,
		loopEnd:   loopEnd,
		loopsLeft: buf.LoopCount,
	})
	return nil
}

func (m *Mixer) Start(id backend.VoiceID) error {
	return m.with(id, func(v *voice) { v.playing = true })
}

func (m *Mixer) Stop(id backend.VoiceID) error {
	return m.with(id, func(v *voice) { v.playing = false })
}

func (m *Mixer) FlushBuffers(id backend.VoiceID) error {
	return m.with(id, func(v *voice) {
		v.queue = nil
		v.pending = v.pending[:0]
		v.phase = 0
	})
}

func (m *Mixer) SetVolume(id backend.VoiceID, volume float32) error {
	if volume < 0 || math.IsNaN(float64(volume)) {
		return fmt.Errorf("%w: volume %v", ErrInvalidParameter, volume)
	}
	return m.with(id, func(v *voice) { v.volume = volume })
}

func (m *Mixer) SetFrequencyRatio(id backend.VoiceID, ratio float32) error {
	if ratio <= 0 || math.IsNaN(float64(ratio)) {
		return fmt.Errorf("%w: ratio %v", ErrInvalidParameter, ratio)
	}
	return m.with(id, func(v *voice) { v.ratio = ratio })
}

func (m *Mixer) SetOutputMatrix(id, dest backend.VoiceID, src, dst uint32, matrix []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.lookup(id)
	if err != nil {
		return err
	}
	out, err := m.target(v, dest)
	if err != nil {
		return err
	}
	if int(src) != v.channels || int(dst) != out.channels || len(matrix) != int(src*dst) {
		return fmt.Errorf("%w: %dx%d for %d->%d", backend.ErrBadMatrix, src, dst, v.channels, out.channels)
	}

	v.matrix = append(v.matrix[:0], matrix...)
	return nil
}

func (m *Mixer) State(id backend.VoiceID) (backend.VoiceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.lookup(id)
	if err != nil {
		return backend.VoiceState{}, err
	}
	return backend.VoiceState{
		BuffersQueued: uint32(len(v.queue)),
		SamplesPlayed: v.played,
	}, nil
}

func (m *Mixer) DestroyVoice(id backend.VoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.lookup(id)
	if err != nil {
		return err
	}

	delete(m.voices, id)
	switch v.kind {
	case kindMaster:
		m.master = nil
	case kindSubmix:
		for i, b := range m.buses {
			if b == v {
				m.buses = append(m.buses[:i], m.buses[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *Mixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.voices = make(map[backend.VoiceID]*voice)
	m.buses = nil
	m.master = nil
	return nil
}

func (m *Mixer) with(id backend.VoiceID, fn func(*voice)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := m.lookup(id)
	if err != nil {
		return err
	}
	fn(v)
	return nil
}

// target resolves where v mixes into. A zero dest means v's current output.
func (m *Mixer) target(v *voice, dest backend.VoiceID) (*voice, error) {
	if dest == 0 {
		dest = v.output
	}
	if dest == 0 {
		if m.master == nil {
			return nil, backend.ErrNoDevice
		}
		return m.master, nil
	}
	return m.lookup(dest)
}

// Render mixes len(dst)/channels frames of every playing voice into dst as
// interleaved float32 in the mastering voice layout. Without a mastering
// voice dst is silenced.
func (m *Mixer) Render(dst []float32) {
	clear(dst)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.master == nil || m.closed {
		return
	}

	frames := len(dst) / m.master.channels
	if frames == 0 {
		return
	}

	m.master.prepare(frames)
	for _, b := range m.buses {
		b.prepare(frames)
	}

	for _, v := range m.voices {
		if v.kind != kindSource || !v.playing {
			continue
		}
		out, err := m.target(v, 0)
		if err != nil {
			continue
		}
		v.render(frames, float64(v.rate)/float64(m.master.rate))
		v.mixInto(out, frames)
	}

	for _, b := range m.buses {
		out, err := m.target(b, 0)
		if err != nil || out == b {
			continue
		}
		for i := range frames * b.channels {
			b.out[i] = b.mix[i] * b.volume
		}
		b.mixInto(out, frames)
	}

	vol := m.master.volume
	for i := range frames * m.master.channels {
		s := m.master.mix[i] * vol
		dst[i] = max(-1, min(1, s))
	}
}

// decodeFrame writes one frame of buf at frame index into out.
func decodeFrame(out []float32, f audio.Format, data []byte, frame uint32) {
	width := int(f.BitsPerSample / 8)
	off := int(frame) * f.BlockAlign()
	isFloat := f.Tag == audio.IEEEFloat
	for ch := range out {
		out[ch] = utils.DecodeSample(data[off+ch*width:], int(f.BitsPerSample), isFloat)
	}
}
