// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/ik5/audvox/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMP3Reader simulates gomp3.Decoder for testing
type mockMP3Reader struct {
	sampleRate int
	data       []byte
	offset     int
	chunk      int
}

func newMockReader(rate int, samples ...int16) *mockMP3Reader {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return &mockMP3Reader{sampleRate: rate, data: data}
}

func (m *mockMP3Reader) SampleRate() int { return m.sampleRate }
func (m *mockMP3Reader) Length() int64   { return int64(len(m.data)) }

func (m *mockMP3Reader) Read(buf []byte) (int, error) {
	if m.offset >= len(m.data) {
		return 0, io.EOF
	}
	if m.chunk > 0 && len(buf) > m.chunk {
		buf = buf[:m.chunk]
	}
	n := copy(buf, m.data[m.offset:])
	m.offset += n
	return n, nil
}

func (m *mockMP3Reader) Seek(offset int64, _ int) (int64, error) {
	m.offset = int(offset)
	return offset, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	mock := newMockReader(44100, 16384, -16384, 32767, -32768)
	src := &source{dec: mock, sampleRate: 44100}

	assert.Equal(t, 2, src.Channels())
	assert.Equal(t, int64(2), src.Frames())

	buf := make([]float32, 8)
	n, err := src.ReadSamples(buf)
	assert.ErrorIs(t, err, io.EOF)
	require.Equal(t, 4, n)
	assert.InDelta(t, 0.5, buf[0], 1e-6)
	assert.InDelta(t, -0.5, buf[1], 1e-6)
	assert.InDelta(t, 1.0, buf[2], 1e-4)
	assert.InDelta(t, -1.0, buf[3], 1e-6)
}

func TestSource_ReadSamples_ShortReads(t *testing.T) {
	t.Parallel()

	// the decoder hands out 3 bytes at a time, samples must still line up
	mock := newMockReader(22050, 100, 200, 300, 400)
	mock.chunk = 3
	src := &source{dec: mock, sampleRate: 22050}

	buf := make([]float32, 4)
	n, err := src.ReadSamples(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	assert.InDelta(t, 400.0/32768, buf[3], 1e-6)

	n, err = src.ReadSamples(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSource_SeekFrame(t *testing.T) {
	t.Parallel()

	mock := newMockReader(8000, 1, 2, 3, 4, 5, 6)
	src := &source{dec: mock, sampleRate: 8000, seekable: true}

	require.NoError(t, src.SeekFrame(2))
	assert.Equal(t, 8, mock.offset)

	buf := make([]float32, 2)
	n, err := src.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 5.0/32768, buf[0], 1e-7)

	src.seekable = false
	assert.ErrorIs(t, src.SeekFrame(0), audio.ErrSeekUnsupported)
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	mock := newMockReader(44100, make([]int16, 1<<16)...)
	src := &source{dec: mock, sampleRate: 44100}
	buf := make([]float32, 4096)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := src.ReadSamples(buf); err == io.EOF {
			mock.offset = 0
		}
	}
}
