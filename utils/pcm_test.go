// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFloat32Bytes(t *testing.T) {
	t.Parallel()

	src := []float32{0, 1, -1, 0.5, -0.25}
	buf := make([]byte, 4*len(src))
	require.Equal(t, len(buf), PutFloat32s(buf, src))
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, buf[4:8], "little endian IEEE 1.0")

	got := make([]float32, len(src))
	require.Equal(t, len(src), Float32s(got, buf))
	assert.Equal(t, src, got)
}

func TestFloat32BytesShortBuffers(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 10)
	assert.Equal(t, 8, PutFloat32s(buf, []float32{1, 2, 3}))

	dst := make([]float32, 1)
	assert.Equal(t, 1, Float32s(dst, buf))
	assert.Equal(t, float32(1), dst[0])
}

func TestDecodeSample(t *testing.T) {
	t.Parallel()

	one := make([]byte, 4)
	PutFloat32s(one, []float32{0.75})

	tests := []struct {
		name    string
		b       []byte
		bits    int
		isFloat bool
		want    float32
	}{
		{"8-bit silence", []byte{128}, 8, false, 0},
		{"8-bit min", []byte{0}, 8, false, -1},
		{"16-bit max", []byte{0xff, 0x7f}, 16, false, 32767.0 / 32768},
		{"16-bit min", []byte{0x00, 0x80}, 16, false, -1},
		{"24-bit half", []byte{0x00, 0x00, 0x40}, 24, false, 0.5},
		{"24-bit negative", []byte{0x00, 0x00, 0xc0}, 24, false, -0.5},
		{"32-bit int min", []byte{0, 0, 0, 0x80}, 32, false, -1},
		{"32-bit float", one, 32, true, 0.75},
		{"unsupported width", []byte{1, 2}, 12, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tt.want, DecodeSample(tt.b, tt.bits, tt.isFloat), 1e-7)
		})
	}
}

func TestIntToFloat32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, float32(-1), IntToFloat32(-128, 8))
	assert.Equal(t, float32(0.5), IntToFloat32(16384, 16))
	assert.Equal(t, float32(-1), IntToFloat32(-8388608, 24))
	assert.Equal(t, float32(0.5), IntToFloat32(1<<30, 32))
	assert.Equal(t, float32(0.5), IntToFloat32(16384, 0), "unknown depths use 16 bit")
}

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, math.MaxInt16},
		{-1, math.MinInt16},
		{0.5, 16383},
		{-0.5, -16384},
		{1.5, math.MaxInt16},
		{-100, math.MinInt16},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Float32ToInt16(tt.in), "input %v", tt.in)
	}
}

func TestFloat32ToInt16Monotonic(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float32Range(-2, 2).Draw(t, "a")
		b := rapid.Float32Range(-2, 2).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		if Float32ToInt16(a) > Float32ToInt16(b) {
			t.Fatalf("%v -> %d is above %v -> %d", a, Float32ToInt16(a), b, Float32ToInt16(b))
		}
	})
}
