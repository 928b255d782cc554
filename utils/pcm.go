// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"
)

// PutFloat32s writes src into dst as little endian IEEE floats and returns
// the number of bytes written. Samples that do not fit are dropped.
func PutFloat32s(dst []byte, src []float32) int {
	n := min(len(src), len(dst)/4)
	for i := range n {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(src[i]))
	}
	return n * 4
}

// Float32s reads little endian IEEE floats from src into dst and returns
// the number of samples read.
func Float32s(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/4)
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return n
}

// DecodeSample reads one little endian sample of the given width from b and
// normalizes it to [-1,1]. 8-bit data is unsigned as in WAV files; isFloat
// selects IEEE float for 32-bit samples.
func DecodeSample(b []byte, bits int, isFloat bool) float32 {
	switch bits {
	case 8:
		return (float32(b[0]) - 128) / 128
	case 16:
		return float32(int16(binary.LittleEndian.Uint16(b))) / 32768
	case 24:
		v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
		return float32(v) / 8388608
	case 32:
		u := binary.LittleEndian.Uint32(b)
		if isFloat {
			return math.Float32frombits(u)
		}
		return float32(int32(u)) / 2147483648
	}
	return 0
}

// IntToFloat32 normalizes a signed integer sample of the given bit depth.
func IntToFloat32(v, bits int) float32 {
	switch bits {
	case 8:
		return float32(v) / 128
	case 24:
		return float32(v) / 8388608
	case 32:
		return float32(v) / 2147483648
	default:
		return float32(v) / 32768
	}
}

// Float32ToInt16 converts a sample in [-1,1] to 16-bit PCM, clamping
// anything outside the range.
func Float32ToInt16(x float32) int16 {
	x = max(-1, min(1, x))
	if x < 0 {
		return int16(x * 32768)
	}
	return int16(x * 32767)
}
