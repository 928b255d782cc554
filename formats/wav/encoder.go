// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/audvox/utils"
)

// Write encodes interleaved float32 samples as integer PCM of the given
// bit depth. The header sizes are patched on completion, hence the
// io.WriteSeeker.
func Write(w io.WriteSeeker, sampleRate, channels, bitDepth int, samples []float32) error {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return ErrUnsupportedBitDepth
	}
	if channels <= 0 || len(samples)%channels != 0 {
		return ErrUnsupportedWavLayout
	}

	enc := gowav.NewEncoder(w, sampleRate, bitDepth, channels, formatPCM)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = floatToInt(s, bitDepth)
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func floatToInt(s float32, bitDepth int) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}

	switch bitDepth {
	case 8:
		return int(s*127) + 128
	case 16:
		return int(utils.Float32ToInt16(s))
	case 24:
		return int(s * 8388607)
	default:
		return int(float64(s) * 2147483647)
	}
}
