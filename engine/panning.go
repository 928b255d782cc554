// SPDX-License-Identifier: EPL-2.0

package engine

import "math"

// panMatrix fills m (src*dst coefficients, row major by destination
// channel) for the given pan.
func panMatrix(m []float32, src, dst int, pan float32) {
	clear(m)

	switch {
	case src == 1 && dst == 1:
		m[0] = 1
	case src == 1 && dst == 2:
		m[0], m[1] = 1, 1
		if pan > 0 {
			m[0] = 1 - pan
		}
		if pan < 0 {
			m[1] = 1 + pan
		}
	case src == 2 && dst == 1:
		m[0], m[1] = 1, 1
	case src == 2 && dst == 2:
		if pan <= 0 {
			m[0] = 0.5*pan + 1
			m[1] = -0.5 * pan
			m[2] = 0
			m[3] = pan + 1
		} else {
			m[0] = 1 - pan
			m[1] = 0
			m[2] = 0.5 * pan
			m[3] = 1 - 0.5*pan
		}
	default:
		// mono spreads everywhere, wider layouts fold channel i onto i mod dst
		for s := range src {
			if src == 1 {
				for d := range dst {
					m[d] = 1
				}
				break
			}
			m[(s%dst)*src+s] = 1
		}
	}
}

// frequencyRatio combines pitch in octaves with the doppler factor. A zero
// scale or factor disables doppler: backends reject a ratio <= 0 (see
// softmix Mixer.SetFrequencyRatio), so a zero factor cannot mean silence.
func frequencyRatio(pitch, dopplerFactor, dopplerScale float32) float32 {
	doppler := float32(1)
	if dopplerScale != 0 && dopplerFactor != 0 {
		doppler = dopplerFactor * dopplerScale
	}
	return float32(math.Pow(2, float64(pitch))) * doppler
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}
