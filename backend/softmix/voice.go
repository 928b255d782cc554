// SPDX-License-Identifier: EPL-2.0

package softmix

import (
	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/backend"
	"github.com/ik5/audvox/utils"
)

type voiceKind int

const (
	kindSource voiceKind = iota
	kindSubmix
	kindMaster
)

// queued is a submitted buffer with its read position. Positions are
// frames.
type queued struct {
	buf       audio.Buffer
	pos       uint32
	end       uint32
	loopBegin uint32
	loopEnd   uint32
	loopsLeft uint32
}

type voice struct {
	id       backend.VoiceID
	kind     voiceKind
	format   audio.Format
	channels int
	rate     uint32
	stage    uint32
	output   backend.VoiceID
	volume   float32
	ratio    float32
	matrix   []float32
	playing  bool
	queue    []*queued
	played   uint64

	// pending holds decoded frames not yet played. The first frame is
	// history for the interpolator.
	pending []float32
	phase   float64
	frame   []float32

	out []float32
	mix []float32
}

func (v *voice) prepare(frames int) {
	n := frames * v.channels
	if cap(v.mix) < n {
		v.mix = make([]float32, n)
		v.out = make([]float32, n)
	}
	v.mix = v.mix[:n]
	v.out = v.out[:n]
	clear(v.mix)
}

// pull decodes the next frame of the queue head into pending and retires
// the buffer once its play region is exhausted.
func (v *voice) pull() bool {
	if len(v.queue) == 0 {
		return false
	}

	q := v.queue[0]
	if len(v.frame) != v.channels {
		v.frame = make([]float32, v.channels)
	}
	decodeFrame(v.frame, v.format, q.buf.Data, q.pos)
	v.pending = append(v.pending, v.frame...)
	v.played++
	q.pos++

	if q.loopsLeft > 0 && q.pos >= q.loopEnd {
		q.pos = q.loopBegin
		if q.loopsLeft != audio.LoopInfinite {
			q.loopsLeft--
		}
	}
	if q.pos >= q.end {
		v.queue[0] = nil
		v.queue = v.queue[1:]
	}
	return true
}

// render produces frames output frames into v.out, stepping through the
// source at ratio*rateScale with cubic interpolation.
func (v *voice) render(frames int, rateScale float64) {
	ch := v.channels
	step := float64(v.ratio) * rateScale

	if cap(v.out) < frames*ch {
		v.out = make([]float32, frames*ch)
	}
	v.out = v.out[:frames*ch]

	if len(v.pending) == 0 {
		v.pending = append(v.pending, make([]float32, ch)...)
	}

	need := int(v.phase+float64(frames-1)*step) + 4
	for len(v.pending)/ch < need {
		if !v.pull() {
			break
		}
	}
	avail := len(v.pending) / ch

	at := func(i, c int) float32 {
		if i >= avail {
			return 0
		}
		return v.pending[i*ch+c]
	}

	for k := range frames {
		pos := v.phase + float64(k)*step
		i := int(pos)
		frac := float32(pos - float64(i))
		for c := range ch {
			s := utils.CubicInterpolate(at(i, c), at(i+1, c), at(i+2, c), at(i+3, c), frac)
			v.out[k*ch+c] = s * v.volume
		}
	}

	adv := v.phase + float64(frames)*step
	drop := int(adv)
	v.phase = adv - float64(drop)
	if drop >= avail {
		v.pending = v.pending[:0]
		v.phase = 0
		return
	}
	n := copy(v.pending, v.pending[drop*ch:])
	v.pending = v.pending[:n]
}

// mixInto adds v.out to out.mix through the output matrix.
func (v *voice) mixInto(out *voice, frames int) {
	src, dst := v.channels, out.channels
	matrix := v.matrix
	if len(matrix) != src*dst {
		matrix = defaultMatrix(src, dst)
		v.matrix = matrix
	}

	for k := range frames {
		in := v.out[k*src : (k+1)*src]
		acc := out.mix[k*dst : (k+1)*dst]
		for d := range dst {
			row := matrix[d*src : (d+1)*src]
			var sum float32
			for s, x := range in {
				sum += x * row[s]
			}
			acc[d] += sum
		}
	}
}

// defaultMatrix spreads mono to every output and folds other layouts
// channel by channel.
func defaultMatrix(src, dst int) []float32 {
	m := make([]float32, src*dst)
	for d := range dst {
		for s := range src {
			if src == 1 || s%dst == d {
				m[d*src+s] = 1
			}
		}
	}
	return m
}
