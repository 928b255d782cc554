// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audvox/utils"
)

const convertBufFrames = 1024

// Conversion wraps a Source into another one. Closing the result closes the
// wrapped source.
type Conversion func(Source) Source

// ToRate converts sources to rate. See Resample.
func ToRate(rate int) Conversion {
	return func(src Source) Source { return Resample(src, rate) }
}

// ToMono folds sources down to one channel. See Downmix.
func ToMono() Conversion {
	return Downmix
}

// Convert applies conv to src in order.
func Convert(src Source, conv ...Conversion) Source {
	for _, c := range conv {
		if c != nil {
			src = c(src)
		}
	}
	return src
}

// Resample returns src running at rate, interpolating with a Catmull-Rom
// spline. src is returned as is when it already runs at rate or rate is not
// positive.
func Resample(src Source, rate int) Source {
	if rate <= 0 || src.SampleRate() == rate || src.Channels() <= 0 {
		return src
	}
	ch := src.Channels()
	return &resampler{
		src:  src,
		rate: rate,
		ch:   ch,
		step: float64(src.SampleRate()) / float64(rate),
		buf:  make([]float32, convertBufFrames*ch),
	}
}

type resampler struct {
	src  Source
	rate int
	ch   int
	step float64
	buf  []float32

	// pending holds source frames still inside the interpolation window.
	// Its first frame is history, a copy of the first source frame at the
	// start of the stream.
	pending []float32
	phase   float64
	primed  bool
	eof     bool
}

func (r *resampler) SampleRate() int { return r.rate }
func (r *resampler) Channels() int   { return r.ch }
func (r *resampler) BufSize() int    { return r.src.BufSize() }

func (r *resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("close resampled source: %w", err)
	}
	return nil
}

func (r *resampler) fill(need int) error {
	for !r.eof && len(r.pending)/r.ch < need {
		n, err := r.src.ReadSamples(r.buf)
		n -= n % r.ch
		if n > 0 {
			if !r.primed {
				r.pending = append(r.pending, r.buf[:r.ch]...)
				r.primed = true
			}
			r.pending = append(r.pending, r.buf[:n]...)
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			r.eof = true
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// at returns sample c of pending frame i, holding the last frame past the
// end of the data.
func (r *resampler) at(i, c, avail int) float32 {
	if i >= avail {
		i = avail - 1
	}
	return r.pending[i*r.ch+c]
}

func (r *resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.ch != 0 {
		return 0, ErrInvalidDstSize
	}

	frames := len(dst) / r.ch
	written := 0
	for written < frames {
		i := int(r.phase)
		if err := r.fill(i + 4); err != nil {
			return written * r.ch, err
		}
		avail := len(r.pending) / r.ch
		if i+1 >= avail {
			break
		}

		frac := float32(r.phase - float64(i))
		out := dst[written*r.ch : (written+1)*r.ch]
		for c := range out {
			out[c] = utils.CubicInterpolate(r.at(i, c, avail), r.at(i+1, c, avail),
				r.at(i+2, c, avail), r.at(i+3, c, avail), frac)
		}
		written++
		r.phase += r.step
	}

	if drop := min(int(r.phase), len(r.pending)/r.ch); drop > 0 {
		n := copy(r.pending, r.pending[drop*r.ch:])
		r.pending = r.pending[:n]
		r.phase -= float64(drop)
	}

	if written == 0 && r.eof {
		return 0, io.EOF
	}
	return written * r.ch, nil
}

// Downmix returns src averaged into a single channel. Mono sources are
// returned as is.
func Downmix(src Source) Source {
	if src.Channels() <= 1 {
		return src
	}
	return &downmix{src: src}
}

type downmix struct {
	src Source
	tmp []float32
}

func (d *downmix) SampleRate() int { return d.src.SampleRate() }
func (d *downmix) Channels() int   { return 1 }
func (d *downmix) BufSize() int    { return d.src.BufSize() }

func (d *downmix) Close() error {
	if err := d.src.Close(); err != nil {
		return fmt.Errorf("close downmixed source: %w", err)
	}
	return nil
}

func (d *downmix) ReadSamples(dst []float32) (int, error) {
	ch := d.src.Channels()
	want := len(dst) * ch
	if cap(d.tmp) < want {
		d.tmp = make([]float32, want)
	}

	n, err := d.src.ReadSamples(d.tmp[:want])
	frames := n / ch
	scale := 1 / float32(ch)
	for f := range frames {
		var sum float32
		for _, s := range d.tmp[f*ch : (f+1)*ch] {
			sum += s
		}
		dst[f] = sum * scale
	}
	return frames, err
}
