// SPDX-License-Identifier: EPL-2.0

package malgosink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ik5/audvox/utils"
)

type constRenderer struct {
	value float32
	calls int
}

func (r *constRenderer) Render(dst []float32) {
	r.calls++
	for i := range dst {
		dst[i] = r.value
	}
}

func TestOpen_TooManyChannels(t *testing.T) {
	s, err := Open(&constRenderer{}, Config{Channels: maxChannels + 1}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, s)
}

func TestSink_OnData(t *testing.T) {
	r := &constRenderer{value: -0.25}
	s := &Sink{r: r, channels: 2, logger: zap.NewNop()}

	out := make([]byte, 3*2*4)
	s.onData(out, nil, 3)

	got := make([]float32, 6)
	utils.Float32s(got, out)
	assert.Equal(t, []float32{-0.25, -0.25, -0.25, -0.25, -0.25, -0.25}, got)
	assert.Equal(t, 1, r.calls)
}

func TestSink_OnDataAfterClose(t *testing.T) {
	r := &constRenderer{value: 1}
	s := &Sink{r: r, channels: 2, logger: zap.NewNop(), closed: true}

	out := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	s.onData(out, nil, 1)

	assert.Equal(t, make([]byte, 8), out)
	assert.Zero(t, r.calls)
}
