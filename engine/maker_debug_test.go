// SPDX-License-Identifier: EPL-2.0

//go:build audiodebug

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceMaker_DoubleDestroyPanics(t *testing.T) {
	t.Parallel()

	d, _ := newTestDevice(t)
	m := d.Voices()

	v, err := m.ObtainStatic(stereo)
	require.NoError(t, err)
	m.Destroy(v)

	assert.Panics(t, func() { m.Destroy(v) })
}
