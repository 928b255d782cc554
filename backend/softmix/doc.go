// SPDX-License-Identifier: EPL-2.0

// Package softmix implements backend.Backend in pure Go.
//
// Voices live in memory. Source voices decode their queued buffers on
// demand, step through them at their frequency ratio using cubic
// interpolation, apply volume and the output matrix, and add the result to
// the bus they are routed into. Buses are processed in ascending stage
// order and finally the mastering voice is clipped into the caller's slice.
//
// Nothing happens until Render is called. An output sink (see otosink and
// malgosink) calls it from the device callback; tests and offline tools
// call it directly:
//
//	mix := softmix.New()
//	dev := engine.Create(mix)
//	defer dev.Close()
//
//	out := make([]float32, 2*480)
//	mix.Render(out) // 10ms of stereo at 48 kHz
package softmix
