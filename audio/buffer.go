// SPDX-License-Identifier: EPL-2.0

package audio

// LoopInfinite as a Buffer.LoopCount repeats the loop region until the voice
// is stopped.
const LoopInfinite = 255

// Buffer describes one region of sample data handed to a backend voice.
// Positions and lengths are in frames; a zero PlayLength plays all of Data
// and a zero LoopLength loops from LoopBegin to the end of the play region.
//
// The backend keeps a reference to Data until the buffer has been consumed,
// so callers must not overwrite it while it is queued.
type Buffer struct {
	Data        []byte
	PlayBegin   uint32
	PlayLength  uint32
	LoopBegin   uint32
	LoopLength  uint32
	LoopCount   uint32
	EndOfStream bool
}
