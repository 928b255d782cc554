// SPDX-License-Identifier: EPL-2.0

// Package audio holds the data side of the engine: PCM formats, tracks,
// streams and the decoders that produce them.
//
// # Sources
//
// Every decoder returns a Source:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// ReadSamples fills dst with interleaved float32 in [-1, 1] and returns
// io.EOF once the data is exhausted. Sources may also implement Seeker,
// Lengther and LoopPointer; streams use them when present.
//
// # Tracks and streams
//
// A PCMTrack is a whole file decoded to 32-bit float, ready to submit to a
// voice in one buffer. A SourceStream decodes on demand in chunks of
// ChunkSize bytes and is what stream voices keep queued:
//
//	reg := formats.NewRegistry()
//	track, err := reg.TrackFromFile("coin.wav")
//	stream, err := reg.StreamFromFile("theme.ogg", audio.WithChunkSize(64<<10))
//
// # Conversions
//
// Resample changes the rate with cubic interpolation and Downmix averages
// channels into mono. Both wrap a Source, so they chain:
//
//	src = audio.Convert(src, audio.ToMono(), audio.ToRate(48000))
//
// TrackFromFile accepts the same conversions and applies them before
// decoding.
//
// # Registry
//
// A Registry maps format names and file extensions to decoders:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{}, ".wav", ".wave")
//	dec, err := reg.Lookup("jump.WAV")
package audio
