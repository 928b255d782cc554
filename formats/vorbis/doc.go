// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files with
// github.com/jfreymuth/oggvorbis.
//
// Channel count and sample rate follow the file. Samples are interleaved
// float32:
//
//	[L0, R0, L1, R1, ...]
//
// Vorbis is the usual choice for long music tracks, so sources opened from a
// seekable file implement audio.Seeker and loop cheaply when played through
// an audio.SourceStream:
//
//	stream, err := registry.StreamFromFile("theme.ogg", audio.WithLoop(44100, 0))
//
// Encoding is not supported.
package vorbis
