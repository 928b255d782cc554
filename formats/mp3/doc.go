// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1 Layer III files with
// github.com/hajimehoshi/go-mp3.
//
// The decoder always produces stereo float32 at the file's sample rate. Use
// audio.ToMono or audio.ToRate when a voice needs something else:
//
//	track, err := registry.TrackFromFile("theme.mp3", audio.ToMono())
//
// Seeking is supported when the input is an io.ReadSeeker.
package mp3
