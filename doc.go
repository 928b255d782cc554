// SPDX-License-Identifier: EPL-2.0

// Package audvox is a voice engine for games and tools: decoded audio goes
// in, pooled voices mix it on a pluggable backend.
//
// The module is split by concern:
//
//   - audio holds formats, tracks, streams, the decoder registry and
//     sample rate and channel conversions.
//   - formats/wav, formats/mp3, formats/vorbis and formats/aiff decode files
//     into audio.Source values; formats.NewRegistry wires all of them.
//   - backend declares the Backend contract. backend/softmix mixes in pure
//     Go and backend/malgosink and backend/otosink feed its output to the
//     speakers.
//   - engine owns the Device, its voice pools, submix buses and the
//     maintenance goroutine that recycles finished voices and refills
//     streams.
//   - cmd/audvox is a command line front end for playing, rendering and
//     listing devices.
//
// # Quick Start
//
//	registry := formats.NewRegistry()
//	mixer := softmix.New()
//	dev := engine.Create(mixer)
//	defer dev.Close()
//
//	sink, _ := malgosink.Open(mixer, malgosink.Config{SampleRate: 48000, Channels: 2}, logger)
//	defer sink.Close()
//
//	track, _ := registry.TrackFromFile("coin.wav")
//	_ = dev.PlaySound(track, 1, 0, 0)
//
// Samples are float32 in [-1, 1] everywhere above the backend.
package audvox
