// SPDX-License-Identifier: EPL-2.0

// Package engine turns decoded audio into mixed playback on a
// backend.Backend.
//
// A Device owns the backend, a master bus and a goroutine ticking at
// Config.UpdateRate. Source voices are borrowed from the device's
// VoiceMaker and come in three kinds:
//
//   - KindSound plays submitted tracks once and returns to its pool by
//     itself when they drained.
//   - KindStatic stays with its holder until Release.
//   - KindStream keeps BufferCount chunks of an audio.Stream queued,
//     seeking back to the loop start when the stream loops.
//
// Quick start:
//
//	mixer := softmix.New()
//	dev := engine.Create(mixer, engine.WithLogger(logger))
//	defer dev.Close()
//
//	track, _ := registry.TrackFromFile("jump.wav")
//	_ = dev.PlaySound(track, 1, 0, 0)
//
//	music := engine.NewMusicPlayer(dev)
//	stream, _ := registry.StreamFromFile("theme.ogg")
//	_ = music.Play(stream, true)
//
// A machine without audio hardware still gets a working Device: Available
// reports false and every voice is silent.
package engine
