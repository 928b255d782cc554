// SPDX-License-Identifier: EPL-2.0

// Package formats wires every bundled decoder into an audio.Registry.
package formats

import (
	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/formats/aiff"
	"github.com/ik5/audvox/formats/mp3"
	"github.com/ik5/audvox/formats/vorbis"
	"github.com/ik5/audvox/formats/wav"
)

// NewRegistry returns a registry knowing wav, vorbis, mp3 and aiff files by
// their usual extensions.
func NewRegistry() *audio.Registry {
	r := audio.NewRegistry()
	RegisterAll(r)
	return r
}

// RegisterAll adds the bundled decoders to r.
func RegisterAll(r *audio.Registry) {
	r.Register("wav", wav.Decoder{}, "wave")
	r.Register("vorbis", vorbis.Decoder{}, "ogg", "oga")
	r.Register("mp3", mp3.Decoder{})
	r.Register("aiff", aiff.Decoder{}, "aif", "aifc")
}
