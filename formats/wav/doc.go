// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF WAVE files through
// github.com/go-audio/wav.
//
// Decoding accepts integer PCM at 8, 16, 24 or 32 bits, any channel count
// and any sample rate. Samples come out as float32 in [-1, 1]; 8-bit data is
// unsigned on disk and is recentred while decoding.
//
//	src, err := wav.Decoder{}.Decode(f)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
// Sources decoded from an io.ReadSeeker implement audio.Seeker, which lets
// streams loop without reopening the file.
//
// # Writing
//
// Write encodes interleaved float32 samples at the requested bit depth:
//
//	f, _ := os.Create("mix.wav")
//	err := wav.Write(f, 48000, 2, 16, samples)
//
// The audvox render command uses it to save offline mixes.
//
// # Errors
//
//   - ErrNotWavFile: no RIFF/WAVE header.
//   - ErrOnlyPCMSupported: the format tag is not integer PCM.
//   - ErrUnsupportedBitDepth: bit depth outside 8, 16, 24 and 32.
//   - ErrUnsupportedWavLayout: zero channels or sample rate.
//   - ErrUnsupportedWavChunks: the chunk list could not be parsed.
package wav
