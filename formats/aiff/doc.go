// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF files with github.com/go-audio/aiff.
//
// Integer PCM at 8, 16, 24 or 32 bits is accepted. AIFF-C compressed data is
// rejected with ErrUnsupportedAiffLayout or ErrUnsupportedBitDepth. The
// registry built by formats.NewRegistry maps .aif, .aiff and .aifc to this
// decoder.
package aiff
