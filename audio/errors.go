// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrInvalidSourceData wraps every decoder failure: the data cannot be
	// played and there is nothing to fall back to.
	ErrInvalidSourceData = errors.New("invalid source data")

	ErrUnsupportedFormat = errors.New("unsupported sample format")
	ErrStreamNotLoaded   = errors.New("stream is not loaded")
	ErrUnknownFormat     = errors.New("no decoder registered for format")
	ErrSeekUnsupported   = errors.New("source cannot seek")
)
