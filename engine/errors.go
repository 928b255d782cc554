// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	// ErrUnavailable is recorded by Create when no output device could be
	// opened. The device keeps working as a silent no-op.
	ErrUnavailable = errors.New("audio hardware unavailable")
	// ErrClosed is returned by operations on a closed device.
	ErrClosed         = errors.New("audio device closed")
	ErrFormatMismatch = errors.New("format does not match voice format")
	ErrWrongKind      = errors.New("operation not supported by this voice kind")
	ErrNotOwned       = errors.New("voice does not belong to this device")
	ErrInvalidConfig  = errors.New("invalid engine configuration")
	ErrNilStream      = errors.New("nil stream")
)
