// SPDX-License-Identifier: EPL-2.0

package softmix

import "errors"

var (
	ErrMasterExists     = errors.New("mastering voice already exists")
	ErrInvalidVoice     = errors.New("invalid voice")
	ErrInvalidBuffer    = errors.New("invalid buffer")
	ErrInvalidParameter = errors.New("invalid parameter")
)
