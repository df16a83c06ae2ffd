// SPDX-License-Identifier: MIT

package config

import "errors"

// ErrUnknownConfigField classifies strict YAML parse failures caused by
// unknown keys.
var ErrUnknownConfigField = errors.New("unknown config field")
