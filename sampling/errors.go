// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sampling

import "errors"

// ErrNetworkTooSmall is returned when fewer trusted peers are available
// than the configured minimum network size or the configured sample size.
var ErrNetworkTooSmall = errors.New("sampling: fewer trusted peers than minimum network size or sample size")
