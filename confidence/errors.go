// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package confidence

import "errors"

// ErrUnknownVertex is returned by operations on a vertex id that was never
// passed to Init.
var ErrUnknownVertex = errors.New("confidence: unknown vertex")
