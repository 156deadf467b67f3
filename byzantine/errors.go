// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package byzantine

import "errors"

// ErrEquivocation is returned by RecordVote when peer has previously voted
// with different vote bytes for the same vertex.
var ErrEquivocation = errors.New("byzantine: equivocation detected")
