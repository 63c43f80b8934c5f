// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package sync

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Digest returns the hex-encoded xxhash64 of an index body.
func Digest(body []byte) string {
	h := xxhash.New()
	_, _ = h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
