// Package xid issues prefix-tagged identifiers for stored records, so
// an ID is self-describing in logs ("tx-...", "audit-...").
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// suffixBytes is the length of the random tail appended after the
// timestamp.
const suffixBytes = 8

// New returns prefix-<unixnano>-<hex suffix>. When the random source
// fails the timestamp alone has to do.
func New(prefix string) string {
	stamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	suffix := make([]byte, suffixBytes)
	if _, err := rand.Read(suffix); err != nil {
		return prefix + "-" + stamp
	}
	return prefix + "-" + stamp + "-" + hex.EncodeToString(suffix)
}
