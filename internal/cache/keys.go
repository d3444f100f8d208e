package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PrefixSnapshot marks cached node RPC responses
const PrefixSnapshot = "rpc"

// SnapshotKey derives the cache key for an RPC method response from a given
// node address. The address is lowercased so "Localhost:18332" and
// "localhost:18332" share entries.
func SnapshotKey(addr, method string) string {
	normalized := strings.ToLower(addr) + "/" + method
	hash := sha256.Sum256([]byte(normalized))
	return PrefixSnapshot + ":" + hex.EncodeToString(hash[:])
}
