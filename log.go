package tubes

import "encoding/hex"

// dumpLimit caps the hex dump attached to debug log entries.
const dumpLimit = 512

func hexDump(b []byte) string {
	if len(b) > dumpLimit {
		return hex.Dump(b[:dumpLimit]) + "... (truncated)"
	}
	return hex.Dump(b)
}
