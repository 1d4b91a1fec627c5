package tgproto

import (
	"encoding/hex"
	"net"

	"github.com/OneOfOne/xxhash"
)

// hashIP renders ip as a short non-reversible hash for log lines, so
// connection logs don't leak client IPs verbatim (adapted from the
// teacher's mtglib.hashIP).
func hashIP(ip net.IP) string {
	if ip == nil {
		return "?"
	}

	sum := xxhash.Checksum64(ip)

	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (8 * i))
	}

	return hex.EncodeToString(buf)
}
