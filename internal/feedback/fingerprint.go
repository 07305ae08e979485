package feedback

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const fingerprintLen = 16

// Fingerprint derives a stable, non-reversible submitter id from the client
// address and the coarse product token of the User-Agent ("Mozilla",
// "curl", ...). The salt keeps the small IPv4 space from being brute-forced
// back to addresses.
//
// Known limitation: people behind one NAT address using the same browser
// family share a fingerprint, and a submission from one overwrites the
// other's entry for the same idea.
func Fingerprint(salt, clientIP, userAgent string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte{'|'})
	h.Write([]byte(clientIP))
	h.Write([]byte{'|'})
	h.Write([]byte(coarseAgent(userAgent)))
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}

func coarseAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if i := strings.IndexAny(ua, "/ "); i >= 0 {
		ua = ua[:i]
	}
	return strings.ToLower(ua)
}
