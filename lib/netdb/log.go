package netdb

import "github.com/go-i2p/logger"

var log = logger.GetGoI2PLogger()

// shortKey returns up to the first n characters of s for log messages.
// Public keys are long and share a common DER prefix, so the tail is used.
func shortKey(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
