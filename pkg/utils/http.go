package utils

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultUserAgent identifies the tagger to web services.
const DefaultUserAgent = "genretag/1.0"

// RetryAfter reads a Retry-After header given in seconds. It falls back to
// one second when the header is missing or not a number.
func RetryAfter(h http.Header) time.Duration {
	if ra := strings.TrimSpace(h.Get("Retry-After")); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if when, err := http.ParseTime(ra); err == nil {
			if d := time.Until(when); d > 0 {
				return d
			}
		}
	}
	return time.Second
}
