// Package ordernum generates human-presentable order numbers of the form
// DT-<base36 millis>-<6 random chars>, e.g. DT-LK3J9A2-X7B2QZ. The random
// suffix keeps two calls in the same millisecond from colliding.
package ordernum

import (
	"crypto/rand"
	mathrand "math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	prefix      = "DT"
	alphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLength = 6
)

// Generate never fails: if the system entropy source errors it falls back to
// a non-cryptographic source rather than returning an error to checkout.
func Generate() string {
	timestamp := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return prefix + "-" + timestamp + "-" + token()
}

func token() string {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		for i := range buf {
			buf[i] = byte(mathrand.UintN(256))
		}
	}
	out := make([]byte, tokenLength)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
