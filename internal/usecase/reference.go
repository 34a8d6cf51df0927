package usecase

import (
	"crypto/rand"
	"fmt"
	"time"
)

const referenceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReferenceID returns ALM-<unix millis>-<6 upper-case base36 chars>.
func NewReferenceID(now time.Time) string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("ALM-%d-%s", now.UnixMilli(), buf[:])
}
