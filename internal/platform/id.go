package platform

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 10

func NewID() string {
	return uuid.New().String()
}

func NewName(prefix string) string {
	b := make([]byte, shortIDLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return prefix + string(b)
}

// NewTimeOrderedID returns an identifier that sorts lexicographically by
// creation time. Backup and recovery ids use this so the newest record can
// be picked with a plain sort.
func NewTimeOrderedID(prefix string, t time.Time) string {
	return prefix + "-" + t.UTC().Format("20060102T150405.000000000") + "-" + NewName("")
}
