package lib

import (
	"math/rand"
	"time"
)

func init() {
	rand.Seed(time.Now().UnixMilli())
}

// NewUID returns a random value for the UIDVALIDITY of a new mailbox.
// Zero is reserved by the protocol so it is never returned.
func NewUID() uint32 {
	for {
		if uid := rand.Uint32(); uid != 0 {
			return uid
		}
	}
}
