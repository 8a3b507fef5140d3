package utils

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"time"
)

// NewQueueID returns a random numeric identifier suitable as a fresh
// session queue id (umqid). The server expects a decimal string.
func NewQueueID() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fallback to timestamp if crypto/rand is unavailable.
		return strconv.FormatInt(time.Now().UnixNano()&0xffffffff, 10)
	}
	return strconv.FormatUint(uint64(binary.BigEndian.Uint32(buf[:])), 10)
}
