package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var seq atomic.Uint64

// New returns a process-unique id. The atomic sequence keeps ids
// distinct even for calls within the same nanosecond.
func New(prefix string) string {
	n := seq.Add(1)
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), n)
	}
	return fmt.Sprintf("%s-%d-%d-%s", prefix, time.Now().UnixNano(), n, hex.EncodeToString(buf))
}
