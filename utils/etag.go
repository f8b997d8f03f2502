package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// GenerateETag derives a weak validator from a document id, its last update
// time and, for lists, the number of items.
func GenerateETag(id fmt.Stringer, updatedAt time.Time, extra ...int) string {
	h := sha1.New()
	h.Write([]byte(id.String()))
	h.Write([]byte(strconv.FormatInt(updatedAt.UnixNano(), 10)))
	for _, n := range extra {
		h.Write([]byte{':'})
		h.Write([]byte(strconv.Itoa(n)))
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil))[:20] + `"`
}
