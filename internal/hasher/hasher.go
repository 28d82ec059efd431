// Package hasher supplies the content hashes recorded in conversion
// manifests and the identifiers handed out for submitted jobs.
package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ContentHash computes the xxHash64 of data as 16 hex chars. 64 bits
// is collision-safe for the file counts a resource pack reaches.
func ContentHash(data []byte) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], xxhash.Sum64(data))
	return hex.EncodeToString(b[:])
}

var idCounter atomic.Uint64

// NewJobID derives a process-unique job identifier from the upload
// name, the submission time and a monotonic counter.
func NewJobID(name string) string {
	h := xxhash.New()
	io.WriteString(h, name)

	var salt [16]byte
	binary.BigEndian.PutUint64(salt[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(salt[8:], idCounter.Add(1))
	h.Write(salt[:])

	var out [8]byte
	binary.BigEndian.PutUint64(out[:], h.Sum64())
	return "job-" + hex.EncodeToString(out[:])
}
