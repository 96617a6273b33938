// ===============================
// FILE: internal/tokens/tokens.go
// ===============================

// Package tokens generates the per-request identifiers the mutation
// protocol requires. Collision avoidance is this package's concern;
// callers only require that repeated calls yield distinct values.
package tokens

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"

	"github.com/gofrs/uuid"
)

// ClientMutationID returns a fresh client mutation id.
func ClientMutationID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// IdempotenceToken returns a per-request nonce the service uses to
// deduplicate retried submissions.
func IdempotenceToken() string {
	return uuid.Must(uuid.NewV4()).String()
}

// SessionID returns a random decimal session identifier in the numeric
// format the service expects.
func SessionID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	n := binary.BigEndian.Uint64(buf[:]) >> 1
	return strconv.FormatUint(n, 10)
}
