package docstore

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// ObjectID is the canonical document identifier: 24 lowercase hex characters.
// It is a plain string underneath so that an identifier read back from disk,
// one typed by a caller, and one generated here all compare equal by value.
type ObjectID string

// IDField is the reserved document key holding the identifier.
const IDField = "_id"

var (
	// processUnique is generated once per process, like a machine/pid stamp.
	processUnique [5]byte
	idCounter     uint32
)

func init() {
	if _, err := rand.Read(processUnique[:]); err != nil {
		panic(fmt.Sprintf("docstore: cannot seed object id generator: %v", err))
	}
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("docstore: cannot seed object id counter: %v", err))
	}
	idCounter = binary.BigEndian.Uint32(seed[:])
}

// NewObjectID returns a fresh identifier: 4 bytes of Unix-seconds timestamp,
// 5 process-unique random bytes, and a 3-byte rolling counter. Timestamp
// first keeps identifiers roughly sortable by creation time.
func NewObjectID() ObjectID {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
	copy(b[4:9], processUnique[:])
	n := atomic.AddUint32(&idCounter, 1)
	b[9] = byte(n >> 16)
	b[10] = byte(n >> 8)
	b[11] = byte(n)
	return ObjectID(hex.EncodeToString(b[:]))
}

// ObjectIDFromHex validates s as a 24-character lowercase hex identifier.
func ObjectIDFromHex(s string) (ObjectID, error) {
	if !IsValidObjectID(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ObjectID(s), nil
}

// IsValidObjectID reports whether s has the shape of an identifier.
func IsValidObjectID(s string) bool {
	if len(s) != 24 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Hex returns the identifier's string form.
func (id ObjectID) Hex() string { return string(id) }

// Timestamp extracts the creation time encoded in the identifier.
func (id ObjectID) Timestamp() time.Time {
	raw, err := hex.DecodeString(string(id))
	if err != nil || len(raw) < 4 {
		return time.Time{}
	}
	return time.Unix(int64(binary.BigEndian.Uint32(raw[0:4])), 0)
}

// idString normalizes a value that denotes an identifier to its string form.
// Source data may carry an identifier either as a bare string or as an
// ObjectID; both must compare equal when they denote the same value.
func idString(v any) (string, bool) {
	switch t := v.(type) {
	case ObjectID:
		return string(t), true
	case string:
		return t, true
	default:
		return "", false
	}
}
