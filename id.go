package auth

import (
	"crypto/rand"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/oklog/ulid/v2"
)

// ID is the time-sortable identifier used as the primary key for every
// durable record. The canonical encoding is a 26 character ULID string,
// so ids sort lexically by creation time and round-trip to their
// creation timestamp.
type ID string

// NilID is the zero identifier.
const NilID ID = ""

// NewID returns a new identifier for the current instant using a
// cryptographic randomness source.
func NewID() ID {
	return NewIDAt(time.Now().UTC())
}

// NewIDAt returns a new identifier stamped with the given time.
func NewIDAt(t time.Time) ID {
	id, err := ulid.New(ulid.Timestamp(t), rand.Reader)
	if err != nil {
		// rand.Reader does not fail on supported platforms
		panic(err)
	}
	return ID(id.String())
}

// ParseID validates a raw identifier. It fails with ErrMalformedID when
// the input cannot be decoded into a timestamp-prefixed id.
func ParseID(raw string) (ID, error) {
	if _, err := ulid.ParseStrict(raw); err != nil {
		return NilID, errors.Wrap(err, ErrMalformedID.Category, ErrMalformedID.Message).
			WithTextCode(TextCodeMalformedID).
			WithMetadata(map[string]any{"raw": raw})
	}
	return ID(raw), nil
}

// MustID parses a raw identifier and panics on malformed input. Use for
// literals in tests and seeds.
func MustID(raw string) ID {
	id, err := ParseID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Time extracts the creation timestamp embedded in the identifier. It
// returns the zero time for malformed ids.
func (id ID) Time() time.Time {
	parsed, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(parsed.Time())
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id == NilID
}

func (id ID) String() string {
	return string(id)
}
