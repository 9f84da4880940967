// Package idx mints and parses the ULIDs that key every postauth record.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
)

// ID is a ULID in canonical string form.
type ID string

// Zero is the empty ID. It only appears as a placeholder.
const Zero ID = ""

var ErrInvalid = errors.New("idx: invalid ulid")

// Source mints IDs. Services hold one so tests can pin the embedded time.
type Source interface {
	NewID() ID
}

// monotonic entropy is not safe for concurrent use; mu serialises it.
var (
	mu      sync.Mutex
	entropy = sync.OnceValue(func() *ulid.MonotonicEntropy {
		return ulid.Monotonic(rand.Reader, 0)
	})
)

// New mints an ID stamped with the current time.
func New() ID {
	return NewAt(time.Now())
}

// NewAt mints an ID stamped with t. IDs minted within the same millisecond
// still sort in minting order.
func NewAt(t time.Time) ID {
	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), entropy()).String())
}

// ClockSource stamps IDs with Clock's time, or the wall clock when nil.
type ClockSource struct {
	Clock clockx.Clock
}

func (s ClockSource) NewID() ID {
	if s.Clock == nil {
		return New()
	}
	return NewAt(s.Clock.Now())
}

// Parse accepts only canonical 26-character ULIDs; surrounding space is
// ignored.
func Parse(s string) (ID, error) {
	u, err := ulid.ParseStrict(strings.TrimSpace(s))
	if err != nil {
		return Zero, ErrInvalid
	}
	return ID(u.String()), nil
}

// MustParse is Parse for fixtures.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) IsZero() bool { return id == Zero }
func (id ID) String() string { return string(id) }

// Time is the millisecond timestamp embedded in id, zero when id is not a
// valid ULID.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time()).UTC()
}

// Compare orders IDs by mint time, then entropy.
func Compare(a, b ID) int {
	return strings.Compare(string(a), string(b))
}
