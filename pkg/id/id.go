// Package id mints time-ordered ULIDs. Trade ids and forced-insert
// fingerprint suffixes both come from here, so they sort by creation time
// and never repeat inside a process.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Source hands out strictly increasing ULIDs, even within one millisecond.
type Source struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewSource seeds a source; clock may be nil for time.Now.
func NewSource(seed int64, clock func() time.Time) *Source {
	if clock == nil {
		clock = time.Now
	}
	return &Source{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
		now:     clock,
	}
}

func (s *Source) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(s.now().UTC()), s.entropy)
	if err != nil {
		// Monotonic entropy overflowed inside one millisecond.
		panic(err)
	}
	return v.String()
}

var std = NewSource(cryptoSeed(), nil)

// New returns the next id from the process-wide source.
func New() string {
	return std.Next()
}

func cryptoSeed() int64 {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return seed
}
