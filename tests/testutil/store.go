package testutil

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kvn/taskhub/internal/store"
)

// testDBSeq distinguishes the named in-memory databases handed out by
// NewTestStore so parallel tests never share state.
var testDBSeq atomic.Int64

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	// A plain ":memory:" DSN gives every pooled connection its own empty
	// database; a named shared-cache DSN keeps the pool on one database.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	s, err := store.NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// FixedClock returns a clock function frozen at the given instant.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// SequentialIDs returns an id generator producing prefix-1, prefix-2, ...
// for deterministic identities in tests.
func SequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
