//go:build !windows

package procgroup

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func ownPgid(t *testing.T) int {
	t.Helper()
	pgid, err := unix.Getpgid(os.Getpid())
	if err != nil {
		t.Fatalf("Getpgid: %v", err)
	}
	return pgid
}

func contains(pids []int, pid int) bool {
	for _, p := range pids {
		if p == pid {
			return true
		}
	}
	return false
}

func TestCachedLookupFindsSelf(t *testing.T) {
	c := Acquire()
	defer c.Release()
	if !contains(c.PidsInGroup(ownPgid(t)), os.Getpid()) {
		t.Fatal("own pid missing from cached group lookup")
	}
}

func TestCachedLookupServesSnapshot(t *testing.T) {
	c := Acquire()
	defer c.Release()
	// lookups while the cache is held must serve the snapshot, so an
	// unknown group is answered from memory with no pids
	if pids := c.PidsInGroup(-42); len(pids) != 0 {
		t.Fatalf("snapshot lookup of bogus group returned %v", pids)
	}
}

func TestUncachedLookupAfterRelease(t *testing.T) {
	c := Acquire()
	c.Release()
	if !contains(c.PidsInGroup(ownPgid(t)), os.Getpid()) {
		t.Fatal("released cache must fall back to a fresh scan")
	}
}

func TestNilCacheScans(t *testing.T) {
	if !contains(PidsInGroup(ownPgid(t)), os.Getpid()) {
		t.Fatal("package-level lookup must scan the table")
	}
}
