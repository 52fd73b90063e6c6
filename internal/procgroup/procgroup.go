// Package procgroup provides a scoped snapshot of the system-wide pid->pgid
// map. One logical operation (for example describing every foreground
// process of every child) needs many group lookups; without the snapshot
// each lookup would rescan the whole process table.
package procgroup

import (
	"github.com/loykin/ptysup/internal/procinfo"
)

// Snapshot maps pgid to member pids. It is only meaningful for the lifetime
// of the Cache that produced it.
type Snapshot map[int][]int

// Cache holds one eagerly-computed Snapshot. It must stay confined to the
// goroutine that acquired it and must be released with the scope; lookups
// after Release rescan the table.
type Cache struct {
	snap Snapshot
}

// Acquire computes the snapshot now. A failed scan yields an empty snapshot
// rather than an error so the enclosing operation always proceeds.
func Acquire() *Cache {
	return &Cache{snap: scan()}
}

// Release discards the snapshot. Call via defer so the snapshot never
// outlives its scope.
func (c *Cache) Release() { c.snap = nil }

// PidsInGroup returns the pids in group pgid, from the snapshot when one is
// held and from a fresh scan otherwise.
func (c *Cache) PidsInGroup(pgid int) []int {
	if c != nil && c.snap != nil {
		return c.snap[pgid]
	}
	return scan()[pgid]
}

// PidsInGroup is the uncached lookup used outside any Cache scope.
func PidsInGroup(pgid int) []int {
	return (*Cache)(nil).PidsInGroup(pgid)
}

func scan() Snapshot {
	m, err := procinfo.GroupMap()
	if err != nil {
		return Snapshot{}
	}
	return m
}
