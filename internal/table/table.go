// Package table implements the in-memory, per-IPv4 state table the audit
// engine consults and mutates. It is the sole owner and allocator of
// Record values: callers never construct one directly.
//
// Grounded on the original's ipdetails doubly-linked list (original_source
// antidote.h/handledata.c), re-expressed as a hash map per spec.md §9 — list
// topology was never part of the contract, only key uniqueness and
// amortised O(1) lookup.
package table

import (
	"net"
	"time"
)

// UnknownMAC is the sentinel value meaning "no reply has been observed yet
// for this IP".
var UnknownMAC [6]byte

// Record is one tracked IPv4 address and its ARP traffic counters.
type Record struct {
	IP        [4]byte
	MAC       [6]byte
	Requests  uint
	Replies   uint
	LastReset time.Time
}

// MACKnown reports whether r has pinned a MAC from an observed reply.
func (r *Record) MACKnown() bool {
	return r.MAC != UnknownMAC
}

// IPString renders the record's key as dotted decimal, for alert messages
// and the debug dump.
func (r *Record) IPString() string {
	return net.IP(r.IP[:]).String()
}

// MACString renders the record's MAC as colon-separated hex.
func (r *Record) MACString() string {
	return net.HardwareAddr(r.MAC[:]).String()
}

// Seed carries the fields used to populate a freshly inserted Record.
type Seed struct {
	MAC [6]byte
}

// Table is the per-IPv4 state table. It is not safe for concurrent use —
// the spec's single-threaded capture loop is its only caller (spec.md §5).
type Table struct {
	records map[[4]byte]*Record
	now     func() time.Time
}

// New constructs an empty Table. now defaults to time.Now and is overridable
// only for tests that need deterministic clocks.
func New() *Table {
	return &Table{
		records: make(map[[4]byte]*Record),
		now:     time.Now,
	}
}

// Lookup returns the record for ip, or nil if absent. The returned pointer
// is valid only until the next EvictIfExpired call against the same ip.
func (t *Table) Lookup(ip [4]byte) *Record {
	return t.records[ip]
}

// Insert creates and stores a new Record for ip, seeded per seed. It is the
// caller's responsibility to have first confirmed ip is absent via Lookup —
// Insert unconditionally overwrites any existing entry.
func (t *Table) Insert(ip [4]byte, seed Seed) *Record {
	r := &Record{
		IP:        ip,
		MAC:       seed.MAC,
		LastReset: t.now().Truncate(time.Second),
	}
	t.records[ip] = r
	return r
}

// EvictIfExpired removes the record for ip if now-lastReset exceeds timeout,
// returning the evicted record (or nil if the record was kept or absent).
// The boundary is strict: a gap exactly equal to timeout is kept.
func (t *Table) EvictIfExpired(ip [4]byte, now time.Time, timeout time.Duration) (kept bool, evicted *Record) {
	r, ok := t.records[ip]
	if !ok {
		return true, nil
	}
	if now.Sub(r.LastReset) > timeout {
		delete(t.records, ip)
		return false, r
	}
	return true, nil
}

// Reset zeroes r's counters and bumps its LastReset to now, per the
// threshold-triggered reset in spec.md §4.3 step 9.
func (t *Table) Reset(r *Record, now time.Time) {
	r.Requests = 0
	r.Replies = 0
	r.LastReset = now.Truncate(time.Second)
}

// Len returns the number of tracked records.
func (t *Table) Len() int {
	return len(t.records)
}

// Records returns every tracked record. Iteration order is unspecified, per
// spec.md §4.2 ("no iteration contract is exposed except for a debug dump").
func (t *Table) Records() []*Record {
	out := make([]*Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, r)
	}
	return out
}
