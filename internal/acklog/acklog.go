// Package acklog implements the append-only acknowledgment record described
// in spec §3 and §4.3: a (timestamp, highest-ack-seen) list seeded with a
// sentinel so index -1 and pairwise iteration are always well-defined.
package acklog

import (
	"context"
	"sync"
	"time"
)

// Record is a single (timestamp, seq) observation. Timestamps come from a
// monotonic clock (time.Now() in Go already carries a monotonic reading) per
// spec §9 "Monotonic clock".
type Record struct {
	At  time.Time
	Seq uint32
}

// Log is the append-only ack record list. The zero value is not usable; call
// New. A Log is safe for concurrent Append and read access.
type Log struct {
	mu      sync.Mutex
	records []Record
}

// New returns a Log seeded with the sentinel (-inf, -1) pair described in
// spec §4.3. Since Seq is unsigned, the sentinel seq is represented
// out-of-band: Len() counts only real records, and index -1 is reachable via
// At(-1) without the caller ever seeing the sentinel's seq value.
func New() *Log {
	return &Log{}
}

// Append adds a new record. Per spec invariant 1, callers append exactly one
// record per valid (4-byte) inbound datagram.
func (l *Log) Append(seq uint32) {
	l.mu.Lock()
	l.records = append(l.records, Record{At: time.Now(), Seq: seq})
	l.mu.Unlock()
}

// Len returns the number of real (non-sentinel) records appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// At returns the record at index idx, where idx == -1 yields the sentinel
// (zero time, seq 0, ok false signals "sentinel"). Negative idx < -1 or
// idx >= Len() returns ok == false.
func (l *Log) At(idx int) (rec Record, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx == -1 {
		return Record{}, false
	}
	if idx < -1 || idx >= len(l.records) {
		return Record{}, false
	}
	return l.records[idx], true
}

// Last returns the most recently appended record, or ok == false if the log
// is still empty (only the sentinel exists).
func (l *Log) Last() (rec Record, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == 0 {
		return Record{}, false
	}
	return l.records[len(l.records)-1], true
}

// LastAck returns the highest seq observed so far, or -1 (as a signed
// sentinel reported via ok == false) if nothing has been acked yet.
func (l *Log) LastAck() (seq uint32, ok bool) {
	rec, ok := l.Last()
	if !ok {
		return 0, false
	}
	return rec.Seq, true
}

// FromIndex returns a copy of every record appended at or after idx
// (idx == 0 means "from the start"; negative idx is clamped to 0).
func (l *Log) FromIndex(idx int) []Record {
	if idx < 0 {
		idx = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx >= len(l.records) {
		return nil
	}
	out := make([]Record, len(l.records)-idx)
	copy(out, l.records[idx:])
	return out
}

// AtFromEnd returns the record offset positions back from the most recent
// one (offset == 0 is the last record, offset == 1 the one before it, and so
// on). ok is false when fewer than offset+1 records exist yet, which callers
// must treat as "no stall/ack pattern observed yet" (spec §9 Open Question).
func (l *Log) AtFromEnd(offset int) (rec Record, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.records)
	idx := n - 1 - offset
	if idx < 0 || idx >= n {
		return Record{}, false
	}
	return l.records[idx], true
}

// pollInterval is how often Await re-checks Len() against target. A polling
// wait (spec §9: "a polling loop with yield" is an acceptable implementation
// of the growth-signal contract) sidesteps the awkward interaction between
// sync.Cond and context cancellation.
const pollInterval = 2 * time.Millisecond

// Await blocks until Len() >= target, ctx is cancelled, or deadline elapses
// (deadline <= 0 disables the timeout, relying solely on ctx). It returns
// false on timeout/cancellation.
func (l *Log) Await(ctx context.Context, target int, deadline time.Duration) bool {
	var timeoutC <-chan time.Time
	if deadline > 0 {
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		timeoutC = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if l.Len() >= target {
		return true
	}
	for {
		select {
		case <-ticker.C:
			if l.Len() >= target {
				return true
			}
		case <-timeoutC:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
