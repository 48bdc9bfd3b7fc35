// Package simchannel is a test-only stand-in for the opaque simulated
// server the spec describes only as a model (spec §1, "the simulated
// 'server' used to test the sender"). It is grounded directly on
// original_source/rtpudp/server-gbn.py: a network delay line, a bounded
// FIFO processing queue, a per-packet drop probability, and a
// go-back-N-style cumulative ack counter. It is never linked into either
// production binary.
package simchannel

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/cppla/udpflow/internal/acklog"
	"github.com/cppla/udpflow/internal/sendqueue"
)

// Channel simulates a peer FIFO with a fixed one-way delay, a bounded
// buffer, and a per-datagram drop probability (spec §3, "Channel
// estimate" — these are exactly the parameters the estimator infers).
type Channel struct {
	RTT          time.Duration
	ServiceDelay time.Duration
	BufferDepth  int
	DropProb     float64

	mu       sync.Mutex
	received map[uint32]bool
	base     int64
	queueLen int

	processCh chan uint32
	rng       *rand.Rand
}

// New builds a Channel. rngSeed lets tests make drop decisions
// deterministic.
func New(rtt, serviceDelay time.Duration, bufferDepth int, dropProb float64, rngSeed int64) *Channel {
	return &Channel{
		RTT:          rtt,
		ServiceDelay: serviceDelay,
		BufferDepth:  bufferDepth,
		DropProb:     dropProb,
		received:     make(map[uint32]bool),
		base:         -1,
		processCh:    make(chan uint32, 1<<16),
		rng:          rand.New(rand.NewSource(rngSeed)),
	}
}

// Serve drains q exactly like the sender's real transmit loop (clamping
// below last_ack+1, spec §4.4) and feeds each send through the simulated
// delay line, buffer, and service process, appending a cumulative ack to
// log for every packet the simulated FIFO actually serves.
func (c *Channel) Serve(ctx context.Context, q *sendqueue.Queue, log *acklog.Log) {
	go c.serve(ctx, log)

	for {
		seq, ok := q.Dequeue()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}
		lastAck, hasAck := log.LastAck()
		if hasAck && seq <= lastAck {
			seq = lastAck + 1
		}
		go c.arrive(ctx, seq)
	}
}

func (c *Channel) arrive(ctx context.Context, seq uint32) {
	timer := time.NewTimer(c.RTT)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return
	}

	c.mu.Lock()
	dropped := c.DropProb > 0 && c.rng.Float64() < c.DropProb
	if !dropped && c.queueLen >= c.BufferDepth {
		dropped = true
	}
	if !dropped {
		c.queueLen++
	}
	c.mu.Unlock()
	if dropped {
		return
	}

	select {
	case c.processCh <- seq:
	case <-ctx.Done():
	}
}

// serve processes queued arrivals at ServiceDelay pace, advancing the
// cumulative ack exactly like server-gbn.py's serve_packets.
func (c *Channel) serve(ctx context.Context, log *acklog.Log) {
	for {
		select {
		case seq := <-c.processCh:
			timer := time.NewTimer(c.ServiceDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
			c.mu.Lock()
			c.received[seq] = true
			for c.received[uint32(c.base+1)] {
				c.base++
			}
			c.queueLen--
			base := c.base
			c.mu.Unlock()
			if base >= 0 {
				log.Append(uint32(base))
			}
		case <-ctx.Done():
			return
		}
	}
}
