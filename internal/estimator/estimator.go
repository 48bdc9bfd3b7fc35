// Package estimator implements the three-stage channel estimation procedure
// of spec §4.5-§4.8: round-trip/service-delay measurement, buffer-depth
// discovery, and the steady-state delivery loop with its burst-size
// optimisation.
package estimator

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/udpflow/internal/acklog"
	"github.com/cppla/udpflow/internal/sendqueue"
)

// Estimate collects the channel parameters refined across the three stages
// (spec §3, "Channel estimate").
type Estimate struct {
	RTT          time.Duration
	ServiceDelay time.Duration
	BufferDepth  int
	DropProb     float64
}

// ErrChannelInfeasible reports that Stage 1 observed no acks across both
// attempts: the channel drops everything, and the supervisor must abort
// with the "high loss" exit code (spec §4.5, §6 exit code 1).
var ErrChannelInfeasible = errors.New("estimator: channel infeasible, no acks observed")

// ErrInsufficientAcks reports that Stage 1 saw exactly one ack: rtt is
// known but service_delay cannot be computed, and loss is judged too high
// to continue (spec §4.5).
var ErrInsufficientAcks = errors.New("estimator: only one ack observed, loss too high to continue")

var errNoAcks = errors.New("estimator: no acks within timeout")

const burstSendCount = 8
const maxStage1Attempts = 2
const burstDrop = 8.0

// Stage1 estimates rtt and service_delay by sending a burst of
// burstSendCount copies of last_ack+1 and timing the first two acks it
// produces (spec §4.5). It retries once on total silence before reporting
// ErrChannelInfeasible.
func Stage1(ctx context.Context, q *sendqueue.Queue, log *acklog.Log, firstTimeout, secondTimeout time.Duration, logger *zap.Logger) (rtt, serviceDelay time.Duration, err error) {
	for attempt := 0; attempt < maxStage1Attempts; attempt++ {
		rtt, serviceDelay, err = stage1Attempt(ctx, q, log, firstTimeout, secondTimeout)
		switch {
		case err == nil:
			return rtt, serviceDelay, nil
		case errors.Is(err, errNoAcks):
			logger.Warn("stage1: extremely high loss, retrying", zap.Int("attempt", attempt))
			continue
		default:
			logger.Error("stage1: insufficient acks to continue", zap.Duration("rtt", rtt), zap.Error(err))
			return rtt, 0, err
		}
	}
	logger.Error("stage1: channel infeasible after retry")
	return 0, 0, ErrChannelInfeasible
}

func stage1Attempt(ctx context.Context, q *sendqueue.Queue, log *acklog.Log, firstTimeout, secondTimeout time.Duration) (time.Duration, time.Duration, error) {
	start := log.Len()
	t0 := time.Now()

	// With no ack yet, last_ack is the -1 sentinel, so the probe is seq 0.
	next := uint32(0)
	if lastAck, ok := log.LastAck(); ok {
		next = lastAck + 1
	}
	for i := 0; i < burstSendCount; i++ {
		q.Enqueue(next)
	}

	if !log.Await(ctx, start+1, firstTimeout) {
		return 0, 0, errNoAcks
	}
	firstRec, _ := log.At(start)
	rtt := firstRec.At.Sub(t0)

	if !log.Await(ctx, start+2, secondTimeout) {
		return rtt, 0, ErrInsufficientAcks
	}
	secondRec, _ := log.At(start + 1)
	serviceDelay := secondRec.At.Sub(firstRec.At)

	seenAfterTwo := log.Len() - start
	remaining := burstSendCount - seenAfterTwo
	if remaining > 0 {
		time.Sleep(time.Duration(float64(remaining) * float64(serviceDelay) * 1.1))
	}

	final := log.FromIndex(start)
	if len(final) >= 2 {
		var sum time.Duration
		for i := 1; i < len(final); i++ {
			sum += final[i].At.Sub(final[i-1].At)
		}
		serviceDelay = sum / time.Duration(len(final)-1)
	}
	rtt = final[0].At.Sub(t0)

	return rtt, serviceDelay, nil
}

// RequiredBufferDepth returns R = ceil((rtt + service_delay) / service_delay),
// the depth the sender needs to keep the peer continuously busy without
// overflow (spec §4.6).
func RequiredBufferDepth(rtt, serviceDelay time.Duration) int {
	return int(math.Ceil(float64(rtt+serviceDelay) / float64(serviceDelay)))
}

// Stage2 discovers the peer's FIFO depth, or confirms it meets
// RequiredBufferDepth (spec §4.6).
func Stage2(ctx context.Context, q *sendqueue.Queue, log *acklog.Log, rtt, serviceDelay time.Duration) int {
	r := RequiredBufferDepth(rtt, serviceDelay)
	packetSendCount := int(math.Ceil(3 * float64(r) / 2))

	start := log.Len()
	next := uint32(0)
	if lastAck, ok := log.LastAck(); ok {
		next = lastAck + 1
	}
	for i := 0; i < packetSendCount; i++ {
		q.Enqueue(next + uint32(i))
	}

	sleepDur := time.Duration((float64(rtt) + float64(packetSendCount)*float64(serviceDelay)) * 1.1)
	sleepCtx(ctx, sleepDur)

	threshold := time.Duration(float64(serviceDelay) * burstDrop)

	prevAt := time.Now()
	if prev, ok := log.At(start - 1); ok {
		prevAt = prev.At
	} else if start == 0 {
		// only the sentinel precedes this burst; treat "now" as the
		// earliest reasonable baseline rather than panicking on a
		// nonexistent real record.
		prevAt = time.Now()
	}

	running := 0
	best := -1
	for _, rec := range log.FromIndex(start) {
		gap := rec.At.Sub(prevAt)
		if gap >= threshold {
			obs := running + 1
			if best == -1 || obs < best {
				best = obs
			}
			running = 0
		} else {
			running++
		}
		prevAt = rec.At
	}
	if nowGap := time.Since(prevAt); nowGap >= threshold {
		obs := running + 1
		if best == -1 || obs < best {
			best = obs
		}
	}

	if best == -1 || best > r {
		return r
	}
	return best
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
