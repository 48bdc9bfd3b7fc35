package estimator

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/udpflow/internal/acklog"
	"github.com/cppla/udpflow/internal/sendqueue"
)

// Stage3 drives the steady-state delivery loop ("profit", spec §4.7) until
// the latest ack reaches target, then closes q to signal the transmit loop
// to stop.
func Stage3(ctx context.Context, q *sendqueue.Queue, log *acklog.Log, est Estimate, target uint32, logger *zap.Logger) {
	defer q.Close()

	interval := time.Duration(math.Max(float64(est.ServiceDelay), float64(est.RTT+est.ServiceDelay)/float64(est.BufferDepth)))
	stallWindow := time.Duration(float64(est.RTT) * 1.1)

	var sent, recv int
	recvBase := log.Len()

	// With no ack yet, LastAck reports the -1 sentinel as ok == false, so
	// the first packet sent is seq 0.
	seq, seqValid := log.LastAck()
	progressAck := seq
	lastCorrectTs := time.Now()

	for {
		currentAck, _ := log.LastAck()
		if currentAck >= target {
			break
		}
		if ctx.Err() != nil {
			return
		}

		p := 0.0
		if sent > 0 {
			p = math.Max(0, 1-float64(recv+est.BufferDepth)/float64(sent))
		}
		s := FindS(est.BufferDepth, p)
		if seqValid {
			seq++
		}
		seqValid = true

		for i := 0; i < s; i++ {
			q.Enqueue(seq)
			sent++

			sleepCtx(ctx, time.Duration(float64(interval)*1.1))

			if ack, ok := log.LastAck(); ok && ack > progressAck {
				progressAck = ack
				lastCorrectTs = time.Now()
			}

			if time.Since(lastCorrectTs) >= stallWindow {
				older, okOlder := log.AtFromEnd(s + 1)
				latest, okLatest := log.Last()
				if okOlder && okLatest && latest.Seq == older.Seq {
					logger.Debug("stage3: stall detected, restarting from latest ack",
						zap.Uint32("latestAck", latest.Seq), zap.Int("burst", s))
					// Cooldown before resuming, mirroring the original
					// client's post-stall pause so the peer's buffer has
					// visibly drained before the next probe.
					sleepCtx(ctx, time.Duration(float64(est.RTT)*1.05))
					seq = latest.Seq
					progressAck = latest.Seq
					lastCorrectTs = time.Now()
					break
				}
			}
		}

		recv = log.Len() - recvBase
	}
}

// FindS returns the burst size s >= 1 that minimises expected wall-clock
// time per delivered packet, given buffer depth B and per-datagram drop
// probability p (spec §4.8). It solves f(x) = x / (1 - B*p^x) on
// [L, 10] by ternary search to a precision of 0.1, then rounds up.
func FindS(bufferDepth int, p float64) int {
	if p <= 0 {
		return 1
	}
	b := float64(bufferDepth)

	lo := math.Log(1/b) / math.Log(p) * 1.1
	hi := 10.0
	if lo < 1 {
		lo = 1
	}
	if lo > hi {
		lo = hi
	}

	f := func(x float64) float64 {
		denom := 1 - b*math.Pow(p, x)
		if denom <= 0 {
			return math.Inf(1)
		}
		return x / denom
	}

	for hi-lo > 0.1 {
		m1 := lo + (hi-lo)/3
		m2 := hi - (hi-lo)/3
		if f(m1) < f(m2) {
			hi = m2
		} else {
			lo = m1
		}
	}

	s := int(math.Ceil((lo + hi) / 2))
	if s < 1 {
		s = 1
	}
	if s > 10 {
		s = 10
	}
	return s
}
