package estimator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/udpflow/internal/acklog"
	"github.com/cppla/udpflow/internal/sendqueue"
	"github.com/cppla/udpflow/internal/simchannel"
)

func TestStage3ReachesTargetAndClosesQueue(t *testing.T) {
	const rtt = 15 * time.Millisecond
	const serviceDelay = 3 * time.Millisecond
	const depth = 4
	const target = uint32(20)

	log := acklog.New()
	q := sendqueue.New()
	ch := simchannel.New(rtt, serviceDelay, depth, 0.05, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go ch.Serve(ctx, q, log)

	est := Estimate{RTT: rtt, ServiceDelay: serviceDelay, BufferDepth: depth}

	done := make(chan struct{})
	go func() {
		Stage3(ctx, q, log, est, target, zap.NewNop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("stage3 never returned")
	}

	last, ok := log.LastAck()
	require.True(t, ok)
	require.GreaterOrEqual(t, last, target)

	_, ok = q.Dequeue()
	require.False(t, ok, "Stage3 must close the queue once the target is reached")
}

func TestFindSZeroDropIsOneAtEveryBufferDepth(t *testing.T) {
	depths := []int{1, 2, 4, 8}
	for _, b := range depths {
		require.Equal(t, 1, FindS(b, 0))
	}
}
