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

func TestFindSZeroDropReturnsOne(t *testing.T) {
	for _, b := range []int{1, 2, 5, 10} {
		require.Equal(t, 1, FindS(b, 0), "buffer depth %d", b)
	}
}

func TestFindSNonDecreasingInP(t *testing.T) {
	prev := 1
	for _, p := range []float64{0.01, 0.1, 0.2, 0.3, 0.4, 0.5} {
		s := FindS(4, p)
		require.GreaterOrEqual(t, s, prev, "FindS must not decrease as p grows (p=%v)", p)
		prev = s
	}
}

func TestFindSClampedToTen(t *testing.T) {
	require.LessOrEqual(t, FindS(2, 0.9), 10)
}

func TestRequiredBufferDepth(t *testing.T) {
	cases := []struct {
		rtt, serviceDelay time.Duration
		want              int
	}{
		{10 * time.Millisecond, 10 * time.Millisecond, 2},
		{20 * time.Millisecond, 10 * time.Millisecond, 3},
		{25 * time.Millisecond, 10 * time.Millisecond, 4},
		{0, 10 * time.Millisecond, 1},
	}
	for _, c := range cases {
		require.Equal(t, c.want, RequiredBufferDepth(c.rtt, c.serviceDelay))
	}
}

func TestStage1MeasuresRTTAndServiceDelay(t *testing.T) {
	const rtt = 30 * time.Millisecond
	const serviceDelay = 4 * time.Millisecond

	log := acklog.New()
	q := sendqueue.New()
	ch := simchannel.New(rtt, serviceDelay, 10, 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Serve(ctx, q, log)

	logger := zap.NewNop()
	gotRTT, gotServiceDelay, err := Stage1(ctx, q, log, time.Second, time.Second, logger)
	require.NoError(t, err)
	require.InDelta(t, float64(rtt), float64(gotRTT), float64(15*time.Millisecond))
	require.InDelta(t, float64(serviceDelay), float64(gotServiceDelay), float64(6*time.Millisecond))
}

func TestStage1ChannelInfeasibleWhenNothingArrives(t *testing.T) {
	log := acklog.New()
	q := sendqueue.New()
	logger := zap.NewNop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := Stage1(ctx, q, log, 20*time.Millisecond, 20*time.Millisecond, logger)
	require.ErrorIs(t, err, ErrChannelInfeasible)
}

func TestStage2ConvergesOnBufferDepth(t *testing.T) {
	const rtt = 20 * time.Millisecond
	const serviceDelay = 4 * time.Millisecond
	const depth = 3

	log := acklog.New()
	q := sendqueue.New()
	ch := simchannel.New(rtt, serviceDelay, depth, 0, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Serve(ctx, q, log)

	got := Stage2(ctx, q, log, rtt, serviceDelay)
	require.GreaterOrEqual(t, got, 1)
	require.LessOrEqual(t, got, RequiredBufferDepth(rtt, serviceDelay))
}
