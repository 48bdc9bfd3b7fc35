// Package supervisor composes the wire codec, transport, ack log, send
// queue, and three estimator stages into the sender's lifecycle (spec §4.9).
// It owns the transport, the ack log, the send queue, and the channel
// estimate; the transmit and receive tasks it spawns hold only non-owning
// access and have lifetimes strictly shorter than the supervisor's.
package supervisor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cppla/udpflow/internal/acklog"
	"github.com/cppla/udpflow/internal/config"
	"github.com/cppla/udpflow/internal/estimator"
	"github.com/cppla/udpflow/internal/sendqueue"
	"github.com/cppla/udpflow/internal/transport"
	"github.com/cppla/udpflow/internal/wire"
)

// Exit codes per spec §6.
const (
	ExitSuccess           = 0
	ExitChannelInfeasible = 1
	ExitIOFailure         = 2
)

// Supervisor owns every sender-side resource for a single run. Re-running
// requires a new Supervisor (spec §4.9, "All observable state is reset
// only at process start").
type Supervisor struct {
	cfg    config.SenderConfig
	logger *zap.Logger

	log   *acklog.Log
	queue *sendqueue.Queue
	ep    *transport.Endpoint
}

// New constructs a Supervisor and dials the sender's UDP endpoint.
func New(cfg config.SenderConfig, logger *zap.Logger) (*Supervisor, error) {
	ep, err := transport.Dial(cfg.RemoteAddr, logger)
	if err != nil {
		return nil, err
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		log:    acklog.New(),
		queue:  sendqueue.New(),
		ep:     ep,
	}, nil
}

// Run spawns the receive and transmit tasks, runs the three estimator
// stages sequentially, and returns the process exit code described in
// spec §6.
func (s *Supervisor) Run(ctx context.Context) int {
	runCtx, cancel := context.WithCancel(ctx)

	transmitDone := make(chan struct{})
	go func() {
		defer close(transmitDone)
		s.transmitLoop(runCtx)
	}()
	go s.receiveLoop(runCtx)

	exitCode := s.runStages(runCtx)

	// Unblock both tasks regardless of which stage ended the run: closing
	// the queue wakes a Dequeue stuck waiting for work, closing the
	// endpoint wakes a Receive stuck waiting on the socket.
	s.queue.Close()
	cancel()
	_ = s.ep.Close()
	<-transmitDone

	return exitCode
}

func (s *Supervisor) runStages(runCtx context.Context) int {
	rtt, serviceDelay, err := estimator.Stage1(runCtx, s.queue, s.log, s.cfg.FirstAckTimeout, s.cfg.SecondAckTimeout, s.logger)
	if err != nil {
		s.logger.Error("sender: stage1 failed", zap.Error(err))
		if errors.Is(err, estimator.ErrChannelInfeasible) || errors.Is(err, estimator.ErrInsufficientAcks) {
			return ExitChannelInfeasible
		}
		return ExitIOFailure
	}
	s.logger.Info("sender: stage1 complete", zap.Duration("rtt", rtt), zap.Duration("serviceDelay", serviceDelay))

	bufferDepth := estimator.Stage2(runCtx, s.queue, s.log, rtt, serviceDelay)
	s.logger.Info("sender: stage2 complete", zap.Int("bufferDepth", bufferDepth))

	est := estimator.Estimate{RTT: rtt, ServiceDelay: serviceDelay, BufferDepth: bufferDepth}
	estimator.Stage3(runCtx, s.queue, s.log, est, s.cfg.TargetSeq, s.logger)

	lastAck, _ := s.log.LastAck()
	if lastAck < s.cfg.TargetSeq {
		s.logger.Error("sender: stopped before reaching target", zap.Uint32("lastAck", lastAck), zap.Uint32("target", s.cfg.TargetSeq))
		return ExitIOFailure
	}
	s.logger.Info("sender: target reached", zap.Uint32("target", s.cfg.TargetSeq))
	return ExitSuccess
}

// transmitLoop is the non-owning consumer of the send queue, bound to the
// transport for writes (spec §4.4, "clamps the value upward to
// (last-ack + 1)").
func (s *Supervisor) transmitLoop(ctx context.Context) {
	for {
		seq, ok := s.queue.Dequeue()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if lastAck, hasAck := s.log.LastAck(); hasAck && seq <= lastAck {
			seq = lastAck + 1
		}

		if err := s.ep.Send(wire.Encode(seq)); err != nil {
			s.logger.Error("sender: fatal transport error, closing endpoint", zap.Error(err))
			_ = s.ep.Close()
			return
		}
	}
}

// receiveLoop is the non-owning consumer of inbound datagrams, bound to the
// transport for reads and appending strictly in arrival order to the ack
// log (spec §5).
func (s *Supervisor) receiveLoop(ctx context.Context) {
	buf := make([]byte, 2048)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := s.ep.Receive(buf)
		if err != nil {
			return
		}
		seq, ok := wire.Decode(buf[:n])
		if !ok {
			continue
		}
		s.log.Append(seq)
	}
}
