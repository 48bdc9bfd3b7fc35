// Package transport implements the sender's connected datagram endpoint
// (spec §4.2): an ephemeral local UDP socket connected to a single remote
// address, non-blocking fire-and-forget sends, and event-driven receive.
//
// The teacher repo's net.Dial/net.Listen plumbing (controller/direct.go,
// controller/server.go) is the model for dial errors and logging; there is
// no UDP-specific precedent in cppla-moto because it only proxies TCP, so
// this package is the one place that reaches past the teacher straight to
// net.DialUDP/net.ListenUDP — no teacher or pack dependency wraps a raw,
// uncontrolled datagram socket (see DESIGN.md).
package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Endpoint is a connected UDP socket: every Send targets the address given
// to Dial, and every inbound datagram necessarily came from that address.
type Endpoint struct {
	conn   *net.UDPConn
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Dial resolves remoteAddr and connects a UDP socket to it, binding the
// local side to an ephemeral port.
func Dial(remoteAddr string, logger *zap.Logger) (*Endpoint, error) {
	raddr, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve remote addr %q: %w", remoteAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial udp %q: %w", remoteAddr, err)
	}
	return &Endpoint{conn: conn, logger: logger}, nil
}

// Send fires seq's encoding at the connected peer. Failures other than a
// transient "would block" condition are logged and returned so the caller
// can decide whether they are fatal (spec §4.2, §7 "Transient I/O").
func (e *Endpoint) Send(payload []byte) error {
	_, err := e.conn.Write(payload)
	if err != nil {
		if isTransient(err) {
			e.logger.Warn("transient send failure, will retry via queue clamp", zap.Error(err))
			return nil
		}
		e.logger.Error("fatal send failure", zap.Error(err))
		return fmt.Errorf("udp send: %w", err)
	}
	return nil
}

// Receive blocks for a single inbound datagram and returns its raw bytes.
// Callers (the receive task) are expected to loop, decode, and route each
// result into the ack log (spec §4.2, "Inbound delivery is event-driven").
func (e *Endpoint) Receive(buf []byte) (int, error) {
	n, err := e.conn.Read(buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close shuts the endpoint down exactly once (spec §4.2, "The endpoint is
// closed exactly once when the supervisor completes or aborts").
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.conn.Close()
	})
	return e.closeErr
}

func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
