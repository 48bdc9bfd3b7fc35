package messenger

import (
	"context"
	"crypto/tls"
	"io"

	"github.com/quic-go/quic-go"
)

// Client is a minimal QUIC-backed peer used by this package's tests to
// exercise Relay without standing up a full sender-side messenger CLI
// (the spec names no messenger client interface of its own — §6 only
// specifies the CLI for binding the relay's listen address).
type Client struct {
	conn quic.Connection
	st   quic.Stream
}

// DialClient opens one QUIC connection and one bidirectional stream to a
// Relay listening at addr.
func DialClient(ctx context.Context, addr string) (*Client, error) {
	tlsConf := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{nextProto}}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, nil)
	if err != nil {
		return nil, err
	}
	st, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, st: st}, nil
}

// Send writes a raw frame.
func (c *Client) Send(frame []byte) error {
	_, err := c.st.Write(frame)
	return err
}

// Recv reads exactly one reply frame, using the same self-delimiting rule
// the relay uses to parse inbound frames — every relay reply is either a
// 3-byte control frame or a 5-byte-header GETRESPONSE.
func (c *Client) Recv() ([]byte, error) {
	return readReplyFrame(c.st)
}

// Close tears down the stream and connection.
func (c *Client) Close() error {
	_ = c.st.Close()
	return c.conn.CloseWithError(0, "")
}

// readReplyFrame reads one relay reply: a 3-byte control frame, or a
// 5-byte-header GETRESPONSE with a length-prefixed payload.
func readReplyFrame(r io.Reader) ([]byte, error) {
	head := make([]byte, 2)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}

	if head[0] == typeData && head[1] == msgGetResponse {
		ext := make([]byte, 3)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, err
		}
		length := ext[2]
		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, err
			}
		}
		frame := make([]byte, 0, 5+int(length))
		frame = append(frame, head...)
		frame = append(frame, ext...)
		frame = append(frame, payload...)
		return frame, nil
	}

	id := make([]byte, 1)
	if _, err := io.ReadFull(r, id); err != nil {
		return nil, err
	}
	return append(head, id[0]), nil
}
