// relay.go wires the Server's dispatch logic to a real transport: QUIC
// bidirectional streams standing in for the "reliable, message-framed
// bidirectional stream transport" of spec §4.10 ("WebSocket-style"). QUIC
// is the teacher's only network dependency besides plain TCP
// (cppla-moto/go.mod requires quic-go but cppla-moto's own controllers
// never import it); the messenger relay is where that dependency finally
// gets exercised (see DESIGN.md).
package messenger

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/quic-go/quic-go"
	"go.uber.org/zap"
)

// nextProto is the ALPN identifier both relay and client negotiate over
// QUIC, the same role cppla-moto's config assigns by convention rather than
// code (the teacher has no ALPN of its own to borrow, since it never
// imports quic-go from its controllers).
const nextProto = "udpflow-messenger/1"

// Relay listens for QUIC connections and dispatches every frame on every
// accepted stream to a Server.
type Relay struct {
	srv      *Server
	logger   *zap.Logger
	listener *quic.Listener

	// waf throttles ASSOCIATE attempts per remote address, reusing the
	// teacher's ipCache pattern from controller/server.go (go-cache with a
	// short TTL) but scoped to the one control message worth rate-limiting
	// here instead of every connection.
	waf            *cache.Cache
	associateBurst int
}

// quicStream adapts a quic.Stream to the messenger package's stream
// interface (and to comparable map-key semantics for the session table).
type quicStream struct {
	s quic.Stream
}

func (q *quicStream) Write(p []byte) (int, error) { return q.s.Write(p) }

// NewRelay builds a Relay bound to addr with a freshly generated self-signed
// certificate (there is no external CA in this deployment model, matching
// the pack's other in-process QUIC examples).
func NewRelay(addr string, srv *Server, logger *zap.Logger, associateBurst int, associateWindow time.Duration) (*Relay, error) {
	tlsConf, err := generateTLSConfig()
	if err != nil {
		return nil, err
	}
	listener, err := quic.ListenAddr(addr, tlsConf, &quic.Config{
		MaxIdleTimeout: 5 * time.Minute,
	})
	if err != nil {
		return nil, err
	}

	window := associateWindow
	if window <= 0 {
		window = 30 * time.Second
	}
	burst := associateBurst
	if burst <= 0 {
		burst = 20
	}

	return &Relay{
		srv:            srv,
		logger:         logger,
		listener:       listener,
		waf:            cache.New(window, window*2),
		associateBurst: burst,
	}, nil
}

// Addr reports the bound local address, useful for tests that listen on
// an ephemeral port.
func (r *Relay) Addr() net.Addr { return r.listener.Addr() }

// Serve accepts connections until ctx is cancelled or the listener closes.
func (r *Relay) Serve(ctx context.Context) error {
	for {
		conn, err := r.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go r.handleConnection(ctx, conn)
	}
}

// Close shuts the listener down.
func (r *Relay) Close() error {
	return r.listener.Close()
}

func (r *Relay) handleConnection(ctx context.Context, conn quic.Connection) {
	remote := conn.RemoteAddr().String()
	clientIP := remote
	if host, _, err := net.SplitHostPort(remote); err == nil {
		clientIP = host
	}

	for {
		qs, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go r.handleStream(ctx, clientIP, &quicStream{s: qs})
	}
}

func (r *Relay) handleStream(ctx context.Context, clientIP string, st *quicStream) {
	defer r.srv.Disconnect(st)
	defer st.s.Close()

	for {
		frame, err := readFrame(st.s)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Debug("messenger: stream read ended", zap.Error(err))
			}
			return
		}

		if len(frame) >= 3 && frame[0] == typeManagement && frame[1] == msgAssociate {
			if !r.allowAssociate(clientIP) {
				r.logger.Warn("messenger: WAF throttling associate attempts", zap.String("clientIP", clientIP))
				writeReply(st.s, unknownError(frame[2]), r.logger)
				continue
			}
		}

		reply := r.srv.HandleFrame(st, frame)
		writeReply(st.s, reply, r.logger)
	}
}

// allowAssociate mirrors cppla-moto's ipCache counter: an address gets
// associateBurst attempts per window before the relay starts rejecting.
func (r *Relay) allowAssociate(clientIP string) bool {
	if count, found := r.waf.Get(clientIP); found {
		n := count.(int)
		if n >= r.associateBurst {
			return false
		}
		_ = r.waf.Increment(clientIP, 1)
		return true
	}
	r.waf.Set(clientIP, 1, cache.DefaultExpiration)
	return true
}

func writeReply(w io.Writer, reply []byte, logger *zap.Logger) {
	if _, err := w.Write(reply); err != nil {
		logger.Warn("messenger: failed to write reply", zap.Error(err))
	}
}

// readFrame reads one self-delimiting frame from r: 2 header bytes
// determine whether a PUSH-shaped 3-byte extension + length-prefixed
// payload follows, or a plain 1-byte id (spec §6).
func readFrame(r io.Reader) ([]byte, error) {
	head := make([]byte, 2)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}

	if head[0] == typeData && head[1] == msgPush {
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

func generateTLSConfig() (*tls.Config, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{SerialNumber: big.NewInt(1)}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	tlsCert := tls.Certificate{Certificate: [][]byte{certDER}, PrivateKey: key}
	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{nextProto},
	}, nil
}
