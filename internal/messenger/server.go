package messenger

import (
	"go.uber.org/zap"

	"github.com/cppla/udpflow/internal/config"
)

// Server owns both shared tables the relay needs: sessions and mailboxes
// (spec §3, "The messenger server exclusively owns sessions and
// mailboxes"). It replaces the teacher's module-scope globals with an
// explicit value (spec §9 DESIGN NOTES, "Globals").
type Server struct {
	cfg       config.RelayConfig
	logger    *zap.Logger
	sessions  *sessions
	mailboxes *mailboxes
}

// NewServer builds a Server from cfg. The mailbox capacity defaults to
// MailboxCapacity (100) when cfg leaves it unset. cfg.MaxPayloadLen is not
// read: PUSH payloads are always limited by parsePush's length < 255 rule.
func NewServer(cfg config.RelayConfig, logger *zap.Logger) *Server {
	capacity := cfg.MailboxCapacity
	if capacity <= 0 {
		capacity = MailboxCapacity
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		sessions:  newSessions(),
		mailboxes: newMailboxes(capacity),
	}
}

// HandleFrame dispatches a single decoded frame arriving on st and returns
// the reply frame to write back (spec §4.10's dispatch table).
func (srv *Server) HandleFrame(st stream, frame []byte) []byte {
	if len(frame) < 2 {
		// Too short to even carry [type, message]; nothing to safely echo
		// an id from, so report id 0.
		return unknownError(0)
	}
	typ, msg := frame[0], frame[1]

	switch typ {
	case typeManagement:
		return srv.handleManagement(st, msg, frame)
	case typeControl:
		return srv.handleControl(msg, frame)
	case typeData:
		return srv.handleData(msg, frame)
	default:
		id := byte(0)
		if len(frame) >= 3 {
			id = frame[2]
		}
		srv.logger.Warn("messenger: unknown frame type", zap.Uint8("type", typ))
		return unknownError(id)
	}
}

func (srv *Server) handleManagement(st stream, msg byte, frame []byte) []byte {
	if len(frame) < 3 {
		return unknownError(0)
	}
	id := frame[2]

	if msg != msgAssociate {
		srv.logger.Warn("messenger: unknown management message", zap.Uint8("message", msg), zap.Uint8("id", id))
		return unknownError(id)
	}

	if ok := srv.sessions.associate(id, st); !ok {
		srv.logger.Warn("messenger: association already bound", zap.Uint8("id", id))
		return unknownError(id)
	}
	srv.logger.Info("messenger: associated", zap.Uint8("id", id))
	return associationSuccess(id)
}

func (srv *Server) handleControl(msg byte, frame []byte) []byte {
	if len(frame) < 3 {
		return unknownError(0)
	}
	id := frame[2]

	if msg != msgGet {
		srv.logger.Warn("messenger: unknown control message", zap.Uint8("message", msg), zap.Uint8("id", id))
		return unknownError(id)
	}

	if !srv.sessions.lookup(id) {
		return associationFailed(id)
	}
	m, ok := srv.mailboxes.pop(id)
	if !ok {
		return bufferEmpty(id)
	}
	return getResponse(id, m.senderID, m.payload)
}

func (srv *Server) handleData(msg byte, frame []byte) []byte {
	if len(frame) < 3 {
		return unknownError(0)
	}
	senderID := frame[2]

	if msg != msgPush {
		srv.logger.Warn("messenger: unknown data message", zap.Uint8("message", msg), zap.Uint8("id", senderID))
		return unknownError(senderID)
	}

	if !srv.sessions.lookup(senderID) {
		return associationFailed(senderID)
	}

	push, ok := parsePush(frame[2:])
	if !ok {
		srv.logger.Warn("messenger: malformed push", zap.Uint8("sender", senderID))
		return unknownError(senderID)
	}

	stored := message{senderID: push.senderID, payload: append([]byte(nil), push.payload...)}
	if !srv.mailboxes.push(push.receiverID, stored) {
		return bufferFull(senderID)
	}
	return positiveAck(senderID)
}

// Disconnect releases whatever client id st owns (spec §4.10, "When a
// stream closes, the associated id is freed; mailboxes persist across
// disconnects").
func (srv *Server) Disconnect(st stream) {
	srv.sessions.release(st)
}
