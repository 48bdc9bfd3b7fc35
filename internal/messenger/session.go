package messenger

import "sync"

// stream is the minimal surface the session table needs from a transport
// stream; quicStream (relay.go) implements it over a QUIC bidirectional
// stream.
type stream interface {
	Write(p []byte) (int, error)
}

// sessions binds client ids to the stream currently associated under them
// (spec §3, "Client session"). Per spec §5, the table is shared across
// per-connection handlers and therefore needs a mutual-exclusion
// discipline — unlike the teacher's single goroutine-per-listener TCP
// model, each messenger connection here is its own QUIC stream handled
// concurrently, so this is a real sync.Mutex, not a no-op.
type sessions struct {
	mu    sync.Mutex
	byID  map[byte]stream
	owner map[stream]byte
}

func newSessions() *sessions {
	return &sessions{
		byID:  make(map[byte]stream),
		owner: make(map[stream]byte),
	}
}

// associate binds id to s, unless id is already bound (spec invariant 5:
// "at most one session exists per client-id at any time").
func (s *sessions) associate(id byte, st stream) (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byID[id]; taken {
		return false
	}
	s.byID[id] = st
	s.owner[st] = id
	return true
}

// lookup reports whether id currently has an associated stream.
func (s *sessions) lookup(id byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

// release frees whatever id st owns, if any (spec §4.10, "When a stream
// closes, the associated id is freed").
func (s *sessions) release(st stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.owner[st]
	if !ok {
		return
	}
	delete(s.owner, st)
	if s.byID[id] == st {
		delete(s.byID, id)
	}
}
