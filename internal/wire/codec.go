// Package wire implements the sender-side datagram codec: a single 4-byte
// big-endian unsigned integer, carrying a sequence number outbound and a
// cumulative ack inbound (spec §4.1, §6).
package wire

import "encoding/binary"

// Size is the fixed length of every valid datagram on the wire.
const Size = 4

// Encode returns the 4-byte big-endian encoding of seq.
func Encode(seq uint32) []byte {
	buf := make([]byte, Size)
	binary.BigEndian.PutUint32(buf, seq)
	return buf
}

// Decode parses an inbound datagram's cumulative ack. Any datagram whose
// length is not exactly Size is rejected, per spec §4.1 ("Any inbound
// datagram not exactly 4 bytes long is ignored").
func Decode(b []byte) (seq uint32, ok bool) {
	if len(b) != Size {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}
