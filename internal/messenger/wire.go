// Package messenger implements the relay described in spec §4.10 and §6: a
// single dispatcher over a reliable, message-framed bidirectional stream,
// a client-id -> stream session table, and bounded per-recipient mailboxes.
package messenger

import "fmt"

// Packet type byte (first byte of every frame).
const (
	typeManagement = 0
	typeControl    = 1
	typeData       = 2
)

// Packet message byte (second byte of every frame).
const (
	msgAssociate = 0
	msgGet       = 0
	msgPush      = 1

	msgAssociationSuccess = 1
	msgAssociationFailed  = 2
	msgUnknownError       = 3

	msgBufferEmpty = 1
	msgPositiveAck = 2
	msgBufferFull  = 3

	msgGetResponse = 0
)

// MaxPayloadLen is the wire limit on a PUSH payload: the 1-byte length field
// only ever encodes lengths strictly less than 255 (spec §4.10, §8 boundary
// behaviour: "length = 254 ... succeeds; length = 255 is rejected").
const MaxPayloadLen = 254

// MailboxCapacity is the default bound on a single recipient's mailbox
// (spec §3, "Length <= 100").
const MailboxCapacity = 100

func managementReply(typ, msg, id byte) []byte {
	return []byte{typ, msg, id}
}

func unknownError(id byte) []byte       { return managementReply(typeManagement, msgUnknownError, id) }
func associationFailed(id byte) []byte  { return managementReply(typeManagement, msgAssociationFailed, id) }
func associationSuccess(id byte) []byte { return managementReply(typeManagement, msgAssociationSuccess, id) }
func positiveAck(id byte) []byte        { return managementReply(typeControl, msgPositiveAck, id) }
func bufferEmpty(id byte) []byte        { return managementReply(typeControl, msgBufferEmpty, id) }
func bufferFull(id byte) []byte         { return managementReply(typeControl, msgBufferFull, id) }

// getResponse builds the 5-byte header + payload GETRESPONSE frame
// (spec §6): [2, 0, receiver_id, sender_id, length] + payload.
func getResponse(receiverID, senderID byte, payload []byte) []byte {
	out := make([]byte, 5+len(payload))
	out[0] = typeData
	out[1] = msgGetResponse
	out[2] = receiverID
	out[3] = senderID
	out[4] = byte(len(payload))
	copy(out[5:], payload)
	return out
}

// pushFrame is a parsed inbound PUSH (spec §6): 5-byte header
// [2, 1, sender_id, receiver_id, length] + payload.
type pushFrame struct {
	senderID, receiverID byte
	length               byte
	payload              []byte
}

// parsePush validates and extracts a PUSH frame's body (frame[2:]: sender,
// receiver, length, payload). It returns ok == false for any malformed
// frame, which the dispatcher reports as UNKNOWNERROR.
func parsePush(body []byte) (pushFrame, bool) {
	if len(body) < 3 {
		return pushFrame{}, false
	}
	senderID, receiverID, length := body[0], body[1], body[2]
	payload := body[3:]
	if length >= 255 {
		return pushFrame{}, false
	}
	if int(length) != len(payload) {
		return pushFrame{}, false
	}
	return pushFrame{senderID: senderID, receiverID: receiverID, length: length, payload: payload}, true
}

func (f pushFrame) String() string {
	return fmt.Sprintf("push(sender=%d receiver=%d len=%d)", f.senderID, f.receiverID, f.length)
}
