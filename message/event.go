package message

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// EventKind distinguishes the messages that carry an event ID.
type EventKind uint8

const (
	// EventReport indicates that an event occurred.
	EventReport EventKind = iota
	// ProducerIdentified indicates a node produces the event.
	ProducerIdentified
	// ConsumerIdentified indicates a node consumes the event.
	ConsumerIdentified
)

// ErrEventIDLength is returned (wrapped) when decoding an event ID from
// anything other than exactly 8 bytes.
var ErrEventIDLength = errors.New("message: event id must be 8 bytes")

// Event is a message carrying a 64-bit event ID.
type Event struct {
	ID     uint64
	Source uint64 // node ID of the sender, 48 bits
	Kind   EventKind
}

// DispatchID returns the event ID.
func (x Event) DispatchID() uint64 { return x.ID }

func (k EventKind) String() string {
	switch k {
	case EventReport:
		return "EventReport"
	case ProducerIdentified:
		return "ProducerIdentified"
	case ConsumerIdentified:
		return "ConsumerIdentified"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// EventIDBytes encodes an event ID in network byte order.
func EventIDBytes(id uint64) (b [8]byte) {
	binary.BigEndian.PutUint64(b[:], id)
	return b
}

// EventIDFromBytes decodes an event ID, encoded in network byte order.
func EventIDFromBytes(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: got %d", ErrEventIDLength, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
