package message

import (
	"errors"
	"fmt"
)

// MaxFrameID is the largest extended (29-bit) CAN identifier.
const MaxFrameID = 1<<29 - 1

// MaxFrameData is the maximum payload length of a classic CAN frame.
const MaxFrameData = 8

var (
	// ErrFrameID is returned (wrapped) when an identifier exceeds MaxFrameID.
	ErrFrameID = errors.New("message: frame identifier out of range")

	// ErrFrameLength is returned (wrapped) when a payload exceeds MaxFrameData.
	ErrFrameLength = errors.New("message: frame payload too long")
)

// Frame is a classic CAN frame, with an extended identifier.
type Frame struct {
	ID   uint32
	Data [MaxFrameData]byte
	Len  uint8
}

// NewFrame validates and copies the given identifier and payload.
func NewFrame(id uint32, data []byte) (Frame, error) {
	if id > MaxFrameID {
		return Frame{}, fmt.Errorf("%w: %#x", ErrFrameID, id)
	}
	if len(data) > MaxFrameData {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameLength, len(data))
	}
	f := Frame{ID: id, Len: uint8(len(data))}
	copy(f.Data[:], data)
	return f, nil
}

// DispatchID returns the 29-bit identifier.
func (x Frame) DispatchID() uint32 {
	return x.ID & MaxFrameID
}

// Payload returns the data bytes, backed by the frame.
func (x *Frame) Payload() []byte {
	return x.Data[:min(int(x.Len), MaxFrameData)]
}

// String formats the frame like candump, e.g. 195B4123#0102.
func (x Frame) String() string {
	return fmt.Sprintf("%08X#%X", x.DispatchID(), x.Payload())
}
