// Package frame implements the wire codec for UTP frames: fixed-layout
// header fields plus an MD5 integrity tag, encoded little-endian the way
// the teacher's BitStream writes fixed-width fields one at a time.
package frame

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// Type occupies the low nibble of Flags; modifiers occupy the high nibble.
// Combinations like SYN|ACK or NAK|REQ are ordinary bitwise-OR values, not
// members of a closed enum.
const (
	TypeMSG byte = 0
	TypeNAK byte = 1
	TypeACK byte = 2
	TypeSYN byte = 4
	TypeFIN byte = 8

	FlagEND byte = 16
	FlagREQ byte = 32
	FlagRES byte = 64

	typeMask = 0x0F
)

// MD5Size is the length in bytes of the integrity tag.
const MD5Size = md5.Size

// HeaderSize is the number of bytes before the payload: size(2) + seq(8) +
// time(8) + flags(1) + md5(16).
const HeaderSize = 2 + 8 + 8 + 1 + MD5Size

// Frame is one UTP wire frame. Msg is sized to the connection's negotiated
// payload size (or the fixed handshake size during negotiation); Size
// records how many of its leading bytes are meaningful payload.
type Frame struct {
	Size  int16
	Seq   int64
	Time  int64
	Flags byte
	MD5   [MD5Size]byte
	Msg   []byte
}

// New allocates a frame with a payload buffer of the given capacity.
func New(payloadSize int) *Frame {
	return &Frame{Msg: make([]byte, payloadSize)}
}

// Type extracts the frame's type from the low nibble of flags.
func Type(flags byte) byte { return flags & typeMask }

// HasFlag reports whether every bit of option is set in flags.
func HasFlag(flags, option byte) bool { return flags&option == option }

// ExactFlags reports whether flags is exactly option, bit for bit.
func ExactFlags(flags, option byte) bool { return flags == option }

// PackProperties sets the header fields and zeroes the payload buffer.
// Time and the integrity tag are left for the endpoint to fill in at send
// time.
func (f *Frame) PackProperties(size int16, seq int64, flags byte) {
	f.Size = size
	f.Seq = seq
	f.Flags = flags
	for i := range f.Msg {
		f.Msg[i] = 0
	}
}

// PackHandshake builds a SYN / SYN|ACK / ACK frame carrying a proposed or
// negotiated payload size (in the size field) and window size (as decimal
// ASCII in the payload). Handshake frames always use the fixed handshake
// payload size, independent of whatever payload size is being negotiated.
func (f *Frame) PackHandshake(seq int64, flags byte, payloadSize, windowSize int16) {
	f.PackProperties(payloadSize, seq, flags)
	s := fmt.Sprintf("%d", windowSize)
	copy(f.Msg, s)
}

// PackMessage builds a MSG frame carrying chunk as payload, setting the END
// modifier when the caller reports the input stream exhausted.
func (f *Frame) PackMessage(chunk []byte, seq int64, exhausted bool) {
	flags := TypeMSG
	if exhausted {
		flags |= FlagEND
	}
	f.PackProperties(int16(len(chunk)), seq, flags)
	copy(f.Msg, chunk)
}

// IntegrityAttach computes the MD5 tag over the frame with the tag field
// zeroed, then stores it.
func (f *Frame) IntegrityAttach() {
	f.MD5 = [MD5Size]byte{}
	f.MD5 = md5.Sum(f.Encode())
}

// IntegrityVerify recomputes the tag over the frame with the tag field
// zeroed and compares it against the stored value.
func (f *Frame) IntegrityVerify() bool {
	want := f.MD5
	f.MD5 = [MD5Size]byte{}
	got := md5.Sum(f.Encode())
	f.MD5 = want
	return got == want
}

// Encode serializes the frame to its wire representation.
func (f *Frame) Encode() []byte {
	buf := make([]byte, HeaderSize+len(f.Msg))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(f.Size))
	binary.LittleEndian.PutUint64(buf[2:10], uint64(f.Seq))
	binary.LittleEndian.PutUint64(buf[10:18], uint64(f.Time))
	buf[18] = f.Flags
	copy(buf[19:19+MD5Size], f.MD5[:])
	copy(buf[HeaderSize:], f.Msg)
	return buf
}

// Decode parses a wire frame. The payload size is derived from the buffer
// length, so the caller need not know it in advance.
func Decode(buf []byte) (*Frame, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("frame: short buffer: %d bytes", len(buf))
	}
	f := New(len(buf) - HeaderSize)
	f.Size = int16(binary.LittleEndian.Uint16(buf[0:2]))
	f.Seq = int64(binary.LittleEndian.Uint64(buf[2:10]))
	f.Time = int64(binary.LittleEndian.Uint64(buf[10:18]))
	f.Flags = buf[18]
	copy(f.MD5[:], buf[19:19+MD5Size])
	copy(f.Msg, buf[HeaderSize:])
	return f, nil
}

// EncodedSize returns the wire size of a frame carrying the given payload
// size.
func EncodedSize(payloadSize int) int { return HeaderSize + payloadSize }
