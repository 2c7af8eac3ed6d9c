package datagram

import (
	"errors"

	"github.com/robotalks/homeauto.go/pkg/ha"
)

// Broadcast is the destination every node accepts. Broadcasts aren't acked.
const Broadcast ha.Address = 0xff

// HeaderLen is the size of the header preceding each datagram.
const HeaderLen = 4

// Header flags.
const (
	FlagAck byte = 0x80
)

var errShortPacket = errors.New("packet shorter than header")

// Header is the addressing prefix of a datagram on the medium.
type Header struct {
	To    ha.Address
	From  ha.Address
	ID    byte
	Flags byte
}

// IsAck reports whether the packet acknowledges a datagram.
func (h Header) IsAck() bool {
	return h.Flags&FlagAck != 0
}

// Encode prefixes data with the header.
func (h Header) Encode(data []byte) []byte {
	pkt := make([]byte, HeaderLen+len(data))
	pkt[0], pkt[1], pkt[2], pkt[3] = byte(h.To), byte(h.From), h.ID, h.Flags
	copy(pkt[HeaderLen:], data)
	return pkt
}

// DecodePacket splits a packet into header and data.
func DecodePacket(pkt []byte) (h Header, data []byte, err error) {
	if len(pkt) < HeaderLen {
		return h, nil, errShortPacket
	}
	h = Header{To: ha.Address(pkt[0]), From: ha.Address(pkt[1]), ID: pkt[2], Flags: pkt[3]}
	return h, pkt[HeaderLen:], nil
}
