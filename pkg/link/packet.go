package link

import (
	"io"
	"time"
)

// Seq is a packet sequence number.
type Seq byte

// RandomSeq picks a valid sequence number to start from.
func RandomSeq() Seq {
	return Seq(byte(time.Now().UnixNano())).Next()
}

// Next returns the sequence number following s.
func (s Seq) Next() Seq {
	n := byte(s) + 1
	if !Seq(n).IsValid() {
		n = 1
	}
	return Seq(n)
}

// IsValid reports whether s is usable. 0 and 0xf0 and above are reserved.
func (s Seq) IsValid() bool {
	return s > 0 && s < 0xf0
}

// Packet codes. Codes with the high bit set are events from the bridge.
const (
	CodeAir    byte = 0x01
	CodeConfig byte = 0x02
	CodeStatus byte = 0x81

	codeMask byte = 0x8f
)

// MaxDataLen is the largest data a packet carries.
const MaxDataLen = 0x7f

const shortLenLimit = 7

// Packet is a unit on the link.
type Packet struct {
	Seq  Seq
	Code byte
	Data []byte
}

func (p *Packet) header() []byte {
	l := byte(len(p.Data))
	code := p.Code & codeMask
	if l < shortLenLimit {
		return []byte{byte(p.Seq), code | l<<4}
	}
	return []byte{byte(p.Seq), code | shortLenLimit<<4, l}
}

// Bytes encodes the packet.
func (p *Packet) Bytes() []byte {
	return append(p.header(), p.Data...)
}

// WriteTo implements io.WriterTo.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	if len(p.Data) > MaxDataLen {
		return 0, ErrDataTooLong
	}
	n, err := w.Write(p.header())
	if err != nil || len(p.Data) == 0 {
		return int64(n), err
	}
	n1, err := w.Write(p.Data)
	return int64(n + n1), err
}
