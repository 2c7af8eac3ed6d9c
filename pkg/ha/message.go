package ha

import "fmt"

// Message is a received frame together with its sender.
type Message struct {
	From    Address
	Command Command
	Payload []byte
}

// Timestamp decodes the payload as a timestamp.
func (m Message) Timestamp() (Timestamp, error) {
	return DecodeTimestamp(m.Payload)
}

// Value decodes the payload as a 16-bit value.
func (m Message) Value() (uint16, error) {
	return Decode16(m.Payload)
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("%s: %s % x", m.From, m.Command, m.Payload)
}
