// Package link implements the framing between the host and a UART-attached
// radio bridge.
package link

// The bridge is a small microcontroller owning the radio. It forwards every
// radio packet it hears to the host and transmits whatever the host hands
// it. Both directions use the same byte-stream protocol:
//
//	[seq][code|len<<4][len?][data...]
//
// seq increments per packet (1..0xef) and lets either side detect lost or
// corrupted bytes. When a sequence check fails, the receiver sends
// [0xff][seq] (sync request) and the peer answers [0xfe][seq] (sync ack),
// after which both sides continue from the announced sequence numbers.
// Data of 7 bytes or more carries an explicit length byte. There is no
// checksum, enable UART parity if the wiring needs it.
