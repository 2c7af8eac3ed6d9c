// Package ha implements the home-automation radio protocol.
package ha

// The network is a star: one hub (address 0xF0) and up to 16 instances of
// each device class. Every radio frame is
//
//	[command][payload...]
//
// where the command byte carries a data flag (bit 7), the direction
// (bit 6, set when the hub talks to a node) and a 6-bit opcode. The payload
// layout is implied by the opcode: timestamps are 6 BCD bytes
// (year-high, year-low, month, day, hour, minute) and measurements are
// 2 BCD bytes (hundreds, units). Frames are bounded by the radio's maximum
// message length, 10 bytes by default.
//
// Addressing, retransmission and acknowledgment belong to the datagram layer
// underneath (see package datagram); this package only shapes bytes.
