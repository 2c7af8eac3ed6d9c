// Package bcd converts packed binary-coded decimal bytes.
//
// A packed BCD byte carries two decimal digits, tens in the high nibble and
// units in the low nibble, so 0x25 stands for 25.
package bcd

import (
	"errors"
	"fmt"
)

// ErrOutOfRange indicates a value can't be represented by one BCD byte.
var ErrOutOfRange = errors.New("value out of BCD range")

// MalformedError reports a byte with a nibble greater than 9.
type MalformedError struct {
	Value byte
}

// Error implements error.
func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed BCD byte 0x%02x", e.Value)
}

// Decode converts a BCD byte to its decimal value using n - 6*(n>>4).
// Decode doesn't validate: a nibble above 9 yields the formula's result
// as-is (e.g. 0x1a decodes to 20), use Parse to reject such input.
func Decode(b byte) uint8 {
	return b - 6*(b>>4)
}

// Valid reports whether both nibbles are decimal digits.
func Valid(b byte) bool {
	return b>>4 <= 9 && b&0x0f <= 9
}

// Parse decodes a BCD byte and rejects malformed digits.
func Parse(b byte) (uint8, error) {
	if !Valid(b) {
		return 0, &MalformedError{Value: b}
	}
	return Decode(b), nil
}

// Encode converts a value in 0..99 to a BCD byte.
func Encode(v uint8) (byte, error) {
	if v > 99 {
		return 0, ErrOutOfRange
	}
	return (v/10)<<4 | v%10, nil
}
