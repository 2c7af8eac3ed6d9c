package ha

import (
	"errors"
	"fmt"

	"github.com/robotalks/homeauto.go/pkg/bcd"
)

var (
	// ErrPayloadTooLarge indicates the payload doesn't fit in a frame.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrFrameEmpty indicates a frame without the command byte.
	ErrFrameEmpty = errors.New("empty frame")
	// ErrFrameTooLong indicates a received frame exceeds the agreed length.
	ErrFrameTooLong = errors.New("frame too long")
	// ErrShortPayload indicates the payload is shorter than its opcode requires.
	ErrShortPayload = errors.New("payload too short")
	// ErrNoAck indicates a reliable send wasn't acknowledged by the destination.
	ErrNoAck = errors.New("no acknowledgment")
	// ErrSendFailed indicates the transport rejected a send.
	ErrSendFailed = errors.New("send failed")
)

// ConfigError reports an invalid address or opcode constant.
type ConfigError struct {
	Field string
	Value int
	Limit int
}

// Error implements error.
func (e *ConfigError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("invalid %s %d, must be less than %d", e.Field, e.Value, e.Limit)
	}
	return fmt.Sprintf("invalid %s %d", e.Field, e.Value)
}

// MalformedBCDError reports a payload field holding a malformed BCD byte.
type MalformedBCDError struct {
	Field string
	Err   *bcd.MalformedError
}

// Error implements error.
func (e *MalformedBCDError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

// Unwrap returns the underlying BCD error.
func (e *MalformedBCDError) Unwrap() error {
	return e.Err
}
