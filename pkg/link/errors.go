package link

import "errors"

var (
	// ErrNotReady indicates the link isn't synchronized yet.
	ErrNotReady = errors.New("link not ready")
	// ErrDataTooLong indicates packet data exceeds MaxDataLen.
	ErrDataTooLong = errors.New("packet data too long")
)
