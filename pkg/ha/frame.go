package ha

// DefaultMaxFrameLen is the maximum radio message length nodes are built with.
const DefaultMaxFrameLen = 10

// Frame is a command byte followed by the payload.
type Frame []byte

// Command returns the command byte, zero for an empty frame.
func (f Frame) Command() Command {
	if len(f) == 0 {
		return 0
	}
	return Command(f[0])
}

// Payload returns the bytes following the command.
func (f Frame) Payload() []byte {
	if len(f) < 2 {
		return nil
	}
	return f[1:]
}

// Codec builds and parses frames bounded by a maximum length.
// Both ends of a link must use the same bound.
type Codec struct {
	maxLen int
}

// DefaultCodec uses DefaultMaxFrameLen.
var DefaultCodec = Codec{maxLen: DefaultMaxFrameLen}

// NewCodec creates a Codec with the maximum frame length.
func NewCodec(maxLen int) (Codec, error) {
	if maxLen < 1 || maxLen > 255 {
		return Codec{}, &ConfigError{Field: "max frame length", Value: maxLen, Limit: 256}
	}
	return Codec{maxLen: maxLen}, nil
}

// MaxLen returns the maximum frame length.
func (c Codec) MaxLen() int {
	if c.maxLen == 0 {
		return DefaultMaxFrameLen
	}
	return c.maxLen
}

// MaxPayload returns the payload capacity of a frame.
func (c Codec) MaxPayload() int {
	return c.MaxLen() - 1
}

// BuildFrame assembles a frame, failing if payload doesn't fit.
func (c Codec) BuildFrame(cmd Command, payload []byte) (Frame, error) {
	if len(payload) > c.MaxPayload() {
		return nil, ErrPayloadTooLarge
	}
	f := make(Frame, len(payload)+1)
	f[0] = byte(cmd)
	copy(f[1:], payload)
	return f, nil
}

// ParseFrame splits a frame into the command and payload.
// The payload aliases b.
func (c Codec) ParseFrame(b []byte) (Command, []byte, error) {
	if len(b) == 0 {
		return 0, nil, ErrFrameEmpty
	}
	if len(b) > c.MaxLen() {
		return 0, nil, ErrFrameTooLong
	}
	return Command(b[0]), b[1:], nil
}

// BuildFrame uses DefaultCodec.
func BuildFrame(cmd Command, payload []byte) (Frame, error) {
	return DefaultCodec.BuildFrame(cmd, payload)
}

// ParseFrame uses DefaultCodec.
func ParseFrame(b []byte) (Command, []byte, error) {
	return DefaultCodec.ParseFrame(b)
}
