package ha

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/homeauto.go/pkg/bcd"
)

func TestBuildFrame(t *testing.T) {
	cmd := MustCommand(true, NodeToHub, OpTemperature)
	testCases := []struct {
		name    string
		payload []byte
		err     error
	}{
		{"empty", nil, nil},
		{"value", []byte{0x02, 0x15}, nil},
		{"full", make([]byte, DefaultMaxFrameLen-1), nil},
		{"one over", make([]byte, DefaultMaxFrameLen), ErrPayloadTooLarge},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := BuildFrame(cmd, tc.payload)
			if tc.err != nil {
				require.Equal(t, tc.err, err)
				require.Nil(t, f)
				return
			}
			require.NoError(t, err)
			require.Len(t, f, len(tc.payload)+1)
			require.Equal(t, cmd, f.Command())
			c, p, err := ParseFrame(f)
			require.NoError(t, err)
			require.Equal(t, cmd, c)
			require.Equal(t, len(tc.payload), len(p))
		})
	}
}

func TestBuildFrameCopiesPayload(t *testing.T) {
	payload := []byte{1, 2, 3}
	f, err := BuildFrame(0x80, payload)
	require.NoError(t, err)
	payload[0] = 9
	require.Equal(t, []byte{1, 2, 3}, f.Payload())
}

func TestCodecBound(t *testing.T) {
	c, err := NewCodec(4)
	require.NoError(t, err)
	require.Equal(t, 3, c.MaxPayload())
	_, err = c.BuildFrame(0, []byte{1, 2, 3})
	require.NoError(t, err)
	_, err = c.BuildFrame(0, []byte{1, 2, 3, 4})
	require.Equal(t, ErrPayloadTooLarge, err)
	_, _, err = c.ParseFrame([]byte{0, 1, 2, 3, 4})
	require.Equal(t, ErrFrameTooLong, err)
	_, _, err = c.ParseFrame(nil)
	require.Equal(t, ErrFrameEmpty, err)

	_, err = NewCodec(0)
	require.IsType(t, &ConfigError{}, err)
	require.Equal(t, DefaultMaxFrameLen, Codec{}.MaxLen())
}

func TestTimestamp(t *testing.T) {
	ts := Timestamp{Year: 2023, Month: 6, Day: 15, Hour: 14, Minute: 30}
	p, err := EncodeTimestamp(ts)
	require.NoError(t, err)
	require.Equal(t, []byte{0x20, 0x23, 0x06, 0x15, 0x14, 0x30}, p)
	decoded, err := DecodeTimestamp(p)
	require.NoError(t, err)
	require.Equal(t, ts, decoded)

	now := time.Date(1999, time.December, 31, 23, 59, 42, 0, time.UTC)
	require.Equal(t, "1999-12-31 23:59", TimestampOf(now).String())
	require.Equal(t, now.Truncate(time.Minute), TimestampOf(now).Time(time.UTC))
}

func TestTimestampErrors(t *testing.T) {
	_, err := DecodeTimestamp([]byte{0x20, 0x23, 0x06})
	require.Equal(t, ErrShortPayload, err)

	_, err = DecodeTimestamp([]byte{0x20, 0x23, 0x06, 0x1f, 0x14, 0x30})
	var malformed *MalformedBCDError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "day", malformed.Field)
	var inner *bcd.MalformedError
	require.ErrorAs(t, err, &inner)
	require.Equal(t, byte(0x1f), inner.Value)

	_, err = EncodeTimestamp(Timestamp{Year: 10000})
	require.ErrorIs(t, err, bcd.ErrOutOfRange)
	_, err = EncodeTimestamp(Timestamp{Year: 2020, Minute: 100})
	require.ErrorIs(t, err, bcd.ErrOutOfRange)
}

func TestValue16(t *testing.T) {
	testCases := []struct {
		value  uint16
		expect []byte
	}{
		{0, []byte{0x00, 0x00}},
		{215, []byte{0x02, 0x15}},
		{2023, []byte{0x20, 0x23}},
		{9999, []byte{0x99, 0x99}},
	}
	for _, tc := range testCases {
		p, err := Encode16(tc.value)
		require.NoError(t, err)
		require.Equal(t, tc.expect, p)
		v, err := Decode16(p)
		require.NoError(t, err)
		require.Equal(t, tc.value, v)
	}
	_, err := Encode16(10000)
	require.Equal(t, bcd.ErrOutOfRange, err)
	_, err = Decode16([]byte{0x01})
	require.Equal(t, ErrShortPayload, err)
	_, err = Decode16([]byte{0xa0, 0x00})
	require.IsType(t, &MalformedBCDError{}, err)
}

func TestMessage(t *testing.T) {
	p, err := Encode16(1234)
	require.NoError(t, err)
	msg := Message{From: 0x13, Command: MustCommand(true, NodeToHub, OpTemperature), Payload: p}
	v, err := msg.Value()
	require.NoError(t, err)
	require.Equal(t, uint16(1234), v)
	_, err = msg.Timestamp()
	require.Equal(t, ErrShortPayload, err)
	require.Equal(t, "temp/3: temperature node->hub +data 12 34", msg.String())
}
